package verifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// Report formats.
const (
	FormatBool = "bool"
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrUnknownFormat is returned for an output format with no writer.
var ErrUnknownFormat = errors.New("unknown report format")

// WriteReport renders report to w in the given format. Colors apply to the
// text format only.
func WriteReport(w io.Writer, report *Report, format string, colored bool) error {
	switch format {
	case FormatBool:
		return writeBool(w, report)
	case FormatText:
		return writeText(w, report, colored)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("error marshaling report: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("error marshaling report: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// writeBool prints one verdict per file, followed by the prefix time and the
// elapsed seconds when they were requested. Unreadable files print "error".
func writeBool(w io.Writer, report *Report) error {
	for _, res := range report.Results {
		line := strconv.FormatBool(res.IsLinearizable)
		if res.err != nil {
			line = "error"
		}

		if res.Prefix != nil {
			line += " " + strconv.FormatInt(*res.Prefix, 10)
		}

		if res.Seconds > 0 {
			line += " " + strconv.FormatFloat(res.Seconds, 'f', 6, 64)
		}

		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	return nil
}

type palette struct {
	cyan, green, red, yellow, blue *color.Color
}

func newPalette(colored bool) palette {
	p := palette{
		cyan:   color.New(color.FgCyan),
		green:  color.New(color.FgGreen),
		red:    color.New(color.FgRed),
		yellow: color.New(color.FgYellow),
		blue:   color.New(color.FgBlue, color.Bold),
	}

	for _, c := range []*color.Color{p.cyan, p.green, p.red, p.yellow, p.blue} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return p
}

func writeText(w io.Writer, report *Report, colored bool) error {
	p := newPalette(colored)

	for _, res := range report.Results {
		printResult(w, p, res)
	}

	fmt.Fprintf(w, "\n%s\n", p.blue.Sprint("📊 Summary"))

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"File", "Kind", "Ops", "Linearizable", "Reason"})

	linearizable := 0
	for _, res := range report.Results {
		verdict := "🚫"
		switch {
		case res.err != nil:
			verdict = "⚠️"
		case res.IsLinearizable:
			verdict = "✅"
			linearizable++
		}

		reason := res.Reason
		if res.err != nil {
			reason = res.Error
		}

		tbl.AppendRow(table.Row{filepath.Base(res.Path), res.Kind, humanize.Comma(int64(res.TotalOps)), verdict, reason})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d files", len(report.Results)), "", "", fmt.Sprintf("%d/%d", linearizable, len(report.Results)), ""})

	_, err := fmt.Fprintf(w, "%s\n%s\n", tbl.Render(), p.cyan.Sprint("🆔 Run "+report.RunID))

	return err
}

// printResult prints the check results of one file
func printResult(w io.Writer, p palette, res HistoryResult) {
	fmt.Fprintf(w, "\n%s\n", p.cyan.Sprint("🧪 Processing "+filepath.Base(res.Path)))

	if res.err != nil {
		fmt.Fprintln(w, p.red.Sprintf("  ❌ Error: %s", res.Error))
		return
	}

	if res.TotalOps == 0 {
		fmt.Fprintln(w, p.yellow.Sprint("  ⚪️ No operations found in history"))
	}

	c := p.green
	if res.IsLinearizable {
		fmt.Fprintln(w, c.Sprintf("  ✅ History is linearizable (%s)", res.Kind))
	} else {
		c = p.red
		fmt.Fprintln(w, c.Sprintf("  🚫 History is NOT linearizable (%s)", res.Kind))
	}

	fmt.Fprintln(w, c.Sprintf("  🧮 Total operations: %s", humanize.Comma(int64(res.TotalOps))))

	if res.Reason != "" {
		fmt.Fprintln(w, p.yellow.Sprintf("  ⚠️ Reason: %s", res.Reason))
	}

	if res.Prefix != nil {
		if *res.Prefix == NoPrefix {
			fmt.Fprintln(w, c.Sprint("  📌 No linearizable prefix"))
		} else {
			fmt.Fprintln(w, c.Sprintf("  📌 Linearizable up to time %d", *res.Prefix))
		}
	}

	if res.Seconds > 0 {
		fmt.Fprintln(w, c.Sprintf("  ⏱️  Checked in %.6fs", res.Seconds))
	}

	if cc := res.CrossCheck; cc != nil {
		ccColor := p.green
		if !cc.Agrees {
			ccColor = p.red
		}

		fmt.Fprintln(w, ccColor.Sprintf("  🔁 Porcupine: %s (agrees: %t)", cc.Result, cc.Agrees))

		if cc.MaxPartialLen > 0 {
			fmt.Fprintln(w, ccColor.Sprintf("  📌 Max partial linearization length: %d (out of %d)", cc.MaxPartialLen, res.TotalOps))
		}
	}

	if res.HTMLPath != "" {
		fmt.Fprintln(w, p.green.Sprint("  🖼️  Generated visualization: "+res.HTMLPath))
	}
}
