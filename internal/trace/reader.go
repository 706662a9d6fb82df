// Package trace reads and writes the textual history formats.
//
// A trace may start with a "# <kind>" header naming the container; any other
// comment line is skipped. Operation
// lines use one of:
//
//	method value start end
//	method value success start end
//	proc method value start end
//
// or the process-event form, where "(proc) ... method(value)" invocation
// lines are paired with the next "(proc) ... value|empty" line of the same
// process and the line counter serves as time.
package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"lincheck/internal/checker"
	"lincheck/internal/history"
)

// ErrMalformed is returned for a line that matches no trace format.
var ErrMalformed = errors.New("malformed trace line")

const emptyToken = "empty"

// Trace is a parsed trace file.
type Trace struct {
	// Kind is the container named by the header; HasKind is false when the
	// trace has no header.
	Kind    checker.Kind
	HasKind bool
	History *history.History
}

// ReadFile parses the trace stored at path.
func ReadFile(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return t, nil
}

// Read parses a trace from r.
func Read(r io.Reader) (*Trace, error) {
	p := &parser{
		trace:   &Trace{History: &history.History{}},
		running: make(map[string]history.Operation),
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		p.lineNo++

		if err := p.line(strings.TrimSpace(sc.Text())); err != nil {
			return nil, fmt.Errorf("line %d: %w", p.lineNo, err)
		}
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}

	return p.trace, nil
}

type parser struct {
	trace  *Trace
	lineNo int

	// process-event dialect
	clock   int64
	running map[string]history.Operation
}

func (p *parser) line(text string) error {
	if text == "" {
		return nil
	}

	if strings.HasPrefix(text, "#") {
		words := strings.Fields(strings.TrimPrefix(text, "#"))
		if p.lineNo != 1 || len(words) != 1 {
			return nil
		}

		kind, err := checker.ParseKind(words[0])
		if err != nil {
			return err
		}

		p.trace.Kind, p.trace.HasKind = kind, true

		return nil
	}

	fields := strings.Fields(text)
	if strings.HasPrefix(fields[0], "(") {
		return p.event(fields)
	}

	switch len(fields) {
	case 4:
		return p.basic(fields)
	case 5:
		if _, err := history.ParseMethod(fields[0]); err == nil {
			return p.extended(fields)
		}

		if _, err := strconv.Atoi(fields[0]); err == nil {
			return p.basic(fields[1:])
		}

		return fmt.Errorf("%w: %q", ErrMalformed, text)
	default:
		return fmt.Errorf("%w: %d fields in %q", ErrMalformed, len(fields), text)
	}
}

func (p *parser) basic(fields []string) error {
	m, err := history.ParseMethod(fields[0])
	if err != nil {
		return err
	}

	v, err := parseValue(fields[1])
	if err != nil {
		return err
	}

	start, end, err := parseInterval(fields[2], fields[3])
	if err != nil {
		return err
	}

	p.trace.History.Add(m, v, start, end)

	return nil
}

func (p *parser) extended(fields []string) error {
	m, err := history.ParseMethod(fields[0])
	if err != nil {
		return err
	}

	v, err := parseValue(fields[1])
	if err != nil {
		return err
	}

	ok, err := parseSuccess(fields[2])
	if err != nil {
		return err
	}

	start, end, err := parseInterval(fields[3], fields[4])
	if err != nil {
		return err
	}

	p.trace.History.AddResult(m, v, ok, start, end)

	return nil
}

// event handles one line of the process-event dialect. The first line seen
// for a process is its invocation, the next one its response.
func (p *parser) event(fields []string) error {
	now := p.clock
	p.clock++

	proc := strings.Trim(fields[0], "()")
	if len(fields) < 3 {
		if inv, ok := p.running[proc]; ok {
			delete(p.running, proc)
			p.trace.History.Add(inv.Method, inv.Value, inv.Start, now)

			return nil
		}

		return fmt.Errorf("%w: invocation without method", ErrMalformed)
	}

	token := fields[len(fields)-1]

	inv, ok := p.running[proc]
	if ok {
		delete(p.running, proc)

		if token == emptyToken {
			inv.Value = history.EmptyValue
		} else if v, err := strconv.Atoi(token); err == nil {
			inv.Value = v
		}

		p.trace.History.Add(inv.Method, inv.Value, inv.Start, now)

		return nil
	}

	name, arg, _ := strings.Cut(token, "(")
	arg = strings.TrimSuffix(arg, ")")

	m, err := history.ParseMethod(name)
	if err != nil {
		return err
	}

	inv = history.Operation{Method: m, Start: now}
	if arg != "" {
		if inv.Value, err = parseValue(arg); err != nil {
			return err
		}
	}

	p.running[proc] = inv

	return nil
}

func parseValue(s string) (int, error) {
	if s == emptyToken {
		return history.EmptyValue, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: bad value %q", ErrMalformed, s)
	}

	return v, nil
}

func parseInterval(start, end string) (int64, int64, error) {
	s, err := strconv.ParseInt(start, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad start %q", ErrMalformed, start)
	}

	e, err := strconv.ParseInt(end, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad end %q", ErrMalformed, end)
	}

	return s, e, nil
}

func parseSuccess(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	default:
		return false, fmt.Errorf("%w: bad success flag %q", ErrMalformed, s)
	}
}
