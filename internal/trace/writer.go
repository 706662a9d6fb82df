package trace

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"lincheck/internal/checker"
	"lincheck/internal/history"
)

// WriteFile stores h as a trace of kind at path.
func WriteFile(path string, kind checker.Kind, h *history.History) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trace: %w", err)
	}

	if err := Write(f, kind, h); err != nil {
		f.Close()

		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close trace: %w", err)
	}

	return nil
}

// Write emits a "# kind" header followed by one line per operation, ordered
// by invocation. Sets and histories holding failed operations use the
// extended line format.
func Write(w io.Writer, kind checker.Kind, h *history.History) error {
	ops := slices.Clone(h.Ops)
	slices.SortStableFunc(ops, func(a, b history.Operation) int {
		return cmp.Or(cmp.Compare(a.Start, b.Start), cmp.Compare(a.ID, b.ID))
	})

	extended := kind == checker.Set || slices.ContainsFunc(ops, func(o history.Operation) bool {
		return !o.Success
	})

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# %s\n", kind)

	for _, o := range ops {
		if extended {
			fmt.Fprintf(bw, "%s %s %d %d %d\n", o.Method, formatValue(o.Value), successFlag(o.Success), o.Start, o.End)
		} else {
			fmt.Fprintf(bw, "%s %s %d %d\n", o.Method, formatValue(o.Value), o.Start, o.End)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}

	return nil
}

func formatValue(v int) string {
	if v == history.EmptyValue {
		return emptyToken
	}

	return strconv.Itoa(v)
}

func successFlag(ok bool) int {
	if ok {
		return 1
	}

	return 0
}
