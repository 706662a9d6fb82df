// Package verifier drives the linearizability checkers over trace files and
// collects their verdicts into a report.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anishathalye/porcupine"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"lincheck/internal/checker"
	"lincheck/internal/history"
	"lincheck/internal/trace"
)

// ErrNoKind is returned for a trace without a header when no kind is forced.
var ErrNoKind = errors.New("trace names no container kind")

// NoPrefix is reported in incremental mode when not even the shortest prefix
// is linearizable.
const NoPrefix int64 = -1

// Verifier checks trace files
type Verifier struct {
	opts    Options
	logger  *slog.Logger
	metrics *Metrics
}

// New returns a Verifier. A nil metrics disables instrumentation.
func New(opts Options, logger *slog.Logger, metrics *Metrics) *Verifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Verifier{opts: opts, logger: logger, metrics: metrics}
}

// Run checks every trace file and returns the report. Files are checked in
// parallel; results keep the order of paths. The error joins the read errors
// of files that could not be checked.
func (v *Verifier) Run(ctx context.Context, paths []string) (*Report, error) {
	report := &Report{RunID: uuid.NewString(), Started: time.Now()}
	logger := v.logger.With("run_id", report.RunID)
	results := make([]HistoryResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(v.opts.Parallelism, 1))

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = failed(path, err)
				return nil
			}

			results[i] = v.processHistory(path, logger)

			return nil
		})
	}

	_ = g.Wait()
	report.Results = results

	var errs []error
	for _, res := range results {
		if res.err != nil {
			errs = append(errs, res.err)
		}
	}

	return report, errors.Join(errs...)
}

// ProcessHistory processes a single trace file and returns the result
func (v *Verifier) ProcessHistory(path string) HistoryResult {
	return v.processHistory(path, v.logger)
}

func (v *Verifier) processHistory(path string, logger *slog.Logger) HistoryResult {
	t, err := trace.ReadFile(path)
	if err != nil {
		logger.Error("reading trace failed", "file", path, "error", err)
		return failed(path, err)
	}

	kind := t.Kind
	switch {
	case v.opts.KindSet:
		kind = v.opts.Kind
	case !t.HasKind:
		err := fmt.Errorf("%s: %w", path, ErrNoKind)
		logger.Error("reading trace failed", "file", path, "error", err)
		return failed(path, err)
	}

	return v.checkHistory(path, kind, t.History, logger)
}

// CheckHistory decides an in-memory history as if it was read from path
func (v *Verifier) CheckHistory(path string, kind checker.Kind, h *history.History) HistoryResult {
	return v.checkHistory(path, kind, h, v.logger)
}

func (v *Verifier) checkHistory(path string, kind checker.Kind, h *history.History, logger *slog.Logger) HistoryResult {
	logger = logger.With("file", filepath.Base(path), "kind", kind.String())
	logger.Info("checking history", "ops", h.Len())

	res := HistoryResult{Path: path, Kind: kind.String(), TotalOps: h.Len()}

	began := time.Now()

	verdict := checker.Check(kind, h)
	res.IsLinearizable = verdict == nil
	if verdict != nil {
		res.Reason = verdict.Error()
		logger.Debug("history rejected", "reason", verdict)
	}

	if v.opts.Incremental {
		prefix := h.Horizon()
		if !res.IsLinearizable {
			var err error
			if prefix, err = checker.MaxLinearizablePrefix(kind, h); err != nil {
				prefix = NoPrefix
			}
		}

		res.Prefix = &prefix
	}

	elapsed := time.Since(began)
	if v.opts.Timing {
		res.Seconds = elapsed.Seconds()
	}

	if v.opts.CrossCheck || v.opts.Visualize {
		v.crossCheck(&res, kind, h, verdict, logger)
	}

	logger.Info("history checked", "linearizable", res.IsLinearizable, "elapsed", elapsed)
	v.metrics.observe(res, elapsed.Seconds())

	return res
}

// crossCheck re-decides h with the porcupine model of kind. Histories that
// break the distinct-value restriction are outside what the checkers decide,
// so they are not compared.
func (v *Verifier) crossCheck(res *HistoryResult, kind checker.Kind, h *history.History, verdict error, logger *slog.Logger) {
	if errors.Is(verdict, history.ErrDuplicateAdd) || errors.Is(verdict, history.ErrDuplicateRemove) {
		logger.Debug("skipping cross-check", "reason", "values are not distinct")
		return
	}

	if v.opts.CrossCheckMaxOps > 0 && h.Len() > v.opts.CrossCheckMaxOps {
		logger.Debug("skipping cross-check", "ops", h.Len(), "max_ops", v.opts.CrossCheckMaxOps)
		return
	}

	model, err := createModel(kind)
	if err != nil {
		logger.Warn("no reference model", "error", err)
		return
	}

	result, info := porcupine.CheckOperationsVerbose(model, toPorcupineOperations(h), v.opts.CrossCheckTimeout)

	if v.opts.CrossCheck {
		cc := &CrossCheckResult{
			Result:        strings.ToLower(fmt.Sprint(result)),
			Agrees:        result == porcupine.Unknown || (result == porcupine.Ok) == res.IsLinearizable,
			MaxPartialLen: calculateMaxPartialLength(info),
		}

		if !cc.Agrees {
			logger.Warn("reference model disagrees", "checker", res.IsLinearizable, "porcupine", cc.Result)
		}

		res.CrossCheck = cc
	}

	if v.opts.Visualize {
		res.HTMLPath = generateVisualization(res.Path, model, info, logger)
	}
}

// calculateMaxPartialLength finds the maximum partial linearization length
func calculateMaxPartialLength(info porcupine.LinearizationInfo) int {
	maxPartialLength := 0
	for _, partition := range info.PartialLinearizations() {
		for _, linearization := range partition {
			maxPartialLength = max(maxPartialLength, len(linearization))
		}
	}

	return maxPartialLength
}

// generateVisualization creates an HTML visualization file next to the trace
func generateVisualization(historyPath string, model porcupine.Model, info porcupine.LinearizationInfo, logger *slog.Logger) string {
	baseName := strings.TrimSuffix(filepath.Base(historyPath), filepath.Ext(historyPath))
	htmlPath := filepath.Join(filepath.Dir(historyPath), baseName+".html")

	htmlFile, err := os.Create(htmlPath)
	if err != nil {
		logger.Warn("failed to create visualization file", "error", err)
		return ""
	}
	defer htmlFile.Close()

	if err := porcupine.Visualize(model, info, htmlFile); err != nil {
		logger.Warn("failed to generate visualization", "error", err)
		return ""
	}

	logger.Debug("generated visualization", "html", htmlPath)

	return htmlPath
}

func failed(path string, err error) HistoryResult {
	return HistoryResult{Path: path, Error: err.Error(), err: err}
}
