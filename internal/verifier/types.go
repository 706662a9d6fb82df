package verifier

import (
	"time"

	"lincheck/internal/checker"
)

// Options controls how trace files are checked
type Options struct {
	// Kind overrides the trace header when KindSet is true
	Kind    checker.Kind
	KindSet bool

	Incremental bool
	Timing      bool

	// CrossCheck re-decides small histories with porcupine
	CrossCheck        bool
	CrossCheckTimeout time.Duration
	CrossCheckMaxOps  int
	// Visualize writes a porcupine HTML page next to each trace
	Visualize bool

	Parallelism int
}

// CrossCheckResult is the verdict of the porcupine reference model
type CrossCheckResult struct {
	Result        string `json:"result" yaml:"result"`
	Agrees        bool   `json:"agrees" yaml:"agrees"`
	MaxPartialLen int    `json:"max_partial_len,omitempty" yaml:"max_partial_len,omitempty"`
}

// HistoryResult contains the results of checking a trace file
type HistoryResult struct {
	Path           string            `json:"path" yaml:"path"`
	Kind           string            `json:"kind,omitempty" yaml:"kind,omitempty"`
	TotalOps       int               `json:"ops" yaml:"ops"`
	IsLinearizable bool              `json:"linearizable" yaml:"linearizable"`
	Reason         string            `json:"reason,omitempty" yaml:"reason,omitempty"`
	Prefix         *int64            `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Seconds        float64           `json:"seconds,omitempty" yaml:"seconds,omitempty"`
	CrossCheck     *CrossCheckResult `json:"crosscheck,omitempty" yaml:"crosscheck,omitempty"`
	HTMLPath       string            `json:"html,omitempty" yaml:"html,omitempty"`
	Error          string            `json:"error,omitempty" yaml:"error,omitempty"`

	err error
}

// Err returns the read error that stopped the file from being checked
func (r HistoryResult) Err() error {
	return r.err
}

// Report collects the results of one run
type Report struct {
	RunID   string          `json:"run_id" yaml:"run_id"`
	Started time.Time       `json:"started" yaml:"started"`
	Results []HistoryResult `json:"results" yaml:"results"`
}

// AllLinearizable reports whether every checked file is linearizable
func (r *Report) AllLinearizable() bool {
	for _, res := range r.Results {
		if !res.IsLinearizable {
			return false
		}
	}

	return true
}

// HTMLPaths lists the visualizations written during the run
func (r *Report) HTMLPaths() []string {
	var paths []string
	for _, res := range r.Results {
		if res.HTMLPath != "" {
			paths = append(paths, res.HTMLPath)
		}
	}

	return paths
}
