package verifier

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lincheck/internal/checker"
	"lincheck/internal/history"
)

const (
	goodStack = "# stack\npush 1 0 10\npush 2 5 15\npop 2 20 30\npop 1 25 35\n"
	badStack  = "# stack\npush 1 0 1\npush 2 2 3\npop 1 4 5\npop 2 6 7\n"
	bareQueue = "enq 1 0 1\ndeq 1 2 3\n"
)

func writeTrace(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func testOptions() Options {
	return Options{Parallelism: 2, CrossCheckTimeout: 10 * time.Second, CrossCheckMaxOps: 100}
}

func TestRun_Verdicts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := []string{
		writeTrace(t, dir, "good.txt", goodStack),
		writeTrace(t, dir, "bad.txt", badStack),
	}

	v := New(testOptions(), nil, nil)

	report, err := v.Run(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, report.Results, 2)

	assert.NotEmpty(t, report.RunID)
	assert.True(t, report.Results[0].IsLinearizable)
	assert.Equal(t, 4, report.Results[0].TotalOps)
	assert.Equal(t, "stack", report.Results[0].Kind)
	assert.Empty(t, report.Results[0].Reason)

	assert.False(t, report.Results[1].IsLinearizable)
	assert.Contains(t, report.Results[1].Reason, checker.ErrInfeasible.Error())
	assert.False(t, report.AllLinearizable())
}

func TestRun_ReadErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := []string{
		writeTrace(t, dir, "bare.txt", bareQueue),
		filepath.Join(dir, "missing.txt"),
		writeTrace(t, dir, "junk.txt", "# stack\nshove 1 0 1\n"),
	}

	report, err := New(testOptions(), nil, nil).Run(context.Background(), paths)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrNoKind)
	require.ErrorIs(t, err, history.ErrUnknownMethod)

	for _, res := range report.Results {
		assert.Error(t, res.Err())
		assert.NotEmpty(t, res.Error)
		assert.False(t, res.IsLinearizable)
	}
}

func TestRun_KindOverride(t *testing.T) {
	t.Parallel()

	path := writeTrace(t, t.TempDir(), "bare.txt", bareQueue)

	opts := testOptions()
	opts.Kind, opts.KindSet = checker.Queue, true

	report, err := New(opts, nil, nil).Run(context.Background(), []string{path})
	require.NoError(t, err)
	assert.True(t, report.Results[0].IsLinearizable)
	assert.Equal(t, "queue", report.Results[0].Kind)
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()

	path := writeTrace(t, t.TempDir(), "good.txt", goodStack)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := New(testOptions(), nil, nil).Run(ctx, []string{path})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, report.Results[0].IsLinearizable)
}

func TestCheckHistory_Incremental(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.Incremental = true
	opts.Timing = true
	v := New(opts, nil, nil)

	good := history.New()
	good.Add(history.Push, 1, 0, 10)
	good.Add(history.Pop, 1, 20, 30)

	res := v.CheckHistory("good", checker.Stack, good)
	require.NotNil(t, res.Prefix)
	assert.Equal(t, int64(30), *res.Prefix)
	assert.Positive(t, res.Seconds)

	bad := history.New()
	bad.Add(history.Push, 1, 0, 1)
	bad.Add(history.Push, 2, 2, 3)
	bad.Add(history.Pop, 1, 4, 5)
	bad.Add(history.Pop, 2, 6, 7)

	res = v.CheckHistory("bad", checker.Stack, bad)
	require.NotNil(t, res.Prefix)
	assert.Equal(t, int64(3), *res.Prefix)
}

func TestCheckHistory_CrossCheck(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.CrossCheck = true
	metrics := NewMetrics()
	v := New(opts, slog.New(slog.DiscardHandler), metrics)

	h := history.New()
	h.Add(history.Enqueue, 1, 0, 1)
	h.Add(history.Enqueue, 2, 2, 3)
	h.Add(history.Dequeue, 2, 4, 5)
	h.Add(history.Dequeue, 1, 6, 7)

	res := v.CheckHistory("q", checker.Queue, h)
	require.NotNil(t, res.CrossCheck)
	assert.False(t, res.IsLinearizable)
	assert.Equal(t, "illegal", res.CrossCheck.Result)
	assert.True(t, res.CrossCheck.Agrees)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.checks.WithLabelValues("queue", "false")), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(metrics.operations.WithLabelValues("queue")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.disagreements), 0)
}

func TestCheckHistory_CrossCheckSkipped(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.CrossCheck = true
	opts.CrossCheckMaxOps = 2
	v := New(opts, nil, nil)

	h := history.New()
	h.Add(history.Push, 1, 0, 1)
	h.Add(history.Push, 2, 2, 3)
	h.Add(history.Pop, 2, 4, 5)

	assert.Nil(t, v.CheckHistory("big", checker.Stack, h).CrossCheck)

	dup := history.New()
	dup.Add(history.Push, 1, 0, 1)
	dup.Add(history.Push, 1, 2, 3)

	assert.Nil(t, v.CheckHistory("dup", checker.Stack, dup).CrossCheck)
}

func TestCheckHistory_Visualize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeTrace(t, dir, "good.txt", goodStack)

	opts := testOptions()
	opts.Visualize = true

	report, err := New(opts, nil, nil).Run(context.Background(), []string{path})
	require.NoError(t, err)

	html := filepath.Join(dir, "good.html")
	assert.Equal(t, html, report.Results[0].HTMLPath)
	assert.Equal(t, []string{html}, report.HTMLPaths())
	assert.Nil(t, report.Results[0].CrossCheck)

	data, err := os.ReadFile(html)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(data, []byte("<html")))
}
