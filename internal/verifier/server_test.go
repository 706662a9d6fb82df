package verifier

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lincheck/internal/checker"
	"lincheck/internal/history"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	return rec
}

func TestNewHandler_SingleVisualization(t *testing.T) {
	t.Parallel()

	page := filepath.Join(t.TempDir(), "a.html")
	require.NoError(t, os.WriteFile(page, []byte("<p>history a</p>"), 0o600))

	metrics := NewMetrics()
	h := history.New()
	h.Add(history.Push, 1, 0, 1)
	New(testOptions(), nil, metrics).CheckHistory("a", checker.Stack, h)

	handler := NewHandler([]string{page}, metrics)

	rec := get(t, handler, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "history a")

	rec = get(t, handler, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `lincheck_checks_total{kind="stack",verdict="true"} 1`)
}

func TestNewHandler_Index(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.html"), filepath.Join(dir, "b.html")
	require.NoError(t, os.WriteFile(a, []byte("page a"), 0o600))
	require.NoError(t, os.WriteFile(b, []byte("page b"), 0o600))

	handler := NewHandler([]string{a, b}, nil)

	rec := get(t, handler, "/")
	assert.Contains(t, rec.Body.String(), `href="/view/1"`)
	assert.Contains(t, rec.Body.String(), "b.html")

	assert.Contains(t, get(t, handler, "/view/1").Body.String(), "page b")
	assert.Equal(t, http.StatusNotFound, get(t, handler, "/view/7").Code)
	assert.Equal(t, http.StatusNotFound, get(t, handler, "/metrics").Code)
}

func TestServe_StopsOnCancel(t *testing.T) {
	t.Parallel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- serve(ctx, lis, NewHandler(nil, NewMetrics()), io.Discard, slog.New(slog.DiscardHandler))
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + lis.Addr().String() + "/metrics")
		if err != nil {
			return false
		}
		resp.Body.Close()

		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
