package verifier

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fatih/color"
)

const shutdownTimeout = 5 * time.Second

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html><head><title>lincheck</title></head><body>
<h1>Visualizations</h1>
<ul>{{range $i, $p := .}}<li><a href="/view/{{$i}}">{{$p}}</a></li>{{end}}</ul>
<p><a href="/metrics">metrics</a></p>
</body></html>
`))

// NewHandler serves the visualizations at htmlPaths and the metrics registry.
// With a single visualization the root serves it directly.
func NewHandler(htmlPaths []string, metrics *Metrics) http.Handler {
	mux := http.NewServeMux()

	if metrics != nil {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	mux.HandleFunc("GET /view/{index}", func(w http.ResponseWriter, r *http.Request) {
		i, err := strconv.Atoi(r.PathValue("index"))
		if err != nil || i < 0 || i >= len(htmlPaths) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, htmlPaths[i])
	})

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		if len(htmlPaths) == 1 {
			http.ServeFile(w, r, htmlPaths[0])
			return
		}

		names := make([]string, len(htmlPaths))
		for i, p := range htmlPaths {
			names[i] = filepath.Base(p)
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = indexTemplate.Execute(w, names)
	})

	return mux
}

// StartSimpleServer serves the visualizations and metrics on port until ctx
// is done.
func StartSimpleServer(ctx context.Context, port int, htmlPaths []string, metrics *Metrics, out io.Writer, logger *slog.Logger) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("error starting server: %w", err)
	}

	return serve(ctx, lis, NewHandler(htmlPaths, metrics), out, logger)
}

func serve(ctx context.Context, lis net.Listener, handler http.Handler, out io.Writer, logger *slog.Logger) error {
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	url := "http://" + lis.Addr().String()
	blue, yellow := color.New(color.FgBlue), color.New(color.FgYellow)
	fmt.Fprintf(out, "\n%s\n", blue.Sprint("🌐 Starting web server on "+url))
	fmt.Fprintf(out, "%s\n", yellow.Sprint("⏹️  Press Ctrl+C to stop the server"))
	fmt.Fprintf(out, "%s\n\n", blue.Sprint("🧭 Open "+url+" in your browser to view the visualization"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("error serving: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server", "addr", lis.Addr().String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error stopping server: %w", err)
	}

	return nil
}
