// Package dashboard is a read-only net/http server exposing recent prune
// invocations and pending boundary markers for a project. It never calls
// the pruner or the backup writer, it only reads from the history store.
package dashboard

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/transcriptprune/transcriptprune/internal/history"
)

// Server is the dashboard HTTP server.
type Server struct {
	store  history.Store
	logger *slog.Logger
	tmpl   *template.Template
	addr   string
}

// NewServer builds a dashboard server reading from s, bound to addr
// (e.g. ":4545").
func NewServer(addr string, s history.Store, logger *slog.Logger) (*Server, error) {
	funcMap := template.FuncMap{
		"formatTime": func(t time.Time) string {
			return t.Format("2006-01-02 15:04:05")
		},
		"relTime": func(t time.Time) string {
			return humanize.Time(t)
		},
		"bytes": func(n int64) string {
			return humanize.Bytes(uint64(n))
		},
		"truncate": func(s string, n int) string {
			if len(s) <= n {
				return s
			}
			return s[:n] + "..."
		},
	}

	tmpl, err := template.New("index").Funcs(funcMap).Parse(indexTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse dashboard template: %w", err)
	}

	return &Server{
		store:  s,
		logger: logger,
		tmpl:   tmpl,
		addr:   addr,
	}, nil
}

// Start starts the HTTP server. Blocks until context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /", s.handleIndex)
	mux.HandleFunc("GET /api/history", s.handleAPIHistory)
	mux.HandleFunc("GET /api/boundaries", s.handleAPIBoundaries)

	server := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutCtx)
	}()

	s.logger.Info("dashboard starting", "url", fmt.Sprintf("http://localhost%s", s.addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

const indexTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>transcriptprune</title>
<style>
body { font-family: monospace; margin: 2rem; }
table { border-collapse: collapse; width: 100%; }
td, th { border: 1px solid #ccc; padding: 0.4rem 0.6rem; text-align: left; }
h2 { margin-top: 2rem; }
</style>
</head>
<body>
<h1>transcriptprune dashboard</h1>

<h2>Stats</h2>
<p>
total prunes: {{.Stats.TotalPrunes}} &middot;
bytes reclaimed: {{bytes .Stats.TotalBytesReclaimed}} &middot;
average retention: {{printf "%.1f" .Stats.AverageRetentionPercent}}%
</p>

<h2>Recent prune invocations</h2>
<table>
<tr><th>time</th><th>session</th><th>mode</th><th>lines</th><th>bytes</th><th>boundary</th></tr>
{{range .Invocations}}
<tr>
<td title="{{formatTime .Timestamp}}">{{relTime .Timestamp}}</td>
<td>{{.SessionID}}</td>
<td>{{.Mode}}</td>
<td>{{.LinesBefore}} &rarr; {{.LinesAfter}}</td>
<td>{{bytes .BytesBefore}} &rarr; {{bytes .BytesAfter}}</td>
<td>{{truncate .BoundaryDescription 60}}</td>
</tr>
{{end}}
</table>

<h2>Pending boundary markers</h2>
<table>
<tr><th>time</th><th>session</th><th>intent</th></tr>
{{range .Markers}}
<tr>
<td title="{{formatTime .Timestamp}}">{{relTime .Timestamp}}</td>
<td>{{.SessionID}}</td>
<td>{{.Intent}}</td>
</tr>
{{end}}
</table>

</body>
</html>
`
