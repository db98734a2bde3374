package cli

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"proscope/internal/core/analysis"
	"proscope/internal/core/errors"
	"proscope/internal/engine/index"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthStatus is the /health payload of watch mode.
type HealthStatus struct {
	Status    string `json:"status"`
	File      string `json:"file,omitempty"`
	Version   uint64 `json:"version"`
	ParsingOk bool   `json:"parsing_ok"`
	Stale     bool   `json:"stale"`
	HeapMB    uint64 `json:"heap_mb"`
}

type outlineEntry struct {
	Kind     string         `json:"kind"`
	Name     string         `json:"name"`
	Line     int            `json:"line"`
	Children []outlineEntry `json:"children,omitempty"`
}

// ObservabilityServer serves metrics and the state of the latest snapshot
// while watch mode runs.
type ObservabilityServer struct {
	addr     string
	snapshot func() *analysis.Snapshot
	server   *http.Server
	listener net.Listener
}

func NewObservabilityServer(addr string, snapshot func() *analysis.Snapshot) *ObservabilityServer {
	return &ObservabilityServer{
		addr:     addr,
		snapshot: snapshot,
	}
}

func (s *ObservabilityServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := healthOf(s.snapshot())
		code := http.StatusOK
		if status.Status != "up" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
	})

	// Outline of the last published snapshot, 1-based lines.
	mux.HandleFunc("/outline", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, toOutlineEntry(s.snapshot().Index.Outline()))
	})
	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("failed to write response", "error", err)
	}
}

func toOutlineEntry(n *index.OutlineNode) outlineEntry {
	e := outlineEntry{Kind: n.Kind.String(), Name: n.Name, Line: n.Line + 1}
	for _, c := range n.Children {
		e.Children = append(e.Children, toOutlineEntry(c))
	}
	return e
}

// Start binds the address before returning so a bad address fails the
// command instead of only being logged.
func (s *ObservabilityServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeIO, "observability listener"), "addr", s.addr)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	slog.Info("observability server listening", "addr", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("observability server failed", "error", err)
		}
	}()
	return nil
}

// Addr is the bound address, or the configured one before Start.
func (s *ObservabilityServer) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *ObservabilityServer) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
