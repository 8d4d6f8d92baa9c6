package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// startServer serves /healthz and, when metrics are enabled, the
// prometheus handler on the configured address.
func (a *App) startServer(ctx context.Context) {
	if !a.cfg.Metrics.EnabledValue() {
		return
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealth)
	if a.prom != nil {
		mux.Handle(a.cfg.Metrics.Path, a.prom.Handler())
	}
	srv := &http.Server{
		Addr:    a.cfg.Metrics.Address,
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("metrics server failed", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	a.log.Info("metrics server listening",
		zap.String("address", a.cfg.Metrics.Address),
		zap.String("path", a.cfg.Metrics.Path),
	)
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := struct {
		Status      string `json:"status"`
		LastSuccess string `json:"last_success,omitempty"`
	}{Status: "ok"}
	if ms := a.lastSuccess.Load(); ms > 0 {
		status.LastSuccess = time.UnixMilli(ms).UTC().Format(time.RFC3339)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}
