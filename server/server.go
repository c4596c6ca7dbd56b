// Package server exposes the persistence gateway and render adapter over a
// small JSON API for the browser-side editor.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"

	"github.com/docpane/layoutstudio/gateway"
	"github.com/docpane/layoutstudio/render"
)

// Config carries the server's wiring.
type Config struct {
	Port    int
	DataDir string
	PDFDir  string
	Remote  string
}

// Run serves the API until interrupted, then shuts down gracefully.
func Run(cfg Config, log zerolog.Logger) error {
	opts := []gateway.Option{gateway.WithLogger(log)}
	if cfg.Remote != "" {
		opts = append(opts, gateway.WithRemote(cfg.Remote))
	}

	a := &api{
		gw:     gateway.NewLocal(cfg.DataDir, cfg.PDFDir, opts...),
		cache:  render.NewCache(),
		pdfDir: cfg.PDFDir,
		log:    log,
	}
	defer a.cache.Close()

	mux := http.NewServeMux()
	a.routes(mux)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           requestLogger(log)(mux),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Str("data", cfg.DataDir).Str("pdfs", cfg.PDFDir).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-quit:
	}

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
