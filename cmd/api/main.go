package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/harborline/catalog-assistant/internal/adapters/http"
	"github.com/harborline/catalog-assistant/internal/bootstrap"
	"github.com/harborline/catalog-assistant/internal/config"
	"github.com/harborline/catalog-assistant/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	log := logging.NewJSONLogger("catalog-assistant", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(cfg, log)
	if err != nil {
		log.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(app.Chat, app.Searcher, app.Stats, cfg, app.Metrics, log).Handler()
	server := &http.Server{
		Addr:        ":" + cfg.APIPort,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		// WriteTimeout must cover a full SSE stream, so it sits above the
		// request deadline rather than at the usual 60s.
		WriteTimeout: time.Duration(cfg.RequestDeadlineSeconds+30) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("api server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("api shutdown error", "error", err)
	}
}
