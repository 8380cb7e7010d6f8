// stemsep/cmd/stemsep-web/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stemsep/config"
	"stemsep/demucs"
	"stemsep/job"
	"stemsep/web"

	"github.com/apex/log"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	// 2. The uploads and results trees must exist before the first job
	for _, dir := range []string{cfg.UploadsDir, cfg.ResultsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.WithError(err).Fatalf("Failed to create directory %s", dir)
		}
	}

	// 3. Initialize the runner first so a missing tool fails startup
	runner, err := demucs.NewRunner(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize separation runner")
	}

	processor := job.NewProcessor(cfg, runner)

	// 4. Set up router and server
	router := web.SetupRouter(processor, cfg)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// 5. Start background services and the HTTP server
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	processor.StartJanitor(ctx)

	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed to listen")
		}
	}()

	// 6. Wait for interrupt signal for graceful shutdown
	<-ctx.Done()

	stop()
	log.Info("Shutting down gracefully, press Ctrl+C again to force")

	// In-flight separations get 5 seconds to finish their responses
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server exiting")
}
