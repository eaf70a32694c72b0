package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"content-forge/bootstrap"
	"content-forge/cmd/api/router"
	"content-forge/cmd/api/services"
	"content-forge/config"
	"content-forge/eventbus"
	"content-forge/events"
)

func main() {
	config.InitApp()
	cfg := config.GetConfig()
	config.InitLogger(cfg.Logging)
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repos, err := bootstrap.OpenRepositories(ctx)
	if err != nil {
		config.Logger.Errorf("failed to initialize repositories: %v", err)
		os.Exit(1)
	}
	defer bootstrap.Shutdown()

	brokers, err := eventbus.Brokers(cfg.Kafka)
	if err != nil {
		config.Logger.Errorf("invalid kafka config: %v", err)
		os.Exit(1)
	}
	if err := eventbus.EnsureTopics(ctx, brokers, eventbus.TopicGenerationEvents, cfg.Kafka.Partitions); err != nil {
		config.Logger.Errorf("failed to ensure eventbus topics: %v", err)
	}
	bus, err := eventbus.NewKafkaEventBus(brokers)
	if err != nil {
		config.Logger.Errorf("failed to create event bus: %v", err)
		os.Exit(1)
	}
	defer bus.Close()

	dispatcher := events.NewDispatcher(bus, eventbus.TopicGenerationEvents, "api")
	svc := services.NewGenerationService(repos.Contents, repos.Runs, dispatcher)

	opts := router.Options{CORSOrigins: cfg.API.CORSOrigins}
	if cfg.Screenshots.Enabled {
		opts.ScreenshotsDir = cfg.Screenshots.Dir
	}
	srv := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           router.New(svc, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		config.Logger.Infof("api listening on %s", cfg.API.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			config.Logger.Errorf("api server error: %v", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		config.Logger.Errorf("api shutdown error: %v", err)
	}
	config.Logger.Info("api stopped")
}
