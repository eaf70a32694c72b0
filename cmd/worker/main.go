package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"content-forge/bootstrap"
	"content-forge/config"
	"content-forge/eventbus"
)

func main() {
	config.InitApp()
	cfg := config.GetConfig()
	config.InitLogger(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repos, err := bootstrap.OpenRepositories(ctx)
	if err != nil {
		config.Logger.Errorf("failed to initialize repositories: %v", err)
		os.Exit(1)
	}
	defer bootstrap.Shutdown()

	orch, err := bootstrap.Orchestrator(ctx, cfg, repos)
	if err != nil {
		config.Logger.Errorf("failed to build pipeline: %v", err)
		os.Exit(1)
	}

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

	handlers := NewEventHandlers(orch, repos.Runs)
	groupID := eventbus.GroupID(cfg.Kafka, "worker")

	done := make(chan error, 1)
	go func() {
		done <- bus.Subscribe(ctx, groupID, eventbus.TopicGenerationEvents, handlers.Handle)
	}()
	config.Logger.Info("starting generation worker with eventbus...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		config.Logger.Info("received shutdown signal, shutting down worker...")
		cancel()
		<-done
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			config.Logger.Errorf("eventbus subscriber stopped: %v", err)
		}
	}
	config.Logger.Info("generation worker stopped")
}
