// Command server runs the model-monitoring process: ingest workers, the
// drift executor, and the HTTP query API, all sharing one Postgres pool
// (spec.md §6).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/demml/scouter-server/internal/api"
	"github.com/demml/scouter-server/internal/config"
	"github.com/demml/scouter-server/internal/executor"
	"github.com/demml/scouter-server/internal/ingest"
	"github.com/demml/scouter-server/internal/obslog"
	"github.com/demml/scouter-server/internal/repository"
)

// numExecutors is how many concurrent Drift Executor loops run against the
// shared pool. Row-level locking in repository.ClaimDueProfile is what
// makes running more than one safe (spec.md §3.5, §8 invariant 6).
const numExecutors = 2

func main() {
	if err := run(); err != nil {
		slog.Error("fatal startup error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := obslog.New(cfg.LogLevel, "scouter-server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.NewRepository(ctx, cfg.DatabaseURL, cfg.MaxConns)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer repo.Close()

	if err := repo.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	var wg sync.WaitGroup

	for i := 0; i < numExecutors; i++ {
		exec := executor.New(repo, log.With("worker", i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			exec.Run(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		runIngest(ctx, cfg, repo, log)
	}()

	server := api.New(repo, log, cfg.APIAddr)
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("serving HTTP API", "addr", cfg.APIAddr)
		if err := server.ListenAndServe(); err != nil && ctx.Err() == nil {
			log.Error("http server stopped unexpectedly", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown error", "error", err)
	}

	wg.Wait()
	return nil
}

func runIngest(ctx context.Context, cfg *config.Config, repo *repository.Repository, log *slog.Logger) {
	switch cfg.IngestBackend {
	case "kafka":
		err := ingest.RunKafkaConsumer(ctx, ingest.KafkaConfig{
			Brokers:       cfg.KafkaBrokers,
			Topics:        cfg.KafkaTopics,
			Group:         cfg.KafkaGroup,
			Username:      cfg.KafkaUsername,
			Password:      cfg.KafkaPassword,
			SecurityProto: cfg.KafkaSecurityProto,
			SASLMechanism: cfg.KafkaSASLMechanism,
		}, repo, log.With("ingest", "kafka"))
		if err != nil && ctx.Err() == nil {
			log.Error("kafka consumer stopped unexpectedly", "error", err)
		}
	case "rabbitmq":
		err := ingest.RunRabbitMQConsumer(ctx, ingest.RabbitMQConfig{
			Addr:      cfg.RabbitMQAddr,
			Queue:     cfg.RabbitMQQueue,
			Consumers: cfg.RabbitMQConsumers,
		}, repo, log.With("ingest", "rabbitmq"))
		if err != nil && ctx.Err() == nil {
			log.Error("rabbitmq consumer stopped unexpectedly", "error", err)
		}
	}
}
