package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQConfig is the subset of internal/config.Config the RabbitMQ
// consumer needs.
type RabbitMQConfig struct {
	Addr        string
	Queue       string
	Consumers   int // NUM_SCOUTER_RABBITMQ_CONSUMERS
	PrefetchQOS int
}

// RunRabbitMQConsumer connects once and starts cfg.Consumers parallel
// consumer goroutines on the same channel-per-goroutine pattern, each
// bounded by a Qos prefetch so one slow batch doesn't starve the others
// (spec.md §4.3a). It blocks until ctx is cancelled or a fatal connection
// error occurs.
func RunRabbitMQConsumer(ctx context.Context, cfg RabbitMQConfig, store Store, log *slog.Logger) error {
	conn, err := amqp.Dial(cfg.Addr)
	if err != nil {
		return fmt.Errorf("ingest: rabbitmq: dial: %w", err)
	}
	defer conn.Close()

	consumers := cfg.Consumers
	if consumers <= 0 {
		consumers = 1
	}

	var wg sync.WaitGroup
	errCh := make(chan error, consumers)

	for i := 0; i < consumers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := runOneConsumer(ctx, conn, cfg, store, log); err != nil {
				errCh <- fmt.Errorf("ingest: rabbitmq: consumer %d: %w", id, err)
			}
		}(i)
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

func runOneConsumer(ctx context.Context, conn *amqp.Connection, cfg RabbitMQConfig, store Store, log *slog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	prefetch := cfg.PrefetchQOS
	if prefetch <= 0 {
		prefetch = 10
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			outcome := HandleMessage(ctx, store, log, d.Body)
			if outcome == Ack {
				if err := d.Ack(false); err != nil {
					log.Error("rabbitmq ack failed", "error", err)
				}
			} else {
				if err := d.Nack(false, true); err != nil {
					log.Error("rabbitmq nack failed", "error", err)
				}
			}
		}
	}
}
