package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
)

// KafkaConfig is the subset of internal/config.Config the Kafka consumer
// needs.
type KafkaConfig struct {
	Brokers       []string
	Topics        []string
	Group         string
	Username      string
	Password      string
	SecurityProto string
	SASLMechanism string
}

// RunKafkaConsumer joins cfg.Group and consumes cfg.Topics until ctx is
// cancelled, handing every message to HandleMessage. Messages are only
// marked consumed on Ack; a Redeliver outcome leaves the message unmarked
// and stops consuming that partition's claim, so the next consumer-group
// session (after a rebalance or restart) redelivers it
// (spec.md §4.3a at-least-once contract).
func RunKafkaConsumer(ctx context.Context, cfg KafkaConfig, store Store, log *slog.Logger) error {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Consumer.Return.Errors = true
	saramaCfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	if cfg.Username != "" {
		saramaCfg.Net.SASL.Enable = true
		saramaCfg.Net.SASL.User = cfg.Username
		saramaCfg.Net.SASL.Password = cfg.Password
		saramaCfg.Net.SASL.Handshake = true
		if cfg.SecurityProto == "SASL_SSL" {
			saramaCfg.Net.TLS.Enable = true
		}
		switch cfg.SASLMechanism {
		case "SCRAM-SHA-256":
			saramaCfg.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
		case "SCRAM-SHA-512":
			saramaCfg.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA512
		default:
			saramaCfg.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		}
	}

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.Group, saramaCfg)
	if err != nil {
		return fmt.Errorf("ingest: kafka: new consumer group: %w", err)
	}
	defer group.Close()

	handler := &kafkaHandler{store: store, log: log}

	go func() {
		for err := range group.Errors() {
			log.Error("kafka consumer group error", "error", err)
		}
	}()

	for {
		if err := group.Consume(ctx, cfg.Topics, handler); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("ingest: kafka: consume: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

type kafkaHandler struct {
	store Store
	log   *slog.Logger
}

func (h *kafkaHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *kafkaHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *kafkaHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			outcome := HandleMessage(sess.Context(), h.store, h.log, msg.Value)
			if outcome != Ack {
				// Stop this claim so no later offset gets marked past the
				// failed message.
				return nil
			}
			sess.MarkMessage(msg, "")
		case <-sess.Context().Done():
			return nil
		}
	}
}
