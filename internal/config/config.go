// Package config loads the server's environment-variable configuration
// surface (spec.md §6). Fields are read through viper's AutomaticEnv
// binding rather than a flat sequence of os.Getenv calls, because the
// surface here (storage, two bus backends, two webhook dispatchers) is
// wide enough to warrant one structured loader.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is every environment variable the process recognizes.
type Config struct {
	DatabaseURL string
	MaxConns    int
	LogLevel    string
	APIAddr     string

	IngestBackend string // "kafka" or "rabbitmq"

	KafkaBrokers       []string
	KafkaTopics        []string
	KafkaGroup         string
	KafkaUsername      string
	KafkaPassword      string
	KafkaSecurityProto string
	KafkaSASLMechanism string

	RabbitMQAddr      string
	RabbitMQQueue     string
	RabbitMQConsumers int

	OpsGenieAPIURL string
	OpsGenieAPIKey string
	SlackWebhook   string
}

// Load reads the recognized environment variables into a Config, applying
// the documented defaults. DATABASE_URL is the only variable whose absence
// is a fatal startup error (exit 1 per spec.md §6).
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("MAX_CONNECTIONS", 10)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("API_ADDR", ":8080")
	v.SetDefault("INGEST_BACKEND", "kafka")
	v.SetDefault("NUM_SCOUTER_RABBITMQ_CONSUMERS", 1)

	dbURL := v.GetString("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("config: DATABASE_URL must be set")
	}

	maxConns := v.GetInt("MAX_CONNECTIONS")
	if maxConns <= 0 {
		return nil, fmt.Errorf("config: MAX_CONNECTIONS must be a positive integer, got %q", v.GetString("MAX_CONNECTIONS"))
	}

	cfg := &Config{
		DatabaseURL:   dbURL,
		MaxConns:      maxConns,
		LogLevel:      v.GetString("LOG_LEVEL"),
		APIAddr:       v.GetString("API_ADDR"),
		IngestBackend: strings.ToLower(v.GetString("INGEST_BACKEND")),

		KafkaBrokers:       splitCSV(v.GetString("KAFKA_BROKERS")),
		KafkaTopics:        splitCSV(v.GetString("KAFKA_TOPICS")),
		KafkaGroup:         v.GetString("KAFKA_GROUP"),
		KafkaUsername:      v.GetString("KAFKA_USERNAME"),
		KafkaPassword:      v.GetString("KAFKA_PASSWORD"),
		KafkaSecurityProto: v.GetString("KAFKA_SECURITY_PROTOCOL"),
		KafkaSASLMechanism: v.GetString("KAFKA_SASL_MECHANISM"),

		RabbitMQAddr:      v.GetString("RABBITMQ_ADDR"),
		RabbitMQQueue:     v.GetString("RABBITMQ_QUEUE"),
		RabbitMQConsumers: v.GetInt("NUM_SCOUTER_RABBITMQ_CONSUMERS"),

		OpsGenieAPIURL: v.GetString("OPSGENIE_API_URL"),
		OpsGenieAPIKey: v.GetString("OPSGENIE_API_KEY"),
		SlackWebhook:   v.GetString("SLACK_WEBHOOK_URL"),
	}

	if cfg.IngestBackend != "kafka" && cfg.IngestBackend != "rabbitmq" {
		return nil, fmt.Errorf("config: INGEST_BACKEND must be %q or %q, got %q", "kafka", "rabbitmq", cfg.IngestBackend)
	}

	// SASL is all-or-nothing per spec.md §6.
	saslFields := []string{cfg.KafkaUsername, cfg.KafkaPassword, cfg.KafkaSecurityProto, cfg.KafkaSASLMechanism}
	anySet, allSet := false, true
	for _, f := range saslFields {
		if f != "" {
			anySet = true
		} else {
			allSet = false
		}
	}
	if anySet && !allSet {
		return nil, fmt.Errorf("config: KAFKA_USERNAME/PASSWORD/SECURITY_PROTOCOL/SASL_MECHANISM must be set together or not at all")
	}

	return cfg, nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
