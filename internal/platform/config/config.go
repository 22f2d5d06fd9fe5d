// Package config loads service configuration from environment variables so
// main stays lean.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures everything the server needs at startup. Empty optional
// backends (DATABASE_URL, REDIS_URL, KAFKA_BROKERS) select in-memory
// fallbacks, which keeps local development and tests dependency-free.
type Config struct {
	Addr string `env:"TREEHOUSE_ADDR" envDefault:":8080"`

	// DatabaseURL selects the Postgres-backed stores; empty runs in-memory.
	DatabaseURL string `env:"DATABASE_URL"`

	// RedisURL enables the cross-kiosk alert debounce; empty falls back to a
	// per-process debounce.
	RedisURL string `env:"REDIS_URL"`

	// KioskPublicKey is a hex-encoded 32-byte Ed25519 public key. Empty runs
	// the kiosk authenticator in open mode, which is logged loudly and only
	// acceptable in development.
	KioskPublicKey string `env:"KIOSK_PUBLIC_KEY"`

	// SessionSigningKey signs staff session tokens.
	SessionSigningKey string `env:"SESSION_SIGNING_KEY" envDefault:"dev-secret-change-in-production"`

	// KafkaBrokers, when set, mirror audit records onto AuditTopic.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	AuditTopic   string   `env:"AUDIT_TOPIC" envDefault:"treehouse.audit.v1"`

	// TwoDeepAlertWindow bounds board-member alerts to one per window.
	TwoDeepAlertWindow time.Duration `env:"TWO_DEEP_ALERT_WINDOW" envDefault:"5m"`

	// ScanLocation tags raw badge events when the kiosk doesn't send one.
	ScanLocation string `env:"SCAN_LOCATION" envDefault:"Main Entrance"`

	// OtelEndpoint enables OTLP trace export when set.
	OtelEndpoint string `env:"OTEL_ENDPOINT"`
}

// FromEnv builds a Config from environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
