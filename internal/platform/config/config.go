package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "idintake/pkg/platform/strings"
)

// Audit sinks selectable through AUDIT_SINK.
const (
	AuditSinkLog      = "log"
	AuditSinkPostgres = "postgres"
	AuditSinkRedis    = "redis"
	AuditSinkKafka    = "kafka"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr      string
	LogLevel  string
	LogFormat string

	Provider    Provider
	Audit       Audit
	Redis       RedisConfig
	Kafka       KafkaConfig
	DatabaseURL string
}

// Provider holds the verification provider endpoint and credentials.
// Missing credentials do not stop the server; each API request reports them.
type Provider struct {
	BaseURL string
	Token   string
	Secret  string
	Timeout time.Duration
}

// Audit selects where submission audit events go.
type Audit struct {
	Sink   string
	Buffer int
}

// RedisConfig configures the redis audit sink.
type RedisConfig struct {
	URL          string
	Stream       string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the kafka audit sink.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

const (
	defaultProviderURL = "https://sandbox.alloy.co"
	defaultTimeout     = 10 * time.Second
)

// FromEnv builds a Server config from environment variables so main stays lean.
// Malformed numeric and duration values fall back to their defaults.
func FromEnv() Server {
	return Server{
		Addr:      envOr("INTAKE_ADDR", ":8080"),
		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "json"),
		Provider: Provider{
			BaseURL: strings.TrimRight(envOr("ALLOY_BASE_URL", defaultProviderURL), "/"),
			Token:   os.Getenv("ALLOY_API_TOKEN"),
			Secret:  os.Getenv("ALLOY_API_SECRET"),
			Timeout: durationOr("ALLOY_TIMEOUT", defaultTimeout),
		},
		Audit: Audit{
			Sink:   strings.ToLower(envOr("AUDIT_SINK", AuditSinkLog)),
			Buffer: intOr("AUDIT_BUFFER", 256),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			Stream:       envOr("REDIS_STREAM", "intake:audit"),
			PoolSize:     intOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: intOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  durationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: pstrings.SplitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("KAFKA_TOPIC", "intake.audit"),
		},
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}
}

// Validate checks that the selected audit sink has what it needs.
func (s Server) Validate() error {
	switch s.Audit.Sink {
	case AuditSinkLog:
	case AuditSinkPostgres:
		if s.DatabaseURL == "" {
			return errors.New("AUDIT_SINK=postgres requires DATABASE_URL")
		}
	case AuditSinkRedis:
		if s.Redis.URL == "" {
			return errors.New("AUDIT_SINK=redis requires REDIS_URL")
		}
	case AuditSinkKafka:
		if len(s.Kafka.Brokers) == 0 {
			return errors.New("AUDIT_SINK=kafka requires KAFKA_BROKERS")
		}
	default:
		return fmt.Errorf("unknown AUDIT_SINK %q", s.Audit.Sink)
	}
	if s.Audit.Buffer < 0 {
		return fmt.Errorf("AUDIT_BUFFER must not be negative, got %d", s.Audit.Buffer)
	}
	return nil
}

// CredentialsConfigured reports whether both provider secrets are present.
func (p Provider) CredentialsConfigured() bool {
	return p.Token != "" && p.Secret != ""
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intOr(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func durationOr(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
