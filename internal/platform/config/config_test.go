package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"INTAKE_ADDR", "ALLOY_BASE_URL", "ALLOY_API_TOKEN", "ALLOY_API_SECRET", "ALLOY_TIMEOUT",
		"AUDIT_SINK", "AUDIT_BUFFER", "KAFKA_BROKERS", "REDIS_URL", "DATABASE_URL",
	} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "https://sandbox.alloy.co", cfg.Provider.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Provider.Timeout)
	assert.False(t, cfg.Provider.CredentialsConfigured())
	assert.Equal(t, AuditSinkLog, cfg.Audit.Sink)
	assert.Equal(t, 256, cfg.Audit.Buffer)
	assert.Empty(t, cfg.Kafka.Brokers)
	require.NoError(t, cfg.Validate())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("INTAKE_ADDR", ":9090")
	t.Setenv("ALLOY_BASE_URL", "http://provider.test/")
	t.Setenv("ALLOY_API_TOKEN", "tok")
	t.Setenv("ALLOY_API_SECRET", "sec")
	t.Setenv("ALLOY_TIMEOUT", "2s")
	t.Setenv("AUDIT_SINK", "KAFKA")
	t.Setenv("KAFKA_BROKERS", " b1:9092, b2:9092 ,b1:9092,")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "http://provider.test", cfg.Provider.BaseURL)
	assert.True(t, cfg.Provider.CredentialsConfigured())
	assert.Equal(t, 2*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, AuditSinkKafka, cfg.Audit.Sink)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.Kafka.Brokers)
	require.NoError(t, cfg.Validate())
}

func TestFromEnvIgnoresMalformedValues(t *testing.T) {
	t.Setenv("ALLOY_TIMEOUT", "soon")
	t.Setenv("AUDIT_BUFFER", "many")

	cfg := FromEnv()

	assert.Equal(t, 10*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 256, cfg.Audit.Buffer)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Server
		wantErr string
	}{
		{name: "postgres needs a database url", cfg: Server{Audit: Audit{Sink: AuditSinkPostgres}}, wantErr: "DATABASE_URL"},
		{name: "redis needs a url", cfg: Server{Audit: Audit{Sink: AuditSinkRedis}}, wantErr: "REDIS_URL"},
		{name: "kafka needs brokers", cfg: Server{Audit: Audit{Sink: AuditSinkKafka}}, wantErr: "KAFKA_BROKERS"},
		{name: "unknown sink", cfg: Server{Audit: Audit{Sink: "s3"}}, wantErr: "unknown AUDIT_SINK"},
		{name: "negative buffer", cfg: Server{Audit: Audit{Sink: AuditSinkLog, Buffer: -1}}, wantErr: "AUDIT_BUFFER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
