package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, []string{"*"}, c.Server.CORS.AllowOrigins)
	assert.Equal(t, 100, c.Cursor.MaxSessions)
	assert.Equal(t, StoreMemory, c.Cursor.Store)
	assert.Equal(t, 5*time.Minute, c.Cache.TTL)
	assert.Equal(t, -1, c.Kafka.RequiredAcks)
	assert.Equal(t, "riskscore.verdicts", c.Kafka.VerdictTopic)
	assert.Equal(t, 3*time.Second, c.Model.Timeout)
	require.NoError(t, c.Validate())
}

func TestParseKeepsExplicitValues(t *testing.T) {
	c, err := Parse([]byte(`
environment: production
server:
  port: 9090
  cors:
    allow_origins: ["https://app.example.com"]
cursor:
  max_sessions: 5
  store: clickhouse
`))
	require.NoError(t, err)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, []string{"https://app.example.com"}, c.Server.CORS.AllowOrigins)
	assert.Equal(t, 5, c.Cursor.MaxSessions)
	require.NoError(t, c.Validate())
}

func TestApplyEnv(t *testing.T) {
	c, err := Parse(nil)
	require.NoError(t, err)

	env := map[string]string{
		"RISK_ENV":          "staging",
		"RISK_PORT":         "7000",
		"MODEL_SERVICE_URL": "http://models:8000",
		"ARTIFACT_PATH":     "/etc/risk/artifacts.yaml",
		"KAFKA_BROKERS":     "k1:9092, k2:9092",
		"REDIS_ADDR":        "redis:6379",
		"CLICKHOUSE_HOST":   "ch",
	}
	c.ApplyEnv(func(k string) (string, bool) { v, ok := env[k]; return v, ok })

	assert.Equal(t, "staging", c.Environment)
	assert.Equal(t, 7000, c.Server.Port)
	assert.Equal(t, "http://models:8000", c.Model.ServiceURL)
	assert.Equal(t, "/etc/risk/artifacts.yaml", c.Artifacts.Path)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, "redis:6379", c.Cache.Redis.Addr)
	assert.Equal(t, "ch", c.ClickHouse.Host)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"bad port":             func(c *Config) { c.Server.Port = 70000 },
		"unknown store":        func(c *Config) { c.Cursor.Store = "postgres" },
		"kafka without broker": func(c *Config) { c.Kafka.Enabled = true },
		"consumer w/o kafka":   func(c *Config) { c.Kafka.Consumer.Enabled = true },
		"zero sessions":        func(c *Config) { c.Cursor.MaxSessions = -1 },
		"collector w/o kafka":  func(c *Config) { c.Logging.Collector.Enabled = true },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c, err := Parse(nil)
			require.NoError(t, err)
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoadWithEnvMissingFile(t *testing.T) {
	_, err := LoadWithEnv(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadWithEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: test\n"), 0o600))
	t.Setenv("RISK_PORT", "8181")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, 8181, c.Server.Port)
}
