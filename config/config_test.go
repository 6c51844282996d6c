package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sample = `
aftership:
  base_url: "https://api.aftership.com/"
  timeout_seconds: 30
  api_key: "MyAfterShipAPIKey"
database:
  host: "localhost"
  port: 5432
  username: "u"
  password: "p"
  name: "db"
kafka:
  host: "localhost"
  port: 9092
redis:
  host: "localhost"
  port: 6379
shiptrack:
  http_addr: ":9090"
  probe_concurrency: 4
  worker_poll_interval_seconds: 300
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sample))
	require.NoError(t, err)
	require.Equal(t, "u", cfg.Database.Username)
	require.Equal(t, "postgres://u:p@localhost:5432/db?sslmode=disable", cfg.Database.ConnString())
	require.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers())
	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.Equal(t, ":9090", cfg.ShipTrack.HTTPAddr)
	require.Equal(t, 4, cfg.ShipTrack.ProbeConcurrency)
	require.Equal(t, "MyAfterShipAPIKey", cfg.AfterShip.APIKey)

	// значения по умолчанию
	require.Equal(t, "shipment.events", cfg.Kafka.ShipmentEventsTopicName)
	require.Equal(t, "aftership.tracking.updated", cfg.Kafka.TrackingUpdatedTopicName)
	require.Equal(t, ":8082", cfg.ShipTrack.WorkerHTTPAddr)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "postgres", cfg.ShipTrack.AttributeStore)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SHIPTRACK_DATABASE_HOST", "pg")
	t.Setenv("SHIPTRACK_AFTERSHIP_API_KEY", "from-env")
	t.Setenv("SHIPTRACK_APP_WORKER_RETRACK_EXPIRED", "true")
	t.Setenv("SHIPTRACK_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(writeConfig(t, sample))
	require.NoError(t, err)
	require.Equal(t, "pg", cfg.Database.Host)
	require.Equal(t, 5432, cfg.Database.Port)
	require.Equal(t, "from-env", cfg.AfterShip.APIKey)
	require.True(t, cfg.ShipTrack.WorkerRetrackExpired)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "database:\n  port: 5432\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid config")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "database: ["))
	require.Error(t, err)
}

func TestSeconds(t *testing.T) {
	require.Equal(t, 90*time.Second, Seconds(90))
	require.Zero(t, Seconds(-1))
}
