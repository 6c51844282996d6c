package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BearBump/ShipTrack/config"
	"github.com/BearBump/ShipTrack/internal/integrations/aftership"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/BearBump/ShipTrack/internal/services/poller"
	"github.com/BearBump/ShipTrack/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type staticSettings struct{}

func (staticSettings) Load(context.Context) (models.Settings, error) {
	return models.Settings{APIKey: models.PlaceholderAPIKey}, nil
}

type noopProducer struct{}

func (noopProducer) PublishJSON(ctx context.Context, topic, key string, v any) error { return nil }

func testFactories(closed *bool) workerFactories {
	return workerFactories{
		newSettings: func(ctx context.Context, cfg *config.Config) (poller.SettingsProvider, func(), error) {
			return staticSettings{}, func() { *closed = true }, nil
		},
		newProducer:    func(*config.Config) poller.Producer { return noopProducer{} },
		newRateLimiter: func(*config.Config) poller.RateLimiter { return nil },
		newClients: func(*config.Config, aftership.Observer) poller.ClientFactory {
			return func(string) poller.API { return nil }
		},
		newMetrics: func() *telemetry.Metrics { return telemetry.NewMetrics(prometheus.NewRegistry()) },
	}
}

func TestDefaultWorkerFactories_NonNil(t *testing.T) {
	f := defaultWorkerFactories()
	cfg := &config.Config{
		Kafka: config.KafkaConfig{Host: "localhost", Port: 9092},
		Redis: config.RedisConfig{Host: "localhost", Port: 6379},
	}
	require.NotNil(t, f.newProducer(cfg))
	require.NotNil(t, f.newRateLimiter(cfg))

	clients := f.newClients(cfg, nil)
	_, ok := clients("key").(*aftership.Connection)
	require.True(t, ok)
}

func TestPollerSettings(t *testing.T) {
	cfg := &config.Config{ShipTrack: config.ShipTrackConfig{
		WorkerPollIntervalSeconds: 60,
		WorkerPageSize:            50,
		WorkerLookbackHours:       48,
		WorkerRetrackExpired:      true,
	}}
	s := pollerSettings(cfg)
	require.Equal(t, time.Minute, s.PollInterval)
	require.Equal(t, 50, s.PageSize)
	require.Equal(t, 48*time.Hour, s.Lookback)
	require.True(t, s.RetrackExpired)
}

func TestRunTrackWorker_ContextCanceled(t *testing.T) {
	closed := false
	cfg := &config.Config{ShipTrack: config.ShipTrackConfig{WorkerPollIntervalSeconds: 1}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunTrackWorker(ctx, cfg, testFactories(&closed), nil)
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, closed)
}

func TestWorkerRouter(t *testing.T) {
	sw := filepath.Join(t.TempDir(), "swagger.json")
	require.NoError(t, os.WriteFile(sw, []byte(`{"swagger":"2.0"}`), 0o600))

	cfg := &config.Config{
		Kafka:     config.KafkaConfig{TrackingUpdatedTopicName: "aftership.tracking.updated"},
		ShipTrack: config.ShipTrackConfig{WorkerPageSize: 25},
	}
	p := poller.New(nil, staticSettings{}, noopProducer{}, nil, nil)
	srv := httptest.NewServer(newWorkerRouter(workerHTTPOpts{swaggerPath: sw, poller: p, cfg: cfg}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/trigger", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	var st poller.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	require.NotNil(t, st.LastTriggerAt)

	resp, err = http.Get(srv.URL + "/config")
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	require.Equal(t, 25.0, out["pageSize"])
	require.NotContains(t, out, "apiKey")

	resp, err = http.Get(srv.URL + "/swagger.json")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRunWorkerHTTPServer_Shutdown(t *testing.T) {
	sw := filepath.Join(t.TempDir(), "swagger.json")
	require.NoError(t, os.WriteFile(sw, []byte(`{}`), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	addrCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr:    "127.0.0.1:0",
			swaggerPath: sw,
			onListen:    func(a string) { addrCh <- a },
		})
	}()

	resp, err := http.Get("http://" + <-addrCh + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	require.NoError(t, <-errCh)
}

func TestWorkerRouter_ReadyAfterFirstCycle(t *testing.T) {
	sw := filepath.Join(t.TempDir(), "swagger.json")
	require.NoError(t, os.WriteFile(sw, []byte(`{}`), 0o600))

	p := poller.New(nil, staticSettings{}, noopProducer{}, nil, nil)
	srv := httptest.NewServer(newWorkerRouter(workerHTTPOpts{swaggerPath: sw, poller: p}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestWorkerRouter_NoPoller(t *testing.T) {
	srv := httptest.NewServer(newWorkerRouter(workerHTTPOpts{swaggerPath: "missing.json"}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/trigger", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
