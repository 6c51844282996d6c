package main

import (
	"context"
	"os"
	"time"

	"github.com/BearBump/ShipTrack/config"
	"github.com/BearBump/ShipTrack/internal/broker/kafka"
	"github.com/BearBump/ShipTrack/internal/cache/rediscache"
	"github.com/BearBump/ShipTrack/internal/integrations/aftership"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/BearBump/ShipTrack/internal/services/poller"
	"github.com/BearBump/ShipTrack/internal/services/settings"
	"github.com/BearBump/ShipTrack/internal/storage/pgstore"
	"github.com/BearBump/ShipTrack/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type workerFactories struct {
	newSettings    func(ctx context.Context, cfg *config.Config) (s poller.SettingsProvider, closeFn func(), err error)
	newProducer    func(cfg *config.Config) poller.Producer
	newRateLimiter func(cfg *config.Config) poller.RateLimiter
	newClients     func(cfg *config.Config, obs aftership.Observer) poller.ClientFactory
	newMetrics     func() *telemetry.Metrics
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newSettings: func(ctx context.Context, cfg *config.Config) (poller.SettingsProvider, func(), error) {
			st, err := pgstore.New(ctx, cfg.Database.ConnString())
			if err != nil {
				return nil, nil, err
			}
			svc := settings.New(st, settingsDefaults(cfg))
			if cfg.ShipTrack.SettingsCacheSeconds > 0 {
				svc.WithCacheTTL(config.Seconds(cfg.ShipTrack.SettingsCacheSeconds))
			}
			return svc, st.Close, nil
		},
		newProducer: func(cfg *config.Config) poller.Producer {
			return kafka.NewProducer(cfg.Kafka.Brokers())
		},
		newRateLimiter: func(cfg *config.Config) poller.RateLimiter {
			return rediscache.NewRateLimiter(rediscache.NewClient(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB))
		},
		newClients: func(cfg *config.Config, obs aftership.Observer) poller.ClientFactory {
			conn := aftership.New(cfg.AfterShip.BaseURL, "").
				WithTimeout(config.Seconds(cfg.AfterShip.TimeoutSeconds)).
				WithVersion(cfg.AfterShip.Version).
				WithObserver(obs)
			return func(key string) poller.API { return conn.ForKey(key) }
		},
		newMetrics: func() *telemetry.Metrics {
			return telemetry.NewMetrics(prometheus.DefaultRegisterer)
		},
	}
}

func settingsDefaults(cfg *config.Config) models.Settings {
	return models.Settings{
		APIKey:                    cfg.AfterShip.APIKey,
		Username:                  cfg.AfterShip.Username,
		AllowCustomerNotification: cfg.AfterShip.AllowCustomerNotification,
	}
}

func pollerSettings(cfg *config.Config) poller.Settings {
	return poller.Settings{
		PollInterval:       config.Seconds(cfg.ShipTrack.WorkerPollIntervalSeconds),
		PageSize:           cfg.ShipTrack.WorkerPageSize,
		MaxPages:           cfg.ShipTrack.WorkerMaxPages,
		Concurrency:        cfg.ShipTrack.WorkerConcurrency,
		Lookback:           time.Duration(cfg.ShipTrack.WorkerLookbackHours) * time.Hour,
		RateLimitPerMinute: int64(cfg.ShipTrack.WorkerRateLimitPerMinute),
		RetrackExpired:     cfg.ShipTrack.WorkerRetrackExpired,
	}
}

// RunTrackWorker запускает поллер и HTTP-сервер воркера до отмены ctx.
func RunTrackWorker(ctx context.Context, cfg *config.Config, f workerFactories, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	provider, closeFn, err := f.newSettings(ctx, cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	metrics := f.newMetrics()
	p := poller.New(f.newClients(cfg, metrics), provider, f.newProducer(cfg), f.newRateLimiter(cfg), log.Named("poller")).
		WithSettings(pollerSettings(cfg)).
		WithTopic(cfg.Kafka.TrackingUpdatedTopicName).
		WithRecorder(metrics)

	httpErr := make(chan error, 1)
	swaggerPath := os.Getenv("workerSwaggerPath")
	if swaggerPath == "" {
		swaggerPath = cfg.ShipTrack.WorkerSwaggerPath
	}
	if swaggerPath != "" {
		go func() {
			httpErr <- runWorkerHTTPServer(ctx, workerHTTPOpts{
				httpAddr:    cfg.ShipTrack.WorkerHTTPAddr,
				swaggerPath: swaggerPath,
				poller:      p,
				cfg:         cfg,
			})
		}()
	} else {
		log.Warn("worker swagger path is not set, HTTP server disabled")
	}

	pollErr := make(chan error, 1)
	go func() { pollErr <- p.Run(ctx) }()

	select {
	case err := <-pollErr:
		return err
	case err := <-httpErr:
		if err != nil {
			return err
		}
		return <-pollErr
	}
}
