package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/ShipTrack/config"
	shipmentsapi "github.com/BearBump/ShipTrack/internal/api/shipments_api"
	"github.com/BearBump/ShipTrack/internal/broker/kafka"
	"github.com/BearBump/ShipTrack/internal/cache/rediscache"
	"github.com/BearBump/ShipTrack/internal/directory"
	"github.com/BearBump/ShipTrack/internal/integrations/aftership"
	"github.com/BearBump/ShipTrack/internal/locale"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/BearBump/ShipTrack/internal/services/registration"
	"github.com/BearBump/ShipTrack/internal/services/settings"
	"github.com/BearBump/ShipTrack/internal/services/tracker"
	"github.com/BearBump/ShipTrack/internal/storage/pgstore"
	"github.com/BearBump/ShipTrack/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type trackAPIApp struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   trackAPIOpts
	deps   trackAPIDeps

	consumers []*kafka.Consumer
	rdb       *redis.Client
	closeDB   func()
	log       *zap.Logger
}

func mustBootstrapTrackAPI() *trackAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		swaggerPath = cfg.ShipTrack.SwaggerPath
	}

	log, err := telemetry.NewLogger(cfg.Log.Level)
	if err != nil {
		panic(err)
	}

	st := mustOpenPostgresWithRetry(cfg.Database.ConnString(), 60*time.Second)
	rdb := rediscache.NewClient(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	conn := aftership.New(cfg.AfterShip.BaseURL, "").
		WithTimeout(config.Seconds(cfg.AfterShip.TimeoutSeconds)).
		WithVersion(cfg.AfterShip.Version).
		WithObserver(metrics)

	settingsSvc := settings.New(st, models.Settings{
		APIKey:                    cfg.AfterShip.APIKey,
		Username:                  cfg.AfterShip.Username,
		AllowCustomerNotification: cfg.AfterShip.AllowCustomerNotification,
	})
	if cfg.ShipTrack.SettingsCacheSeconds > 0 {
		settingsSvc.WithCacheTTL(config.Seconds(cfg.ShipTrack.SettingsCacheSeconds))
	}

	catalog := locale.NewCatalog()
	if cfg.ShipTrack.LocalesPath != "" {
		if err := catalog.LoadFile(cfg.ShipTrack.LocalesPath); err != nil {
			panic(err)
		}
	}

	var attrs registration.AttributeStore = st
	if cfg.ShipTrack.AttributeStore == "redis" {
		attrs = rediscache.NewAttributeStore(rdb)
	}

	planner := tracker.NewPlanner(tracker.PlannerConfig{
		DeliveredTTL:    config.Seconds(cfg.ShipTrack.CacheDeliveredTTLSeconds),
		ExpiredTTL:      config.Seconds(cfg.ShipTrack.CacheExpiredTTLSeconds),
		InTransitMinTTL: config.Seconds(cfg.ShipTrack.CacheInTransitMinTTLSeconds),
		InTransitMaxTTL: config.Seconds(cfg.ShipTrack.CacheInTransitMaxTTLSeconds),
		DefaultTTL:      config.Seconds(cfg.ShipTrack.CacheDefaultTTLSeconds),
	}, nil)

	tr := tracker.New(
		func(key string) tracker.API { return conn.ForKey(key) },
		settingsSvc,
		catalog,
		directory.NewCountries(),
		attrs,
		log.Named("tracker"),
	).
		WithCache(rediscache.New(rdb).WithPrefix("shiptrack:"), planner).
		WithProbing(cfg.ShipTrack.ProbeConcurrency, config.Seconds(cfg.ShipTrack.ProbeTimeoutSeconds)).
		WithRecorder(metrics)

	reg := registration.New(
		func(key string) registration.API { return conn.ForKey(key) },
		settingsSvc,
		attrs,
		log.Named("registration"),
	).WithRecorder(metrics)

	brokers := cfg.Kafka.Brokers()
	group := cfg.ShipTrack.KafkaConsumerGroup
	shipmentEvents := kafka.NewConsumer(brokers, cfg.Kafka.ShipmentEventsTopicName, group, log.Named("kafka"))
	trackingUpdates := kafka.NewConsumer(brokers, cfg.Kafka.TrackingUpdatedTopicName, group+"-cache", log.Named("kafka"))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &trackAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: trackAPIOpts{
			httpAddr:    cfg.ShipTrack.HTTPAddr,
			swaggerPath: swaggerPath,
		},
		deps: trackAPIDeps{
			api:             shipmentsapi.New(tr, settingsSvc, attrs, log.Named("http")),
			registration:    reg,
			tracker:         tr,
			shipmentEvents:  shipmentEvents,
			trackingUpdates: trackingUpdates,
			metrics:         promhttp.Handler(),
			ready:           st.Ping,
			log:             log,
		},
		consumers: []*kafka.Consumer{shipmentEvents, trackingUpdates},
		rdb:       rdb,
		closeDB:   st.Close,
		log:       log,
	}
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgstore.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		st, err := pgstore.New(ctx, connString)
		cancel()
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *trackAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for _, c := range a.consumers {
		_ = c.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func (a *trackAPIApp) Run() error {
	return runTrackAPI(a.ctx, a.opts, a.deps)
}
