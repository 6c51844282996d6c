package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	shipmentsapi "github.com/BearBump/ShipTrack/internal/api/shipments_api"
	"github.com/BearBump/ShipTrack/internal/broker/kafka"
	"github.com/BearBump/ShipTrack/internal/broker/messages"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type trackAPIOpts struct {
	httpAddr    string
	swaggerPath string

	onListen func(httpAddr string)
}

type kafkaConsumer interface {
	Run(ctx context.Context, handler kafka.Handler) error
}

type shipmentHandler interface {
	Handle(ctx context.Context, msg messages.ShipmentChanged) error
}

type updateApplier interface {
	ApplyTrackingUpdate(ctx context.Context, msg messages.TrackingUpdated) error
}

type trackAPIDeps struct {
	api          *shipmentsapi.ShipmentsAPI
	registration shipmentHandler
	tracker      updateApplier

	shipmentEvents  kafkaConsumer
	trackingUpdates kafkaConsumer

	metrics http.Handler
	ready   func(ctx context.Context) error
	log     *zap.Logger
}

func runTrackAPI(ctx context.Context, opts trackAPIOpts, deps trackAPIDeps) error {
	if opts.swaggerPath == "" {
		return errors.New("swagger path is required")
	}
	if _, err := os.Stat(opts.swaggerPath); err != nil {
		return errors.Wrapf(err, "swagger file %s", opts.swaggerPath)
	}
	if deps.log == nil {
		deps.log = zap.NewNop()
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return errors.Wrap(err, "listen")
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	errCh := make(chan error, 3)
	go func() {
		errCh <- runHTTPServer(ctx, lis, newRouter(opts, deps), deps.log)
	}()
	if deps.shipmentEvents != nil {
		go func() {
			errCh <- deps.shipmentEvents.Run(ctx, shipmentEventsHandler(deps.registration, deps.log))
		}()
	}
	if deps.trackingUpdates != nil {
		go func() {
			errCh <- deps.trackingUpdates.Run(ctx, trackingUpdatesHandler(deps.tracker, deps.log))
		}()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if err == nil && ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
}

func newRouter(opts trackAPIOpts, deps trackAPIDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if deps.ready != nil {
			if err := deps.ready(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	if deps.metrics != nil {
		r.Handle("/metrics", deps.metrics)
	}
	mountSwagger(r, opts.swaggerPath)

	if deps.api != nil {
		deps.api.Routes(r)
	}
	return otelhttp.NewHandler(r, "track-api")
}

func runHTTPServer(ctx context.Context, lis net.Listener, h http.Handler, log *zap.Logger) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("HTTP server listening", zap.String("addr", lis.Addr().String()))
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// shipmentEventsHandler пропускает нечитаемые сообщения; ошибки регистрации
// возвращает, чтобы сообщение осталось незакоммиченным.
func shipmentEventsHandler(h shipmentHandler, log *zap.Logger) kafka.Handler {
	return func(ctx context.Context, key, value []byte) error {
		var m messages.ShipmentChanged
		if err := json.Unmarshal(value, &m); err != nil {
			log.Warn("skip malformed shipment event", zap.ByteString("key", key), zap.Error(err))
			return nil
		}
		return h.Handle(ctx, m)
	}
}

func trackingUpdatesHandler(a updateApplier, log *zap.Logger) kafka.Handler {
	return func(ctx context.Context, key, value []byte) error {
		var m messages.TrackingUpdated
		if err := json.Unmarshal(value, &m); err != nil {
			log.Warn("skip malformed tracking update", zap.ByteString("key", key), zap.Error(err))
			return nil
		}
		if err := a.ApplyTrackingUpdate(ctx, m); err != nil {
			// кэш не критичен, следующий опрос воркера его обновит
			log.Warn("apply tracking update", zap.String("event_id", m.EventID), zap.Error(err))
		}
		return nil
	}
}

// mountSwagger: no-store + cachebuster, иначе swagger-ui показывает старую схему.
func mountSwagger(r chi.Router, path string) {
	r.Get("/swagger.json", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		http.ServeFile(w, req, path)
	})
	specURL := "/swagger.json"
	if fi, err := os.Stat(path); err == nil {
		specURL += "?v=" + strconv.FormatInt(fi.ModTime().Unix(), 10)
	}
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(specURL)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
