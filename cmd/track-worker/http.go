package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/BearBump/ShipTrack/config"
	"github.com/BearBump/ShipTrack/internal/services/poller"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

type workerHTTPOpts struct {
	httpAddr    string
	swaggerPath string
	onListen    func(httpAddr string)

	poller *poller.Poller
	cfg    *config.Config
}

// pollSettingsView отдаётся на /config: без ключей и адресов.
type pollSettingsView struct {
	PollIntervalSeconds int    `json:"pollIntervalSeconds"`
	PageSize            int    `json:"pageSize"`
	MaxPages            int    `json:"maxPages"`
	Concurrency         int    `json:"concurrency"`
	LookbackHours       int    `json:"lookbackHours"`
	RateLimitPerMinute  int    `json:"rateLimitPerMinute"`
	RetrackExpired      bool   `json:"retrackExpired"`
	Topic               string `json:"topic"`
}

func runWorkerHTTPServer(ctx context.Context, opts workerHTTPOpts) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8082"
	}
	if opts.swaggerPath == "" {
		return errors.New("worker swagger path is required")
	}
	if _, err := os.Stat(opts.swaggerPath); err != nil {
		return errors.Wrapf(err, "worker swagger file %s", opts.swaggerPath)
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return errors.Wrap(err, "listen")
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	srv := &http.Server{Handler: newWorkerRouter(opts), ReadHeaderTimeout: 10 * time.Second}
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	err = srv.Serve(lis)
	if errors.Is(err, http.ErrServerClosed) {
		<-stopped
		return nil
	}
	return err
}

func newWorkerRouter(opts workerHTTPOpts) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(requirePoller(opts.poller))
		// готов после первого полного цикла опроса
		r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
			if opts.poller.Stats().LastCycleAt == nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		})
		r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, opts.poller.Stats())
		})
		r.Post("/trigger", func(w http.ResponseWriter, _ *http.Request) {
			opts.poller.Trigger()
			writeJSON(w, http.StatusOK, map[string]bool{"triggered": true})
		})
	})

	r.Get("/config", func(w http.ResponseWriter, _ *http.Request) {
		if opts.cfg == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "config not wired"})
			return
		}
		writeJSON(w, http.StatusOK, viewPollSettings(opts.cfg))
	})

	mountSwagger(r, opts.swaggerPath)
	return r
}

func requirePoller(p *poller.Poller) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p == nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "poller not wired"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func viewPollSettings(cfg *config.Config) pollSettingsView {
	st := cfg.ShipTrack
	return pollSettingsView{
		PollIntervalSeconds: st.WorkerPollIntervalSeconds,
		PageSize:            st.WorkerPageSize,
		MaxPages:            st.WorkerMaxPages,
		Concurrency:         st.WorkerConcurrency,
		LookbackHours:       st.WorkerLookbackHours,
		RateLimitPerMinute:  st.WorkerRateLimitPerMinute,
		RetrackExpired:      st.WorkerRetrackExpired,
		Topic:               cfg.Kafka.TrackingUpdatedTopicName,
	}
}

// mountSwagger: no-store + cachebuster по mtime файла, иначе swagger-ui
// показывает старую схему после деплоя.
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
