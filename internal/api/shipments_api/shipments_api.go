package shipments_api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/BearBump/ShipTrack/internal/locale"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Tracker interface {
	GetShipmentEvents(ctx context.Context, shipmentID int64, number string) []models.ShipmentStatusEvent
	GetURL(ctx context.Context, number string) string
}

type SettingsService interface {
	Load(ctx context.Context) (models.Settings, error)
	Save(ctx context.Context, v models.Settings) error
}

type AttributeReader interface {
	GetAttributes(ctx context.Context, keyGroup string, entityID int64) (models.Attributes, error)
}

type ShipmentsAPI struct {
	tracker  Tracker
	settings SettingsService
	attrs    AttributeReader
	log      *zap.Logger
}

func New(tracker Tracker, settings SettingsService, attrs AttributeReader, log *zap.Logger) *ShipmentsAPI {
	if log == nil {
		log = zap.NewNop()
	}
	return &ShipmentsAPI{tracker: tracker, settings: settings, attrs: attrs, log: log}
}

type EventsResponse struct {
	TrackingNumber string                       `json:"trackingNumber"`
	Events         []models.ShipmentStatusEvent `json:"events"`
}

type URLResponse struct {
	TrackingNumber string `json:"trackingNumber"`
	URL            string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Routes mounts the /v1 endpoints on r.
func (a *ShipmentsAPI) Routes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Use(languageFromQuery)
		r.Get("/trackings/{number}/events", a.trackingEvents)
		r.Get("/trackings/{number}/url", a.trackingURL)
		r.Get("/shipments/{id}/events", a.shipmentEvents)
		r.Get("/settings", a.getSettings)
		r.Put("/settings", a.putSettings)
	})
}

// languageFromQuery reads ?languageId=N into the request context.
func languageFromQuery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if v := r.URL.Query().Get("languageId"); v != "" {
			if id, err := strconv.Atoi(v); err == nil && id > 0 {
				r = r.WithContext(locale.WithLanguage(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (a *ShipmentsAPI) trackingEvents(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	writeJSON(w, http.StatusOK, EventsResponse{
		TrackingNumber: number,
		Events:         a.tracker.GetShipmentEvents(r.Context(), 0, number),
	})
}

func (a *ShipmentsAPI) trackingURL(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	writeJSON(w, http.StatusOK, URLResponse{TrackingNumber: number, URL: a.tracker.GetURL(r.Context(), number)})
}

func (a *ShipmentsAPI) shipmentEvents(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid shipment id"})
		return
	}

	number := r.URL.Query().Get("trackingNumber")
	if number == "" && a.attrs != nil {
		attrs, err := a.attrs.GetAttributes(r.Context(), models.KeyGroupShipment, id)
		if err != nil {
			a.log.Error("get shipment attributes", zap.Int64("shipment_id", id), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "attributes unavailable"})
			return
		}
		number = attrs.TrackingNumber()
	}
	if number == "" {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "shipment has no tracking number"})
		return
	}

	writeJSON(w, http.StatusOK, EventsResponse{
		TrackingNumber: number,
		Events:         a.tracker.GetShipmentEvents(r.Context(), id, number),
	})
}

func (a *ShipmentsAPI) getSettings(w http.ResponseWriter, r *http.Request) {
	s, err := a.settings.Load(r.Context())
	if err != nil {
		a.log.Error("load settings", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "settings unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, s.Redacted())
}

func (a *ShipmentsAPI) putSettings(w http.ResponseWriter, r *http.Request) {
	var in models.Settings
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}
	// the admin form receives the key as ****1234 and sends it back unchanged
	if in.KeepsStoredKey() {
		cur, err := a.settings.Load(r.Context())
		if err != nil {
			a.log.Error("load settings", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "settings unavailable"})
			return
		}
		in.APIKey = cur.APIKey
	}
	if err := a.settings.Save(r.Context(), in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: verrs.Error()})
			return
		}
		a.log.Error("save settings", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "settings not saved"})
		return
	}
	writeJSON(w, http.StatusOK, in.Redacted())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
