package fakeapi

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BearBump/ShipTrack/internal/integrations/aftership"
	"github.com/go-chi/chi/v5"
)

// Server: in-memory эмулятор AfterShip v4 для локального запуска и тестов.
// Чекпоинты детерминированы по (slug, number): часть треков сразу Delivered.
type Server struct {
	apiKey   string
	couriers []aftership.Courier
	now      func() time.Time

	mu        sync.Mutex
	seq       int
	trackings map[string]*aftership.Tracking
}

func New(apiKey string) *Server {
	return &Server{
		apiKey: apiKey,
		couriers: []aftership.Courier{
			{Slug: "dhl", Name: "DHL", WebURL: "http://www.dhl.com/", RequiredFields: []string{}},
			{Slug: "ups", Name: "UPS", WebURL: "https://www.ups.com", RequiredFields: []string{}},
		},
		now:       func() time.Time { return time.Now().UTC() },
		trackings: map[string]*aftership.Tracking{},
	}
}

// WithCouriers заменяет курьеров для detect и справочников.
func (s *Server) WithCouriers(cs ...aftership.Courier) *Server {
	s.couriers = cs
	return s
}

func (s *Server) WithClock(now func() time.Time) *Server {
	if now != nil {
		s.now = now
	}
	return s
}

// Seed сохраняет t как есть (вместе с чекпоинтами) и возвращает копию.
func (s *Server) Seed(t aftership.Tracking) *aftership.Tracking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = s.nextID()
	}
	if t.Slug == "" && len(s.couriers) > 0 {
		t.Slug = s.couriers[0].Slug
	}
	stored := t
	s.trackings[stored.ID] = &stored
	return &stored
}

// Len возвращает число сохранённых треков.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trackings)
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.authorize)

	r.Route("/v4", func(r chi.Router) {
		r.Post("/trackings", s.create)
		r.Get("/trackings", s.list)

		// {key}: id трека, либо slug, если дальше идёт {number}.
		r.Get("/trackings/{key}", s.withTracking(s.get))
		r.Put("/trackings/{key}", s.withTracking(s.update))
		r.Delete("/trackings/{key}", s.withTracking(s.remove))
		r.Post("/trackings/{key}/retrack", s.withTracking(s.retrack))

		r.Get("/trackings/{key}/{number}", s.withTracking(s.get))
		r.Put("/trackings/{key}/{number}", s.withTracking(s.update))
		r.Delete("/trackings/{key}/{number}", s.withTracking(s.remove))
		r.Post("/trackings/{key}/{number}/retrack", s.withTracking(s.retrack))

		r.Get("/last_checkpoint/{key}", s.withTracking(s.lastCheckpoint))
		r.Get("/last_checkpoint/{key}/{number}", s.withTracking(s.lastCheckpoint))

		r.Post("/couriers/detect", s.detect)
		r.Get("/couriers", s.listCouriers)
		r.Get("/couriers/all", s.listCouriers)
	})
	return r
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get("aftership-api-key") != s.apiKey {
			writeMeta(w, http.StatusUnauthorized, 401, "Unauthorized", "Invalid API key.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type trackingHandler func(w http.ResponseWriter, r *http.Request, t *aftership.Tracking)

// withTracking ищет трек по id или по slug и номеру; если нет, отвечает 4004.
func (s *Server) withTracking(h trackingHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		var t *aftership.Tracking
		if number := param(r, "number"); number != "" {
			t = s.findLocked(param(r, "key"), number)
		} else {
			t = s.trackings[param(r, "key")]
		}
		if t == nil {
			writeMeta(w, http.StatusNotFound, 4004, "NotFound", "Tracking does not exist.")
			return
		}
		h(w, r, t)
	}
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tracking json.RawMessage `json:"tracking"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Tracking) == 0 {
		writeMeta(w, http.StatusBadRequest, 4001, "BadRequest", "Invalid JSON data.")
		return
	}
	in, err := aftership.ParseTracking(req.Tracking)
	if err != nil || in.TrackingNumber == "" {
		writeMeta(w, http.StatusBadRequest, 4005, "BadRequest", "The value of `tracking_number` is invalid.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if in.Slug == "" && len(s.couriers) > 0 {
		in.Slug = s.couriers[0].Slug
	}
	if s.findLocked(in.Slug, in.TrackingNumber) != nil {
		writeMeta(w, http.StatusBadRequest, 4003, "BadRequest", "Tracking already exists.")
		return
	}

	now := s.now()
	in.ID = s.nextID()
	in.Active = true
	in.Tag = aftership.StatusPending
	in.CreatedAt, in.UpdatedAt = now, now
	in.Checkpoints = []aftership.Checkpoint{}
	s.trackings[in.ID] = in

	// Ответ на создание без чекпоинтов; они появляются при следующем GET.
	writeData(w, http.StatusCreated, 201, map[string]any{"tracking": in})
	in.Checkpoints = generateCheckpoints(in.Slug, in.TrackingNumber, now)
	if last := in.LastCheckpoint(); last != nil {
		in.Tag = last.StatusTag()
	}
}

func (s *Server) get(w http.ResponseWriter, r *http.Request, t *aftership.Tracking) {
	t.TrackedCount++
	writeData(w, http.StatusOK, 200, map[string]any{"tracking": t})
}

func (s *Server) update(w http.ResponseWriter, r *http.Request, t *aftership.Tracking) {
	var req struct {
		Tracking json.RawMessage `json:"tracking"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Tracking) == 0 {
		writeMeta(w, http.StatusBadRequest, 4001, "BadRequest", "Invalid JSON data.")
		return
	}
	in, err := aftership.ParseTracking(req.Tracking)
	if err != nil {
		writeMeta(w, http.StatusBadRequest, 4001, "BadRequest", "Invalid JSON data.")
		return
	}
	if in.Title != "" {
		t.Title = in.Title
	}
	if in.CustomerName != "" {
		t.CustomerName = in.CustomerName
	}
	if in.OrderID != "" {
		t.OrderID = in.OrderID
	}
	if in.OrderIDPath != "" {
		t.OrderIDPath = in.OrderIDPath
	}
	if len(in.Emails) > 0 {
		t.Emails = in.Emails
	}
	if len(in.Phones) > 0 {
		t.Phones = in.Phones
	}
	if len(in.CustomFields) > 0 {
		t.CustomFields = in.CustomFields
	}
	t.UpdatedAt = s.now()
	writeData(w, http.StatusOK, 200, map[string]any{"tracking": t})
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request, t *aftership.Tracking) {
	delete(s.trackings, t.ID)
	writeData(w, http.StatusOK, 200, map[string]any{"tracking": map[string]string{
		"id":              t.ID,
		"slug":            t.Slug,
		"tracking_number": t.TrackingNumber,
	}})
}

func (s *Server) retrack(w http.ResponseWriter, r *http.Request, t *aftership.Tracking) {
	if t.Tag != aftership.StatusExpired {
		writeMeta(w, http.StatusBadRequest, 4016, "BadRequest", "Retrack is not allowed. You can only retrack an inactive tracking.")
		return
	}
	t.Active = true
	t.Tag = aftership.StatusPending
	writeData(w, http.StatusOK, 200, map[string]any{"tracking": map[string]any{
		"id":              t.ID,
		"slug":            t.Slug,
		"tracking_number": t.TrackingNumber,
		"active":          true,
	}})
}

func (s *Server) lastCheckpoint(w http.ResponseWriter, r *http.Request, t *aftership.Tracking) {
	data := map[string]any{
		"id":              t.ID,
		"slug":            t.Slug,
		"tracking_number": t.TrackingNumber,
		"tag":             t.Tag,
		"checkpoint":      map[string]any{},
	}
	if cp := t.LastCheckpoint(); cp != nil {
		data["checkpoint"] = cp
	}
	writeData(w, http.StatusOK, 200, data)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := atoiDefault(q.Get("page"), aftership.DefaultPage)
	limit := atoiDefault(q.Get("limit"), aftership.DefaultLimit)
	tags := splitList(q.Get("tag"))
	slugs := splitList(q.Get("slug"))
	keyword := q.Get("keyword")

	s.mu.Lock()
	matched := make([]*aftership.Tracking, 0, len(s.trackings))
	for _, t := range s.sortedLocked() {
		if len(tags) > 0 && !slices.Contains(tags, t.Tag.String()) {
			continue
		}
		if len(slugs) > 0 && !slices.Contains(slugs, t.Slug) {
			continue
		}
		if keyword != "" && !strings.Contains(t.TrackingNumber+" "+t.Title+" "+t.CustomerName, keyword) {
			continue
		}
		matched = append(matched, t)
	}
	s.mu.Unlock()

	from := (page - 1) * limit
	to := from + limit
	if from > len(matched) {
		from = len(matched)
	}
	if to > len(matched) {
		to = len(matched)
	}
	writeData(w, http.StatusOK, 200, map[string]any{
		"page":      page,
		"limit":     limit,
		"count":     len(matched),
		"trackings": matched[from:to],
	})
}

func (s *Server) detect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tracking struct {
			TrackingNumber string   `json:"tracking_number"`
			Slug           []string `json:"slug"`
		} `json:"tracking"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Tracking.TrackingNumber == "" {
		writeMeta(w, http.StatusBadRequest, 4005, "BadRequest", "The value of `tracking_number` is invalid.")
		return
	}
	out := make([]aftership.Courier, 0, len(s.couriers))
	for _, c := range s.couriers {
		if len(req.Tracking.Slug) == 0 || slices.Contains(req.Tracking.Slug, c.Slug) {
			out = append(out, c)
		}
	}
	writeData(w, http.StatusOK, 200, map[string]any{"total": len(out), "couriers": out})
}

func (s *Server) listCouriers(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, 200, map[string]any{"total": len(s.couriers), "couriers": s.couriers})
}

func (s *Server) findLocked(slug, number string) *aftership.Tracking {
	for _, t := range s.trackings {
		if t.Slug == slug && t.TrackingNumber == number {
			return t
		}
	}
	return nil
}

func (s *Server) sortedLocked() []*aftership.Tracking {
	ids := slices.Sorted(maps.Keys(s.trackings))
	out := make([]*aftership.Tracking, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.trackings[id])
	}
	return out
}

func (s *Server) nextID() string {
	s.seq++
	return idOf(s.seq)
}

func idOf(n int) string { return fmt.Sprintf("fake-%06d", n) }

// generateCheckpoints: 20% Delivered, 20% без чекпоинтов, остальные InTransit.
func generateCheckpoints(slug, number string, now time.Time) []aftership.Checkpoint {
	h := fnv.New32a()
	_, _ = h.Write([]byte(slug))
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(number))
	v := h.Sum32()

	at := func(d time.Duration) string { return now.Add(-d).Format("2006-01-02T15:04:05") }
	accepted := aftership.Checkpoint{
		CreatedAt:      now,
		CheckpointTime: at(48 * time.Hour),
		City:           "Leipzig",
		CountryISO3:    "DEU",
		CountryName:    "Germany",
		Message:        "Shipment information received",
		Tag:            aftership.StatusInfoReceived.String(),
	}
	transit := aftership.Checkpoint{
		CreatedAt:      now,
		CheckpointTime: at(24 * time.Hour),
		Location:       "Sort center",
		CountryISO3:    "NLD",
		CountryName:    "Netherlands",
		Message:        "Departed facility",
		Tag:            aftership.StatusInTransit.String(),
	}

	switch v % 5 {
	case 0:
		return []aftership.Checkpoint{accepted, transit, {
			CreatedAt:      now,
			CheckpointTime: at(time.Hour),
			City:           "New York",
			CountryISO3:    "USA",
			CountryName:    "United States",
			Message:        "Delivered",
			Tag:            aftership.StatusDelivered.String(),
		}}
	case 1:
		return []aftership.Checkpoint{}
	default:
		return []aftership.Checkpoint{accepted, transit}
	}
}

func param(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func writeData(w http.ResponseWriter, status, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"meta": map[string]any{"code": code},
		"data": data,
	})
}

func writeMeta(w http.ResponseWriter, status, code int, typ, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"meta": map[string]any{"code": code, "type": typ, "message": msg},
		"data": map[string]any{},
	})
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
