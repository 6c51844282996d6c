package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BearBump/ShipTrack/internal/broker/messages"
	"github.com/BearBump/ShipTrack/internal/cache"
	"github.com/BearBump/ShipTrack/internal/directory"
	"github.com/BearBump/ShipTrack/internal/integrations/aftership"
	"github.com/BearBump/ShipTrack/internal/locale"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// API is the part of the AfterShip client the tracker needs.
type API interface {
	GetTracking(ctx context.Context, t *aftership.Tracking, q *aftership.TrackingQuery) (*aftership.Tracking, error)
	DetectCouriers(ctx context.Context, req aftership.DetectRequest) ([]aftership.Courier, error)
}

// ClientFactory returns a client bound to an API key.
type ClientFactory func(apiKey string) API

type SettingsProvider interface {
	Load(ctx context.Context) (models.Settings, error)
}

type AttributeReader interface {
	GetAttributes(ctx context.Context, keyGroup string, entityID int64) (models.Attributes, error)
}

type ResolutionRecorder interface {
	RecordResolution(result string)
}

const (
	publicTrackingURL = "https://track.aftership.com/%s"
	userTrackingURL   = "https://%s.aftership.com/%s"
)

type Tracker struct {
	clients   ClientFactory
	settings  SettingsProvider
	localizer locale.Localizer
	countries directory.CountryLookup
	attrs     AttributeReader
	log       *zap.Logger

	cache   cache.BytesCache
	planner *Planner

	concurrency      int
	candidateTimeout time.Duration

	recorder ResolutionRecorder
}

// New wires the tracker. attrs may be nil when no attribute store is used.
func New(
	clients ClientFactory,
	settings SettingsProvider,
	localizer locale.Localizer,
	countries directory.CountryLookup,
	attrs AttributeReader,
	log *zap.Logger,
) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{
		clients:     clients,
		settings:    settings,
		localizer:   localizer,
		countries:   countries,
		attrs:       attrs,
		log:         log,
		concurrency: 1,
	}
}

// WithCache enables caching of resolved trackings keyed by tracking number.
func (t *Tracker) WithCache(c cache.BytesCache, p *Planner) *Tracker {
	if p == nil {
		p = NewPlanner(DefaultPlannerConfig(), nil)
	}
	t.cache = c
	t.planner = p
	return t
}

// WithProbing lets up to concurrency candidate couriers be queried at once,
// each bounded by perCandidate (0 = no extra bound).
func (t *Tracker) WithProbing(concurrency int, perCandidate time.Duration) *Tracker {
	if concurrency < 1 {
		concurrency = 1
	}
	t.concurrency = concurrency
	t.candidateTimeout = perCandidate
	return t
}

func (t *Tracker) WithRecorder(r ResolutionRecorder) *Tracker {
	t.recorder = r
	return t
}

// GetURL returns the public tracking page of number.
func (t *Tracker) GetURL(ctx context.Context, number string) string {
	s, err := t.settings.Load(ctx)
	if err != nil {
		t.log.Warn("load settings", zap.Error(err))
	}
	if err != nil || !s.HasUsername() {
		return fmt.Sprintf(publicTrackingURL, number)
	}
	return fmt.Sprintf(userTrackingURL, s.Username, number)
}

// GetShipmentEvents returns the checkpoints of number as status events. It
// never fails: any problem is logged and yields an empty slice.
func (t *Tracker) GetShipmentEvents(ctx context.Context, shipmentID int64, number string) []models.ShipmentStatusEvent {
	empty := []models.ShipmentStatusEvent{}

	if number == "" {
		return empty
	}
	s, err := t.settings.Load(ctx)
	if err != nil {
		t.log.Warn("load settings", zap.Error(err))
		return empty
	}
	if !s.HasAPIKey() {
		t.record("skipped")
		return empty
	}

	if tr := t.cached(ctx, number); tr != nil {
		t.record("cached")
		return t.toEvents(ctx, tr)
	}

	res, err := t.Resolve(ctx, s.APIKey, shipmentID, number)
	if err != nil {
		t.log.Error("getting tracking information on AfterShip events",
			zap.String("tracking_number", number),
			zap.Error(err))
		t.record("error")
		return empty
	}
	t.record(res.Kind.String())

	switch res.Kind {
	case Found:
		t.store(ctx, number, res.Tracking)
		return t.toEvents(ctx, res.Tracking)
	case Ambiguous:
		t.log.Info("courier is ambiguous",
			zap.String("tracking_number", number),
			zap.Int("candidates", len(res.Candidates)))
	}
	return empty
}

// Resolve finds the AfterShip tracking of number: by the id stored for the
// shipment when there is one, else by probing every detected courier.
func (t *Tracker) Resolve(ctx context.Context, apiKey string, shipmentID int64, number string) (Resolution, error) {
	api := t.clients(apiKey)

	if id := t.storedTrackingID(ctx, shipmentID, number); id != "" {
		tr, err := api.GetTracking(ctx, &aftership.Tracking{ID: id}, nil)
		switch {
		case err == nil && tr != nil:
			return found(tr), nil
		case err != nil && !aftership.IsNotFound(err):
			t.log.Warn("get tracking by stored id",
				zap.String("tracking_id", id),
				zap.Error(err))
		}
	}

	couriers, err := api.DetectCouriers(ctx, aftership.DetectRequest{TrackingNumber: number})
	if err != nil {
		return Resolution{}, errors.Wrap(err, "detect couriers")
	}
	if len(couriers) == 0 {
		return Resolution{Kind: NotFound}, nil
	}

	var results []*aftership.Tracking
	if t.concurrency > 1 && len(couriers) > 1 {
		results = t.probeConcurrently(ctx, api, number, couriers)
	} else {
		results = t.probeSequentially(ctx, api, number, couriers)
	}

	for _, tr := range results {
		if tr != nil && len(tr.Checkpoints) > 0 {
			return found(tr), nil
		}
	}
	if len(couriers) > 1 {
		return ambiguous(couriers), nil
	}
	if results[0] != nil {
		return found(results[0]), nil
	}
	return Resolution{Kind: NotFound}, nil
}

// ApplyTrackingUpdate stores a tracking pushed by the worker so the next
// lookup does not reach AfterShip.
func (t *Tracker) ApplyTrackingUpdate(ctx context.Context, msg messages.TrackingUpdated) error {
	if msg.Tracking.IsEmpty() || msg.Tracking.TrackingNumber == "" {
		return errors.New("tracking with a number is required")
	}
	if t.cache == nil {
		return nil
	}
	return t.put(ctx, msg.Tracking.TrackingNumber, msg.Tracking)
}

func (t *Tracker) storedTrackingID(ctx context.Context, shipmentID int64, number string) string {
	if t.attrs == nil || shipmentID <= 0 {
		return ""
	}
	attrs, err := t.attrs.GetAttributes(ctx, models.KeyGroupShipment, shipmentID)
	if err != nil {
		t.log.Warn("get shipment attributes", zap.Int64("shipment_id", shipmentID), zap.Error(err))
		return ""
	}
	// number changed but the attributes are still the old ones
	if n := attrs.TrackingNumber(); n != "" && n != number {
		return ""
	}
	return attrs.TrackingID()
}

// probeSequentially stops at the first candidate with checkpoints.
func (t *Tracker) probeSequentially(ctx context.Context, api API, number string, couriers []aftership.Courier) []*aftership.Tracking {
	results := make([]*aftership.Tracking, len(couriers))
	for i, c := range couriers {
		tr := t.probe(ctx, api, number, c)
		results[i] = tr
		if tr != nil && len(tr.Checkpoints) > 0 {
			break
		}
	}
	return results
}

var errFound = errors.New("tracking found")

func (t *Tracker) probeConcurrently(ctx context.Context, api API, number string, couriers []aftership.Courier) []*aftership.Tracking {
	results := make([]*aftership.Tracking, len(couriers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.concurrency)
	for i, c := range couriers {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			tr := t.probe(gctx, api, number, c)
			results[i] = tr
			if tr != nil && len(tr.Checkpoints) > 0 {
				// cancels the other candidates
				return errFound
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (t *Tracker) probe(ctx context.Context, api API, number string, c aftership.Courier) *aftership.Tracking {
	if t.candidateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.candidateTimeout)
		defer cancel()
	}
	tr, err := api.GetTracking(ctx, &aftership.Tracking{Slug: c.Slug, TrackingNumber: number}, nil)
	if err != nil {
		if !aftership.IsNotFound(err) && ctx.Err() == nil {
			t.log.Warn("probe courier",
				zap.String("tracking_number", number),
				zap.String("slug", c.Slug),
				zap.Error(err))
		}
		return nil
	}
	return tr
}

func (t *Tracker) toEvents(ctx context.Context, tr *aftership.Tracking) []models.ShipmentStatusEvent {
	lang := locale.LanguageFrom(ctx)
	out := make([]models.ShipmentStatusEvent, 0, len(tr.Checkpoints))
	for _, cp := range tr.Checkpoints {
		code, _ := t.countries.TwoLetterCode(cp.CountryISO3)
		out = append(out, models.ShipmentStatusEvent{
			CountryCode: code,
			Date:        cp.Time(),
			EventName:   fmt.Sprintf("%s (%s)", cp.Message, t.StatusText(cp.StatusTag(), lang)),
			Location:    cp.DisplayLocation(),
		})
	}
	return out
}

// StatusText returns the localized description of tag; anything outside the
// known tags reads as Exception.
func (t *Tracker) StatusText(tag aftership.StatusTag, languageID int) string {
	name := "Exception"
	switch tag {
	case aftership.StatusPending, aftership.StatusInfoReceived, aftership.StatusInTransit,
		aftership.StatusOutForDelivery, aftership.StatusAttemptFail, aftership.StatusDelivered,
		aftership.StatusExpired:
		name = tag.String()
	}
	return t.localizer.Resolve(locale.StatusKeyPrefix+name, languageID)
}

func cacheKey(number string) string {
	return "tracking:" + number
}

func (t *Tracker) cached(ctx context.Context, number string) *aftership.Tracking {
	if t.cache == nil {
		return nil
	}
	b, ok, err := t.cache.Get(ctx, cacheKey(number))
	if err != nil {
		t.log.Warn("cache get", zap.String("tracking_number", number), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	tr, err := aftership.ParseTracking(b)
	if err != nil || tr.IsEmpty() {
		return nil
	}
	return tr
}

func (t *Tracker) store(ctx context.Context, number string, tr *aftership.Tracking) {
	if t.cache == nil {
		return
	}
	if err := t.put(ctx, number, tr); err != nil {
		t.log.Warn("cache set", zap.String("tracking_number", number), zap.Error(err))
	}
}

func (t *Tracker) put(ctx context.Context, number string, tr *aftership.Tracking) error {
	b, err := json.Marshal(tr)
	if err != nil {
		return errors.Wrap(err, "encode tracking")
	}
	return t.cache.Set(ctx, cacheKey(number), b, t.planner.TTL(tr.Tag))
}

func (t *Tracker) record(result string) {
	if t.recorder != nil {
		t.recorder.RecordResolution(result)
	}
}
