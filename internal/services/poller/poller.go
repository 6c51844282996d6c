package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/ShipTrack/internal/broker/messages"
	"github.com/BearBump/ShipTrack/internal/integrations/aftership"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const rateLimitName = "aftership"

type API interface {
	ListTrackings(ctx context.Context, p *aftership.ListParams) (*aftership.TrackingPage, error)
	Retrack(ctx context.Context, t *aftership.Tracking) (bool, error)
}

type ClientFactory func(apiKey string) API

type SettingsProvider interface {
	Load(ctx context.Context) (models.Settings, error)
}

type Producer interface {
	PublishJSON(ctx context.Context, topic, key string, v any) error
}

type RateLimiter interface {
	AllowPerMinute(ctx context.Context, name string, limit int64) (bool, error)
}

type Recorder interface {
	RecordPolled(n int)
}

// ActiveTags: статусы, которые ещё могут измениться.
var ActiveTags = []aftership.StatusTag{
	aftership.StatusPending,
	aftership.StatusInfoReceived,
	aftership.StatusInTransit,
	aftership.StatusOutForDelivery,
	aftership.StatusAttemptFail,
	aftership.StatusException,
}

// Poller периодически листает активные треки аккаунта и публикует каждый
// изменившийся как messages.TrackingUpdated.
type Poller struct {
	clients  ClientFactory
	settings SettingsProvider
	producer Producer
	rl       RateLimiter
	log      *zap.Logger
	recorder Recorder
	now      func() time.Time

	topic string

	pollInterval       time.Duration
	pageSize           int
	maxPages           int
	concurrency        int
	lookback           time.Duration
	rateLimitPerMinute int64
	retrackExpired     bool

	triggerCh chan struct{}

	// номер трека → updated_at последней опубликованной версии
	seenMu sync.Mutex
	seen   map[string]time.Time

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalFetched        atomic.Int64
	totalPublished      atomic.Int64
	totalRetracked      atomic.Int64
	totalErrors         atomic.Int64
	inFlight            atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(clients ClientFactory, settings SettingsProvider, producer Producer, rl RateLimiter, log *zap.Logger) *Poller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{
		clients:            clients,
		settings:           settings,
		producer:           producer,
		rl:                 rl,
		log:                log,
		now:                time.Now,
		topic:              messages.TopicTrackingUpdated,
		pollInterval:       5 * time.Minute,
		pageSize:           aftership.DefaultLimit,
		maxPages:           50,
		concurrency:        8,
		lookback:           30 * 24 * time.Hour,
		rateLimitPerMinute: 300,
		triggerCh:          make(chan struct{}, 1),
		seen:               map[string]time.Time{},
		startedAtUnixNano:  time.Now().UTC().UnixNano(),
	}
}

type Settings struct {
	PollInterval       time.Duration
	PageSize           int
	MaxPages           int
	Concurrency        int
	Lookback           time.Duration
	RateLimitPerMinute int64
	RetrackExpired     bool
}

func (p *Poller) WithSettings(s Settings) *Poller {
	if s.PollInterval > 0 {
		p.pollInterval = s.PollInterval
	}
	if s.PageSize > 0 {
		p.pageSize = s.PageSize
	}
	if s.MaxPages > 0 {
		p.maxPages = s.MaxPages
	}
	if s.Concurrency > 0 {
		p.concurrency = s.Concurrency
	}
	if s.Lookback > 0 {
		p.lookback = s.Lookback
	}
	if s.RateLimitPerMinute > 0 {
		p.rateLimitPerMinute = s.RateLimitPerMinute
	}
	p.retrackExpired = s.RetrackExpired
	return p
}

func (p *Poller) WithTopic(topic string) *Poller {
	if topic != "" {
		p.topic = topic
	}
	return p
}

func (p *Poller) WithRecorder(r Recorder) *Poller {
	p.recorder = r
	return p
}

// Trigger запускает цикл опроса немедленно, не блокируясь.
func (p *Poller) Trigger() {
	p.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt      time.Time  `json:"startedAt"`
	LastCycleAt    *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt  *time.Time `json:"lastTriggerAt,omitempty"`
	TotalFetched   int64      `json:"totalFetched"`
	TotalPublished int64      `json:"totalPublished"`
	TotalRetracked int64      `json:"totalRetracked"`
	TotalErrors    int64      `json:"totalErrors"`
	InFlight       int64      `json:"inFlight"`
	LastError      string     `json:"lastError,omitempty"`
}

func (p *Poller) Stats() Stats {
	st := Stats{
		StartedAt:      time.Unix(0, p.startedAtUnixNano).UTC(),
		TotalFetched:   p.totalFetched.Load(),
		TotalPublished: p.totalPublished.Load(),
		TotalRetracked: p.totalRetracked.Load(),
		TotalErrors:    p.totalErrors.Load(),
		InFlight:       p.inFlight.Load(),
	}
	if n := p.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := p.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	p.lastErrorMu.Lock()
	st.LastError = p.lastError
	p.lastErrorMu.Unlock()
	return st
}

func (p *Poller) Run(ctx context.Context) error {
	t := time.NewTicker(p.pollInterval)
	defer t.Stop()

	p.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			p.runOnce(ctx)
		case <-p.triggerCh:
			p.runOnce(ctx)
		}
	}
}

func (p *Poller) runOnce(ctx context.Context) {
	now := p.now().UTC()
	p.lastCycleUnixNano.Store(now.UnixNano())

	settings, err := p.settings.Load(ctx)
	if err != nil {
		p.fail(errors.Wrap(err, "load settings"))
		return
	}
	if !settings.HasAPIKey() {
		p.log.Debug("AfterShip API key is not configured, skip poll cycle")
		return
	}
	api := p.clients(settings.APIKey)

	params := p.listParams(now)
	visited := map[string]struct{}{}
	for page := 0; page < p.maxPages; page++ {
		if ctx.Err() != nil {
			return
		}
		if !p.allow(ctx) {
			return
		}

		res, err := api.ListTrackings(ctx, params)
		if err != nil {
			p.fail(errors.Wrapf(err, "list trackings page %d", params.Page))
			return
		}
		p.totalFetched.Add(int64(len(res.Trackings)))
		if p.recorder != nil {
			p.recorder.RecordPolled(len(res.Trackings))
		}
		for _, t := range res.Trackings {
			visited[seenKey(t)] = struct{}{}
		}
		p.processPage(ctx, api, res.Trackings, now)

		if !res.HasMore() {
			break
		}
		params.Page++
	}
	p.forgetExcept(visited)
}

func (p *Poller) listParams(now time.Time) *aftership.ListParams {
	params := aftership.NewListParams()
	params.Limit = p.pageSize
	params.CreatedAtMin = now.Add(-p.lookback)
	for _, tag := range ActiveTags {
		params.AddTag(tag)
	}
	if p.retrackExpired {
		params.AddTag(aftership.StatusExpired)
	}
	return params
}

func (p *Poller) allow(ctx context.Context) bool {
	if p.rl == nil || p.rateLimitPerMinute <= 0 {
		return true
	}
	ok, err := p.rl.AllowPerMinute(ctx, rateLimitName, p.rateLimitPerMinute)
	if err != nil {
		// без Redis продолжаем, лимит AfterShip всё равно защищает сервер
		p.log.Warn("rate limiter", zap.Error(err))
		return true
	}
	if !ok {
		p.log.Warn("AfterShip rate limit reached, cycle postponed", zap.Int64("per_minute", p.rateLimitPerMinute))
	}
	return ok
}

func (p *Poller) processPage(ctx context.Context, api API, items []*aftership.Tracking, now time.Time) {
	sem := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup
	for _, tr := range items {
		sem <- struct{}{}
		wg.Add(1)
		p.inFlight.Add(1)
		go func() {
			defer func() {
				p.inFlight.Add(-1)
				<-sem
				wg.Done()
			}()
			if err := p.processOne(ctx, api, tr, now); err != nil {
				p.fail(err)
				p.log.Error("process tracking",
					zap.String("tracking_number", tr.TrackingNumber),
					zap.String("slug", tr.Slug),
					zap.Error(err))
			}
		}()
	}
	wg.Wait()
}

func (p *Poller) processOne(ctx context.Context, api API, tr *aftership.Tracking, now time.Time) error {
	if tr.Tag == aftership.StatusExpired {
		if !p.retrackExpired {
			return nil
		}
		active, err := api.Retrack(ctx, &aftership.Tracking{ID: tr.ID, Slug: tr.Slug, TrackingNumber: tr.TrackingNumber})
		if err != nil {
			return errors.Wrap(err, "retrack")
		}
		if active {
			p.totalRetracked.Add(1)
		}
		return nil
	}

	if !p.changed(tr) {
		return nil
	}

	msg := messages.TrackingUpdated{
		EventID:   uuid.NewString(),
		CheckedAt: now,
		Tracking:  tr,
	}
	// без markSeen: следующий цикл опубликует трек снова
	if err := p.producer.PublishJSON(ctx, p.topic, tr.TrackingNumber, msg); err != nil {
		return errors.Wrap(err, "publish tracking update")
	}
	p.markSeen(tr)
	p.totalPublished.Add(1)
	return nil
}

func seenKey(t *aftership.Tracking) string {
	if t.ID != "" {
		return t.ID
	}
	return t.Slug + "/" + t.TrackingNumber
}

// changed: трек ещё не публиковался или обновился с прошлой публикации.
func (p *Poller) changed(t *aftership.Tracking) bool {
	p.seenMu.Lock()
	defer p.seenMu.Unlock()
	prev, ok := p.seen[seenKey(t)]
	return !ok || t.UpdatedAt.IsZero() || !prev.Equal(t.UpdatedAt)
}

func (p *Poller) markSeen(t *aftership.Tracking) {
	p.seenMu.Lock()
	p.seen[seenKey(t)] = t.UpdatedAt
	p.seenMu.Unlock()
}

func (p *Poller) forgetExcept(keep map[string]struct{}) {
	p.seenMu.Lock()
	defer p.seenMu.Unlock()
	for k := range p.seen {
		if _, ok := keep[k]; !ok {
			delete(p.seen, k)
		}
	}
}

func (p *Poller) fail(err error) {
	p.totalErrors.Add(1)
	p.lastErrorMu.Lock()
	p.lastError = err.Error()
	p.lastErrorMu.Unlock()
}
