package settings

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// Names the settings are stored under in aftership_settings.
const (
	NameAPIKey                    = "AfterShipSettings.ApiKey"
	NameUsername                  = "AfterShipSettings.Username"
	NameAllowCustomerNotification = "AfterShipSettings.AllowCustomerNotification"
)

const DefaultCacheTTL = 30 * time.Second

type Repository interface {
	LoadSettings(ctx context.Context) (map[string]string, error)
	SaveSettings(ctx context.Context, values map[string]string) error
}

// Service loads plugin settings from the repository on top of configured
// defaults and keeps the result for a short while.
type Service struct {
	repo     Repository
	defaults models.Settings
	validate *validator.Validate
	ttl      time.Duration
	now      func() time.Time

	mu       sync.Mutex
	cached   models.Settings
	loadedAt time.Time
}

func New(repo Repository, defaults models.Settings) *Service {
	return &Service{
		repo:     repo,
		defaults: defaults,
		validate: validator.New(),
		ttl:      DefaultCacheTTL,
		now:      time.Now,
	}
}

// WithCacheTTL sets how long loaded settings are reused. Zero disables reuse.
func (s *Service) WithCacheTTL(d time.Duration) *Service {
	if d >= 0 {
		s.ttl = d
	}
	return s
}

func (s *Service) Load(ctx context.Context) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ttl > 0 && !s.loadedAt.IsZero() && s.now().Sub(s.loadedAt) < s.ttl {
		return s.cached, nil
	}

	values, err := s.repo.LoadSettings(ctx)
	if err != nil {
		return s.defaults, errors.Wrap(err, "load settings")
	}
	out := merge(s.defaults, values)
	s.cached = out
	s.loadedAt = s.now()
	return out, nil
}

func (s *Service) Save(ctx context.Context, v models.Settings) error {
	if err := s.validate.Struct(v); err != nil {
		return errors.Wrap(err, "validate settings")
	}
	if err := s.repo.SaveSettings(ctx, toValues(v)); err != nil {
		return errors.Wrap(err, "save settings")
	}

	s.mu.Lock()
	s.cached = v
	s.loadedAt = s.now()
	s.mu.Unlock()
	return nil
}

func merge(def models.Settings, values map[string]string) models.Settings {
	out := def
	if v, ok := values[NameAPIKey]; ok {
		out.APIKey = v
	}
	if v, ok := values[NameUsername]; ok {
		out.Username = v
	}
	if v, ok := values[NameAllowCustomerNotification]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			out.AllowCustomerNotification = b
		}
	}
	return out
}

func toValues(v models.Settings) map[string]string {
	return map[string]string{
		NameAPIKey:                    v.APIKey,
		NameUsername:                  v.Username,
		NameAllowCustomerNotification: strconv.FormatBool(v.AllowCustomerNotification),
	}
}
