package tracker

import (
	"math/rand"
	"time"

	"github.com/BearBump/ShipTrack/internal/integrations/aftership"
)

type Rand interface {
	Intn(n int) int
}

// PlannerConfig sets how long a cached tracking lives, by status.
type PlannerConfig struct {
	DeliveredTTL time.Duration // default: 24 hours
	ExpiredTTL   time.Duration // default: 12 hours

	InTransitMinTTL time.Duration // default: 5 minutes
	InTransitMaxTTL time.Duration // default: 15 minutes

	DefaultTTL time.Duration // default: 10 minutes
}

func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		DeliveredTTL:    24 * time.Hour,
		ExpiredTTL:      12 * time.Hour,
		InTransitMinTTL: 5 * time.Minute,
		InTransitMaxTTL: 15 * time.Minute,
		DefaultTTL:      10 * time.Minute,
	}
}

// lockedRand uses the package-level source, which is safe for concurrent use.
type lockedRand struct{}

func (lockedRand) Intn(n int) int { return rand.Intn(n) }

type Planner struct {
	cfg PlannerConfig
	r   Rand
}

func NewPlanner(cfg PlannerConfig, r Rand) *Planner {
	def := DefaultPlannerConfig()
	if cfg.DeliveredTTL <= 0 {
		cfg.DeliveredTTL = def.DeliveredTTL
	}
	if cfg.ExpiredTTL <= 0 {
		cfg.ExpiredTTL = def.ExpiredTTL
	}
	if cfg.InTransitMinTTL <= 0 {
		cfg.InTransitMinTTL = def.InTransitMinTTL
	}
	if cfg.InTransitMaxTTL <= 0 {
		cfg.InTransitMaxTTL = def.InTransitMaxTTL
	}
	if cfg.InTransitMaxTTL < cfg.InTransitMinTTL {
		cfg.InTransitMaxTTL = cfg.InTransitMinTTL
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = def.DefaultTTL
	}
	if r == nil {
		r = lockedRand{}
	}
	return &Planner{cfg: cfg, r: r}
}

// TTL returns how long a tracking with the given tag may be served from cache.
// Active shipments get a jittered TTL so entries do not expire together.
func (p *Planner) TTL(tag aftership.StatusTag) time.Duration {
	switch tag {
	case aftership.StatusDelivered:
		return p.cfg.DeliveredTTL
	case aftership.StatusExpired:
		return p.cfg.ExpiredTTL
	case aftership.StatusInTransit, aftership.StatusOutForDelivery:
		min := p.cfg.InTransitMinTTL
		max := p.cfg.InTransitMaxTTL
		if max == min {
			return min
		}
		secMin := int(min.Seconds())
		secMax := int(max.Seconds())
		if secMax < secMin {
			secMax = secMin
		}
		return time.Duration(secMin+p.r.Intn(secMax-secMin+1)) * time.Second
	default:
		return p.cfg.DefaultTTL
	}
}
