package tracker

import "github.com/BearBump/ShipTrack/internal/integrations/aftership"

type ResolutionKind int

const (
	NotFound ResolutionKind = iota
	Found
	// Ambiguous: several couriers matched and none of them had checkpoints.
	Ambiguous
)

func (k ResolutionKind) String() string {
	switch k {
	case Found:
		return "found"
	case Ambiguous:
		return "ambiguous"
	default:
		return "not_found"
	}
}

// Resolution is the outcome of looking a tracking number up on AfterShip.
type Resolution struct {
	Kind       ResolutionKind
	Tracking   *aftership.Tracking
	Candidates []aftership.Courier
}

func found(t *aftership.Tracking) Resolution { return Resolution{Kind: Found, Tracking: t} }

func ambiguous(cs []aftership.Courier) Resolution {
	return Resolution{Kind: Ambiguous, Candidates: cs}
}
