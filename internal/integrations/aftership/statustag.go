package aftership

import "strings"

type StatusTag int

const (
	StatusUnknown StatusTag = iota
	StatusPending
	StatusInfoReceived
	StatusInTransit
	StatusOutForDelivery
	StatusAttemptFail
	StatusDelivered
	StatusException
	StatusExpired
)

var statusTagNames = [...]string{
	StatusUnknown:        "Unknown",
	StatusPending:        "Pending",
	StatusInfoReceived:   "InfoReceived",
	StatusInTransit:      "InTransit",
	StatusOutForDelivery: "OutForDelivery",
	StatusAttemptFail:    "AttemptFail",
	StatusDelivered:      "Delivered",
	StatusException:      "Exception",
	StatusExpired:        "Expired",
}

var statusTagByName = func() map[string]StatusTag {
	m := make(map[string]StatusTag, len(statusTagNames))
	for i, n := range statusTagNames {
		m[n] = StatusTag(i)
	}
	return m
}()

func (t StatusTag) String() string {
	if t < 0 || int(t) >= len(statusTagNames) {
		return statusTagNames[StatusUnknown]
	}
	return statusTagNames[t]
}

// Terminal reports whether AfterShip stops updating trackings with this tag.
func (t StatusTag) Terminal() bool {
	return t == StatusDelivered || t == StatusExpired
}

// ParseStatusTag never fails: unknown tokens map to StatusUnknown. Names are
// matched exactly as AfterShip spells them, so "delivered" is unknown.
func ParseStatusTag(s string) StatusTag {
	if t, ok := statusTagByName[strings.TrimSpace(s)]; ok {
		return t
	}
	return StatusUnknown
}

func (t StatusTag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *StatusTag) UnmarshalText(b []byte) error {
	*t = ParseStatusTag(string(b))
	return nil
}

func statusTagStrings(tags []StatusTag) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.String())
	}
	return out
}
