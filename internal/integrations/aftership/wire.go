package aftership

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Scalar types below never fail to decode: missing, null or mistyped values
// collapse to the zero value of the field.

type optString string

func (s *optString) UnmarshalJSON(b []byte) error {
	*s = optString(scalarText(b))
	return nil
}

type optInt int

func (n *optInt) UnmarshalJSON(b []byte) error {
	*n = 0
	txt := scalarText(b)
	if v, err := strconv.Atoi(txt); err == nil {
		*n = optInt(v)
		return nil
	}
	if f, err := strconv.ParseFloat(txt, 64); err == nil {
		*n = optInt(int(f))
	}
	return nil
}

type optBool bool

func (v *optBool) UnmarshalJSON(b []byte) error {
	p, err := strconv.ParseBool(scalarText(b))
	*v = optBool(err == nil && p)
	return nil
}

type optTime time.Time

func (t *optTime) UnmarshalJSON(b []byte) error {
	*t = optTime(parseTime(scalarText(b)))
	return nil
}

func (t optTime) MarshalJSON() ([]byte, error) {
	tt := time.Time(t)
	if tt.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(tt.Format(time.RFC3339))
}

type optStrings []string

func (s *optStrings) UnmarshalJSON(b []byte) error {
	*s = nil
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	if b[0] != '[' {
		if v := scalarText(b); v != "" {
			*s = optStrings{v}
		}
		return nil
	}
	var items []json.RawMessage
	if json.Unmarshal(b, &items) != nil {
		return nil
	}
	out := make(optStrings, 0, len(items))
	for _, it := range items {
		if v := scalarText(it); v != "" {
			out = append(out, v)
		}
	}
	*s = out
	return nil
}

type optStringMap map[string]string

func (m *optStringMap) UnmarshalJSON(b []byte) error {
	*m = nil
	if !isObject(b) {
		return nil
	}
	var raw map[string]json.RawMessage
	if json.Unmarshal(b, &raw) != nil {
		return nil
	}
	out := make(optStringMap, len(raw))
	for k, v := range raw {
		out[k] = scalarText(v)
	}
	*m = out
	return nil
}

// optList decodes an array element by element. A non-array value yields an
// empty list; elements that are not objects or fail to decode are dropped.
type optList[T any] []T

func (l *optList[T]) UnmarshalJSON(b []byte) error {
	*l = nil
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '[' {
		return nil
	}
	var items []json.RawMessage
	if json.Unmarshal(b, &items) != nil {
		return nil
	}
	out := make(optList[T], 0, len(items))
	for _, it := range items {
		if !isObject(it) {
			continue
		}
		var v T
		if json.Unmarshal(it, &v) != nil {
			continue
		}
		out = append(out, v)
	}
	*l = out
	return nil
}

func scalarText(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return ""
	}
	switch b[0] {
	case '"':
		var s string
		if json.Unmarshal(b, &s) != nil {
			return ""
		}
		return s
	case '{', '[':
		return ""
	default:
		return string(b)
	}
}

func isObject(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '{'
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTime returns the zero time when nothing matches. Values without an
// offset are read as UTC.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

type envelope struct {
	Meta meta            `json:"meta"`
	Data json.RawMessage `json:"data"`
}

type meta struct {
	Code    optInt    `json:"code"`
	Message optString `json:"message"`
	Type    optString `json:"type"`
}

type payload struct {
	Tracking   *Tracking          `json:"tracking"`
	Trackings  optList[*Tracking] `json:"trackings"`
	Couriers   optList[Courier]   `json:"couriers"`
	Checkpoint *Checkpoint        `json:"checkpoint"`
	Count      optInt             `json:"count"`
	Page       optInt             `json:"page"`
	Limit      optInt             `json:"limit"`
}

// payload decodes data. Shape mismatches inside it collapse to zero values,
// so an error here means the body itself is not valid JSON.
func (e *envelope) payload() (payload, error) {
	var p payload
	if !isObject(e.Data) {
		return p, nil
	}
	if err := json.Unmarshal(e.Data, &p); err != nil {
		return payload{}, errors.Wrap(err, "decode data")
	}
	return p, nil
}
