package aftership

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

type Checkpoint struct {
	CreatedAt time.Time
	// CheckpointTime is kept exactly as the courier reported it.
	CheckpointTime string
	City           string
	CountryISO3    Iso3Country
	CountryName    string
	Message        string
	State          string
	Tag            string
	Zip            string
	Location       string
	Coordinates    []string
}

// DisplayLocation prefers the city and falls back to the raw location.
func (c Checkpoint) DisplayLocation() string {
	if c.City != "" {
		return c.City
	}
	return c.Location
}

// Time parses CheckpointTime; zero when unparsable.
func (c Checkpoint) Time() time.Time {
	return parseTime(c.CheckpointTime)
}

func (c Checkpoint) StatusTag() StatusTag {
	return ParseStatusTag(c.Tag)
}

type checkpointWire struct {
	CreatedAt      optTime    `json:"created_at"`
	CheckpointTime optString  `json:"checkpoint_time"`
	City           optString  `json:"city"`
	CountryISO3    optString  `json:"country_iso3"`
	CountryName    optString  `json:"country_name"`
	Message        optString  `json:"message"`
	State          optString  `json:"state"`
	Tag            optString  `json:"tag"`
	Zip            optString  `json:"zip"`
	Location       optString  `json:"location"`
	Coordinates    optStrings `json:"coordinates,omitempty"`
}

func (c *Checkpoint) UnmarshalJSON(b []byte) error {
	var w checkpointWire
	if isObject(b) {
		if err := json.Unmarshal(b, &w); err != nil {
			return errors.Wrap(err, "decode checkpoint")
		}
	}
	*c = Checkpoint{
		CreatedAt:      time.Time(w.CreatedAt),
		CheckpointTime: string(w.CheckpointTime),
		City:           string(w.City),
		CountryISO3:    ParseIso3Country(string(w.CountryISO3)),
		CountryName:    string(w.CountryName),
		Message:        string(w.Message),
		State:          string(w.State),
		Tag:            string(w.Tag),
		Zip:            string(w.Zip),
		Location:       string(w.Location),
		Coordinates:    w.Coordinates,
	}
	return nil
}

func (c Checkpoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(checkpointWire{
		CreatedAt:      optTime(c.CreatedAt),
		CheckpointTime: optString(c.CheckpointTime),
		City:           optString(c.City),
		CountryISO3:    optString(c.CountryISO3),
		CountryName:    optString(c.CountryName),
		Message:        optString(c.Message),
		State:          optString(c.State),
		Tag:            optString(c.Tag),
		Zip:            optString(c.Zip),
		Location:       optString(c.Location),
		Coordinates:    optStrings(c.Coordinates),
	})
}

// IsEmpty reports a checkpoint object that carried none of the known keys.
func (c *Checkpoint) IsEmpty() bool {
	return c == nil || (c.CheckpointTime == "" && c.Message == "" && c.Tag == "" && c.CreatedAt.IsZero())
}
