package aftership

import (
	"slices"
	"strconv"
	"time"
)

const (
	DefaultPage  = 1
	DefaultLimit = 100

	// Layout of created_at_min and created_at_max.
	listTimeLayout = "2006-01-02T15:04:05-07:00"
)

// ListParams holds the inputs of GET /trackings. The server reported total
// is returned separately in TrackingPage.
type ListParams struct {
	Page         int
	Limit        int
	Keyword      string
	CreatedAtMin time.Time
	CreatedAtMax time.Time
	Lang         string

	Slugs        []string
	Origins      []Iso3Country
	Destinations []Iso3Country
	Tags         []StatusTag
	Fields       []TrackingField
}

func NewListParams() *ListParams {
	return &ListParams{Page: DefaultPage, Limit: DefaultLimit}
}

func (p *ListParams) AddSlug(slug string) { p.Slugs = addUnique(p.Slugs, slug) }
func (p *ListParams) DeleteSlug(slug string) { p.Slugs = remove(p.Slugs, slug) }
func (p *ListParams) AddOrigin(c Iso3Country) { p.Origins = addUnique(p.Origins, c) }
func (p *ListParams) DeleteOrigin(c Iso3Country) { p.Origins = remove(p.Origins, c) }
func (p *ListParams) AddDestination(c Iso3Country) { p.Destinations = addUnique(p.Destinations, c) }
func (p *ListParams) DeleteDestination(c Iso3Country) { p.Destinations = remove(p.Destinations, c) }
func (p *ListParams) AddTag(t StatusTag) { p.Tags = addUnique(p.Tags, t) }
func (p *ListParams) DeleteTag(t StatusTag) { p.Tags = remove(p.Tags, t) }
func (p *ListParams) AddField(f TrackingField) { p.Fields = addUnique(p.Fields, f) }
func (p *ListParams) DeleteField(f TrackingField) { p.Fields = remove(p.Fields, f) }

// Encode renders the query without the leading separator: "page=1&limit=100...".
func (p *ListParams) Encode() string {
	page, limit := p.Page, p.Limit
	if page <= 0 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	var q QueryString
	q.Add("page", strconv.Itoa(page))
	q.Add("limit", strconv.Itoa(limit))
	if p.Keyword != "" {
		q.Add("keyword", p.Keyword)
	}
	if !p.CreatedAtMin.IsZero() {
		q.Add("created_at_min", p.CreatedAtMin.Format(listTimeLayout))
	}
	if !p.CreatedAtMax.IsZero() {
		q.Add("created_at_max", p.CreatedAtMax.Format(listTimeLayout))
	}
	if p.Lang != "" {
		q.Add("lang", p.Lang)
	}
	if len(p.Slugs) > 0 {
		q.AddList("slug", p.Slugs)
	}
	if cs := iso3Strings(p.Origins); len(cs) > 0 {
		q.AddList("origin", cs)
	}
	if cs := iso3Strings(p.Destinations); len(cs) > 0 {
		q.AddList("destination", cs)
	}
	if len(p.Tags) > 0 {
		q.AddList("tag", statusTagStrings(p.Tags))
	}
	if len(p.Fields) > 0 {
		q.AddList("fields", fieldStrings(p.Fields))
	}
	return q.String()[1:]
}

// TrackingPage is one page of GET /trackings. Trackings is nil when the
// server returned none.
type TrackingPage struct {
	Trackings []*Tracking
	Total     int
	Page      int
	Limit     int
}

// HasMore reports whether pages after this one may hold more trackings.
func (p *TrackingPage) HasMore() bool {
	if p == nil || len(p.Trackings) == 0 || p.Limit <= 0 {
		return false
	}
	return p.Page*p.Limit < p.Total
}

// TrackingQuery narrows GET /trackings/... responses.
type TrackingQuery struct {
	Fields []TrackingField
	Lang   string
}

// CheckpointQuery narrows GET /last_checkpoint/... responses.
type CheckpointQuery struct {
	Fields []CheckpointField
	Lang   string
}

func addUnique[T comparable](s []T, v T) []T {
	if slices.Contains(s, v) {
		return s
	}
	return append(s, v)
}

func remove[T comparable](s []T, v T) []T {
	return slices.DeleteFunc(s, func(x T) bool { return x == v })
}
