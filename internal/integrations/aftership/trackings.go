package aftership

import (
	"context"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
)

// CreateTracking registers t. The response carries no checkpoints yet.
func (c *Connection) CreateTracking(ctx context.Context, t *Tracking) (*Tracking, error) {
	if t == nil || t.TrackingNumber == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "tracking number is required")
	}
	body, err := t.MarshalCreate()
	if err != nil {
		return nil, errors.Wrap(err, "encode tracking")
	}
	env, err := c.do(ctx, "create_tracking", http.MethodPost, "/trackings", body)
	if err != nil {
		return nil, err
	}
	pl, err := env.payload()
	if err != nil {
		return nil, err
	}
	out := pl.Tracking
	if out.IsEmpty() {
		return nil, errors.New("aftership: empty tracking in create response")
	}
	return out, nil
}

// GetTracking fetches by id when set, else by slug and number. It returns
// nil, nil when the response holds no tracking.
func (c *Connection) GetTracking(ctx context.Context, t *Tracking, q *TrackingQuery) (*Tracking, error) {
	path, byID, err := t.resourcePath()
	if err != nil {
		return nil, err
	}
	var qs QueryString
	if q != nil {
		if len(q.Fields) > 0 {
			qs.AddList("fields", fieldStrings(q.Fields))
		}
		if q.Lang != "" {
			qs.Add("lang", q.Lang)
		}
	}
	if !byID {
		t.addRequiredFields(&qs)
	}

	env, err := c.do(ctx, "get_tracking", http.MethodGet, "/trackings"+path+qs.Leading(), nil)
	if err != nil {
		return nil, err
	}
	pl, err := env.payload()
	if err != nil {
		return nil, err
	}
	out := pl.Tracking
	if out.IsEmpty() {
		return nil, nil
	}
	return out, nil
}

// UpdateTracking sends only the mutable fields of t.
func (c *Connection) UpdateTracking(ctx context.Context, t *Tracking) (*Tracking, error) {
	path, byID, err := t.resourcePath()
	if err != nil {
		return nil, err
	}
	var qs QueryString
	if !byID {
		t.addRequiredFields(&qs)
	}
	body, err := t.MarshalUpdate()
	if err != nil {
		return nil, errors.Wrap(err, "encode tracking")
	}
	env, err := c.do(ctx, "update_tracking", http.MethodPut, "/trackings"+path+qs.Leading(), body)
	if err != nil {
		return nil, err
	}
	pl, err := env.payload()
	if err != nil {
		return nil, err
	}
	out := pl.Tracking
	if out.IsEmpty() {
		return nil, errors.New("aftership: empty tracking in update response")
	}
	return out, nil
}

// DeleteTracking reports whether the server answered with meta.code 200.
func (c *Connection) DeleteTracking(ctx context.Context, t *Tracking) (bool, error) {
	path, byID, err := t.resourcePath()
	if err != nil {
		return false, err
	}
	var qs QueryString
	if !byID {
		t.addRequiredFields(&qs)
	}
	env, err := c.do(ctx, "delete_tracking", http.MethodDelete, "/trackings"+path+qs.Leading(), nil)
	if err != nil {
		return false, err
	}
	return env.Meta.Code == http.StatusOK, nil
}

// Retrack reactivates an expired tracking and returns its active flag.
func (c *Connection) Retrack(ctx context.Context, t *Tracking) (bool, error) {
	path, byID, err := t.resourcePath()
	if err != nil {
		return false, err
	}
	var qs QueryString
	if !byID {
		t.addRequiredFields(&qs)
	}
	env, err := c.do(ctx, "retrack", http.MethodPost, "/trackings"+path+"/retrack"+qs.Leading(), nil)
	if err != nil {
		return false, err
	}
	if env.Meta.Code != http.StatusOK {
		return false, nil
	}
	pl, err := env.payload()
	if err != nil {
		return false, err
	}
	return pl.Tracking != nil && pl.Tracking.Active, nil
}

// GetLastCheckpoint returns nil, nil when the tracking has no checkpoint yet.
func (c *Connection) GetLastCheckpoint(ctx context.Context, t *Tracking, q *CheckpointQuery) (*Checkpoint, error) {
	path, byID, err := t.resourcePath()
	if err != nil {
		return nil, err
	}
	var qs QueryString
	if q != nil {
		if len(q.Fields) > 0 {
			qs.AddList("fields", fieldStrings(q.Fields))
		}
		if q.Lang != "" {
			qs.Add("lang", q.Lang)
		}
	}
	if !byID {
		t.addRequiredFields(&qs)
	}
	env, err := c.do(ctx, "last_checkpoint", http.MethodGet, "/last_checkpoint"+path+qs.Leading(), nil)
	if err != nil {
		return nil, err
	}
	pl, err := env.payload()
	if err != nil {
		return nil, err
	}
	cp := pl.Checkpoint
	if cp.IsEmpty() {
		return nil, nil
	}
	return cp, nil
}

// ListTrackingsPage lists one page with the default limit.
func (c *Connection) ListTrackingsPage(ctx context.Context, page int) (*TrackingPage, error) {
	if page <= 0 {
		page = DefaultPage
	}
	resource := "/trackings?limit=" + strconv.Itoa(DefaultLimit) + "&page=" + strconv.Itoa(page)
	env, err := c.do(ctx, "list_trackings", http.MethodGet, resource, nil)
	if err != nil {
		return nil, err
	}
	pl, err := env.payload()
	if err != nil {
		return nil, err
	}
	return newTrackingPage(pl, page, DefaultLimit), nil
}

func (c *Connection) ListTrackings(ctx context.Context, p *ListParams) (*TrackingPage, error) {
	if p == nil {
		p = NewListParams()
	}
	env, err := c.do(ctx, "list_trackings", http.MethodGet, "/trackings?"+p.Encode(), nil)
	if err != nil {
		return nil, err
	}
	pl, err := env.payload()
	if err != nil {
		return nil, err
	}
	return newTrackingPage(pl, p.Page, p.Limit), nil
}

// ListTrackingsNextPage advances p.Page and lists again.
func (c *Connection) ListTrackingsNextPage(ctx context.Context, p *ListParams) (*TrackingPage, error) {
	if p == nil {
		p = NewListParams()
	}
	if p.Page <= 0 {
		p.Page = DefaultPage
	}
	p.Page++
	return c.ListTrackings(ctx, p)
}

func newTrackingPage(pl payload, page, limit int) *TrackingPage {
	if page <= 0 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	out := &TrackingPage{Total: int(pl.Count), Page: page, Limit: limit}
	for _, t := range pl.Trackings {
		if !t.IsEmpty() {
			out.Trackings = append(out.Trackings, t)
		}
	}
	return out
}
