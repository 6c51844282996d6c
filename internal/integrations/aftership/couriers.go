package aftership

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
)

// DetectCouriers returns the couriers matching the number. The slice is
// never nil on success.
func (c *Connection) DetectCouriers(ctx context.Context, req DetectRequest) ([]Courier, error) {
	if req.TrackingNumber == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "tracking number is required")
	}
	body := detectBody{Tracking: detectFields{
		TrackingNumber: req.TrackingNumber,
		PostalCode:     req.PostalCode,
		ShipDate:       req.ShipDate,
		AccountNumber:  req.AccountNumber,
		Slug:           req.Slugs,
	}}
	env, err := c.doJSON(ctx, "detect_couriers", http.MethodPost, "/couriers/detect", body)
	if err != nil {
		return nil, err
	}
	return couriersOf(env)
}

// AllCouriers lists every courier AfterShip supports.
func (c *Connection) AllCouriers(ctx context.Context) ([]Courier, error) {
	env, err := c.do(ctx, "all_couriers", http.MethodGet, "/couriers/all", nil)
	if err != nil {
		return nil, err
	}
	return couriersOf(env)
}

// EnabledCouriers lists the couriers activated for the account.
func (c *Connection) EnabledCouriers(ctx context.Context) ([]Courier, error) {
	env, err := c.do(ctx, "enabled_couriers", http.MethodGet, "/couriers", nil)
	if err != nil {
		return nil, err
	}
	return couriersOf(env)
}

func couriersOf(env *envelope) ([]Courier, error) {
	pl, err := env.payload()
	if err != nil {
		return nil, err
	}
	out := []Courier{}
	for _, cr := range pl.Couriers {
		if cr.Slug != "" {
			out = append(out, cr)
		}
	}
	return out, nil
}
