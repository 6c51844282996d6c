package mocks

import (
	"context"

	"github.com/BearBump/ShipTrack/internal/integrations/aftership"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) GetTracking(ctx context.Context, t *aftership.Tracking, q *aftership.TrackingQuery) (*aftership.Tracking, error) {
	args := m.Called(ctx, t, q)
	var out *aftership.Tracking
	if v := args.Get(0); v != nil {
		out = v.(*aftership.Tracking)
	}
	return out, args.Error(1)
}

func (m *MockAPI) DetectCouriers(ctx context.Context, req aftership.DetectRequest) ([]aftership.Courier, error) {
	args := m.Called(ctx, req)
	var out []aftership.Courier
	if v := args.Get(0); v != nil {
		out = v.([]aftership.Courier)
	}
	return out, args.Error(1)
}

type MockSettingsProvider struct {
	mock.Mock
}

func (m *MockSettingsProvider) Load(ctx context.Context) (models.Settings, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Settings), args.Error(1)
}

type MockAttributeReader struct {
	mock.Mock
}

func (m *MockAttributeReader) GetAttributes(ctx context.Context, keyGroup string, entityID int64) (models.Attributes, error) {
	args := m.Called(ctx, keyGroup, entityID)
	var out models.Attributes
	if v := args.Get(0); v != nil {
		out = v.(models.Attributes)
	}
	return out, args.Error(1)
}

type Rand struct {
	mock.Mock
}

func (m *Rand) Intn(n int) int {
	return m.Called(n).Int(0)
}
