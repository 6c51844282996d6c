package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) LoadSettings(ctx context.Context) (map[string]string, error) {
	args := m.Called(ctx)
	var out map[string]string
	if v := args.Get(0); v != nil {
		out = v.(map[string]string)
	}
	return out, args.Error(1)
}

func (m *MockRepository) SaveSettings(ctx context.Context, values map[string]string) error {
	return m.Called(ctx, values).Error(0)
}
