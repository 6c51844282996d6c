package registration

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/BearBump/ShipTrack/internal/broker/messages"
	"github.com/BearBump/ShipTrack/internal/cache/rediscache"
	"github.com/BearBump/ShipTrack/internal/integrations/aftership"
	"github.com/BearBump/ShipTrack/internal/integrations/aftership/fakeapi"
	"github.com/BearBump/ShipTrack/internal/models"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

type staticSettings models.Settings

func (s staticSettings) Load(context.Context) (models.Settings, error) { return models.Settings(s), nil }

func TestService_AgainstFakeAfterShip(t *testing.T) {
	fake := fakeapi.New("key")
	srv := httptest.NewServer(fake.Handler())
	defer srv.Close()

	conn := aftership.New(srv.URL, "").WithHTTPClient(srv.Client())
	attrs := rediscache.NewAttributeStore(rediscache.NewClient(miniredis.RunT(t).Addr(), "", 0))
	svc := New(func(key string) API { return conn.ForKey(key) }, staticSettings{APIKey: "key"}, attrs, nil)
	ctx := context.Background()

	sh := models.Shipment{ID: 5, OrderID: 9, TrackingNumber: "RR1"}
	require.NoError(t, svc.Handle(ctx, messages.ShipmentChanged{Kind: messages.ShipmentInserted, Shipment: sh, StoreURL: "https://s/"}))
	require.Equal(t, 1, fake.Len())

	got, err := attrs.GetAttributes(ctx, models.KeyGroupShipment, 5)
	require.NoError(t, err)
	require.NotEmpty(t, got.TrackingID())
	require.True(t, got.Registered("RR1"))

	// a repeated event does not create a duplicate
	require.NoError(t, svc.Handle(ctx, messages.ShipmentChanged{Kind: messages.ShipmentUpdated, Shipment: sh}))
	require.Equal(t, 1, fake.Len())

	sh.TrackingNumber = "RR2"
	require.NoError(t, svc.Handle(ctx, messages.ShipmentChanged{Kind: messages.ShipmentUpdated, Shipment: sh}))
	require.Equal(t, 1, fake.Len())
	got, _ = attrs.GetAttributes(ctx, models.KeyGroupShipment, 5)
	require.True(t, got.Registered("RR2"))

	require.NoError(t, svc.Handle(ctx, messages.ShipmentChanged{Kind: messages.ShipmentDeleted, Shipment: sh}))
	require.Equal(t, 0, fake.Len())
	got, _ = attrs.GetAttributes(ctx, models.KeyGroupShipment, 5)
	require.Empty(t, got)
}
