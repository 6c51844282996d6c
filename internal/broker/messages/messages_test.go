package messages

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/BearBump/ShipTrack/internal/integrations/aftership"
	"github.com/stretchr/testify/require"
)

func TestShipmentChanged_Decode(t *testing.T) {
	var m ShipmentChanged
	require.NoError(t, json.Unmarshal([]byte(`{
  "kind": "updated",
  "storeUrl": "https://shop.example.com/",
  "shipment": {"id": 10, "orderId": 77, "trackingNumber": "1Z", "customer": {"firstName": "Ada", "email": "ada@example.com"}}
}`), &m))
	require.Equal(t, ShipmentUpdated, m.Kind)
	require.Equal(t, int64(77), m.Shipment.OrderID)
	require.Equal(t, "Ada", m.Shipment.Customer.FullName())
}

func TestTrackingUpdated_CarriesTracking(t *testing.T) {
	in := TrackingUpdated{
		EventID:   "e1",
		CheckedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Tracking: &aftership.Tracking{
			ID: "t1", Slug: "dhl", TrackingNumber: "N", Tag: aftership.StatusDelivered,
			Checkpoints: []aftership.Checkpoint{{Message: "Delivered", Tag: "Delivered"}},
		},
	}
	b, err := json.Marshal(in)
	require.NoError(t, err)

	var out TrackingUpdated
	require.NoError(t, json.Unmarshal(b, &out))
	require.Equal(t, in.CheckedAt, out.CheckedAt)
	require.Equal(t, aftership.StatusDelivered, out.Tracking.Tag)
	require.Len(t, out.Tracking.Checkpoints, 1)
}
