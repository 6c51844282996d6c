package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/BearBump/ShipTrack/internal/models"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_GetSetDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(NewClient(mr.Addr(), "", 0)).WithPrefix("aftership:tracking:")

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	require.True(t, mr.Exists("aftership:tracking:k"))

	b, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), b)

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, "k2", []byte("v"), time.Minute))
	require.NoError(t, c.Delete(ctx, "k2"))
	_, ok, _ = c.Get(ctx, "k2")
	require.False(t, ok)
}

func TestRateLimiter_Allow(t *testing.T) {
	mr := miniredis.RunT(t)
	rl := NewRateLimiter(NewClient(mr.Addr(), "", 0))

	ctx := context.Background()
	ok, n, err := rl.Allow(ctx, "rl:test", 2, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), n)

	ok, n, _ = rl.Allow(ctx, "rl:test", 2, time.Minute)
	require.True(t, ok)
	require.Equal(t, int64(2), n)

	ok, n, _ = rl.Allow(ctx, "rl:test", 2, time.Minute)
	require.False(t, ok)
	require.Equal(t, int64(3), n)
}

func TestRateLimiter_AllowPerMinute(t *testing.T) {
	mr := miniredis.RunT(t)
	rl := NewRateLimiter(NewClient(mr.Addr(), "", 0))
	now := time.Unix(600, 0)
	rl.now = func() time.Time { return now }

	ctx := context.Background()
	ok, err := rl.AllowPerMinute(ctx, "aftership", 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, mr.Exists("rl:aftership:10"))

	ok, _ = rl.AllowPerMinute(ctx, "aftership", 1)
	require.False(t, ok)

	now = now.Add(time.Minute)
	ok, _ = rl.AllowPerMinute(ctx, "aftership", 1)
	require.True(t, ok)

	ok, _ = rl.AllowPerMinute(ctx, "aftership", 0)
	require.True(t, ok)
}

func TestAttributeStore(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewAttributeStore(NewClient(mr.Addr(), "", 0))
	ctx := context.Background()

	attrs, err := s.GetAttributes(ctx, models.KeyGroupShipment, 42)
	require.NoError(t, err)
	require.Empty(t, attrs)

	require.NoError(t, s.SaveAttribute(ctx, models.Attribute{EntityID: 42, KeyGroup: models.KeyGroupShipment, Key: models.AttrTrackingID, Value: "t-1"}))
	require.NoError(t, s.SaveAttribute(ctx, models.Attribute{EntityID: 42, KeyGroup: models.KeyGroupShipment, Key: models.AttrTrackingNumber, Value: "N1"}))
	require.True(t, mr.Exists("attrs:Shipment:42"))

	attrs, err = s.GetAttributes(ctx, models.KeyGroupShipment, 42)
	require.NoError(t, err)
	require.Equal(t, "t-1", attrs.TrackingID())
	require.True(t, attrs.Registered("N1"))

	require.NoError(t, s.DeleteAttributes(ctx, models.KeyGroupShipment, 42, models.AttrTrackingID))
	attrs, _ = s.GetAttributes(ctx, models.KeyGroupShipment, 42)
	require.Equal(t, "", attrs.TrackingID())
	require.Equal(t, "N1", attrs.TrackingNumber())

	require.NoError(t, s.DeleteAttributes(ctx, models.KeyGroupShipment, 42))
	require.False(t, mr.Exists("attrs:Shipment:42"))
}
