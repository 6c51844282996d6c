package pgstore

import (
	"context"
	"testing"
	"time"

	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("needs docker")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "admin",
			"POSTGRES_DB":       "shiptrack_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := "postgres://admin:admin@" + host + ":" + port.Port() + "/shiptrack_test?sslmode=disable"

	// порт слушается раньше, чем postgres готов принимать запросы
	var st *Storage
	require.Eventually(t, func() bool {
		st, err = New(ctx, dsn)
		return err == nil
	}, 30*time.Second, 500*time.Millisecond)
	t.Cleanup(st.Close)
	return st
}

func TestPGStore_Attributes(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	attrs, err := st.GetAttributes(ctx, models.KeyGroupShipment, 7)
	require.NoError(t, err)
	require.Empty(t, attrs)

	for k, v := range map[string]string{
		models.AttrTrackingID:        "t-7",
		models.AttrTrackingNumber:    "N7",
		models.AttrIsSetNotification: "True",
	} {
		require.NoError(t, st.SaveAttribute(ctx, models.Attribute{EntityID: 7, KeyGroup: models.KeyGroupShipment, Key: k, Value: v}))
	}
	// upsert
	require.NoError(t, st.SaveAttribute(ctx, models.Attribute{EntityID: 7, KeyGroup: models.KeyGroupShipment, Key: models.AttrTrackingID, Value: "t-8"}))

	attrs, err = st.GetAttributes(ctx, models.KeyGroupShipment, 7)
	require.NoError(t, err)
	require.Len(t, attrs, 3)
	require.Equal(t, "t-8", attrs.TrackingID())

	require.NoError(t, st.DeleteAttributes(ctx, models.KeyGroupShipment, 7, models.AttrTrackingID))
	attrs, _ = st.GetAttributes(ctx, models.KeyGroupShipment, 7)
	require.Len(t, attrs, 2)

	require.NoError(t, st.DeleteAttributes(ctx, models.KeyGroupShipment, 7))
	attrs, _ = st.GetAttributes(ctx, models.KeyGroupShipment, 7)
	require.Empty(t, attrs)
}

func TestPGStore_Settings(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	got, err := st.LoadSettings(ctx)
	require.NoError(t, err)
	require.Empty(t, got)

	require.NoError(t, st.SaveSettings(ctx, map[string]string{"apiKey": "k1", "username": "shop"}))
	require.NoError(t, st.SaveSettings(ctx, map[string]string{"apiKey": "k2"}))

	got, err = st.LoadSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"apiKey": "k2", "username": "shop"}, got)
}
