package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BearBump/ShipTrack/internal/integrations/aftership"
	"github.com/BearBump/ShipTrack/internal/integrations/aftership/fakeapi"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, baseURL string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--base-url", baseURL, "--api-key", "key"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func newFake(t *testing.T) (*fakeapi.Server, string) {
	t.Helper()
	fake := fakeapi.New("key")
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)
	return fake, srv.URL
}

func TestCreateGetDelete(t *testing.T) {
	fake, url := newFake(t)

	out, err := run(t, url, "create", "RR123", "--slug", "dhl", "--customer", "Ada", "--email", "a@b.c")
	require.NoError(t, err)
	created, err := aftership.ParseTracking([]byte(out))
	require.NoError(t, err)
	require.Equal(t, "RR123", created.TrackingNumber)
	require.Equal(t, "Ada", created.CustomerName)
	require.Equal(t, 1, fake.Len())

	out, err = run(t, url, "get", "--id", created.ID)
	require.NoError(t, err)
	require.Contains(t, out, `"RR123"`)

	out, err = run(t, url, "delete", "RR123", "--slug", "dhl")
	require.NoError(t, err)
	require.JSONEq(t, `{"deleted":true}`, out)
	require.Equal(t, 0, fake.Len())
}

func TestGet_NotFound(t *testing.T) {
	_, url := newFake(t)
	_, err := run(t, url, "get", "NOPE", "--slug", "dhl")
	require.Error(t, err)
	require.True(t, aftership.IsNotFound(err))
}

func TestMissingAPIKey(t *testing.T) {
	t.Setenv("AFTERSHIP_API_KEY", "")
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"couriers"})
	require.ErrorContains(t, cmd.Execute(), "api key is required")
}

func TestDetectAndCouriers(t *testing.T) {
	_, url := newFake(t)

	out, err := run(t, url, "detect", "1Z999", "--only", "ups")
	require.NoError(t, err)
	var cs []aftership.Courier
	require.NoError(t, json.Unmarshal([]byte(out), &cs))
	require.Len(t, cs, 1)
	require.Equal(t, "ups", cs[0].Slug)

	out, err = run(t, url, "couriers", "--all")
	require.NoError(t, err)
	require.Contains(t, out, `"dhl"`)
}

func TestListAll(t *testing.T) {
	fake, url := newFake(t)
	for _, n := range []string{"A", "B", "C"} {
		fake.Seed(aftership.Tracking{TrackingNumber: n, Tag: aftership.StatusInTransit})
	}
	fake.Seed(aftership.Tracking{TrackingNumber: "D", Tag: aftership.StatusDelivered})

	out, err := run(t, url, "list", "--tag", "InTransit", "--limit", "2", "--all")
	require.NoError(t, err)
	var res struct {
		Total     int               `json:"total"`
		Trackings []json.RawMessage `json:"trackings"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, 3, res.Total)
	require.Len(t, res.Trackings, 3)
}

func TestRetrackAndLastCheckpoint(t *testing.T) {
	fake, url := newFake(t)
	fake.Seed(aftership.Tracking{
		ID: "exp-1", Slug: "dhl", TrackingNumber: "E1", Tag: aftership.StatusExpired,
		Checkpoints: []aftership.Checkpoint{{Message: "Lost in space", Tag: "Expired", CheckpointTime: "2024-03-01T10:00:00"}},
	})

	out, err := run(t, url, "retrack", "--id", "exp-1")
	require.NoError(t, err)
	require.JSONEq(t, `{"active":true}`, out)

	out, err = run(t, url, "last-checkpoint", "E1", "--slug", "dhl")
	require.NoError(t, err)
	require.Contains(t, out, "Lost in space")
}

func TestEventsAndURL(t *testing.T) {
	fake, url := newFake(t)
	fake.Seed(aftership.Tracking{
		Slug: "ups", TrackingNumber: "1Z1", Tag: aftership.StatusInTransit,
		Checkpoints: []aftership.Checkpoint{{Message: "Departed", Tag: "InTransit", CountryISO3: "DEU", City: "Berlin"}},
	})

	out, err := run(t, url, "events", "1Z1")
	require.NoError(t, err)
	require.Contains(t, out, "Departed")
	require.Contains(t, out, `"DE"`)

	out, err = run(t, url, "url", "1Z1", "--username", "myshop")
	require.NoError(t, err)
	require.Equal(t, "https://myshop.aftership.com/1Z1", strings.TrimSpace(out))
}
