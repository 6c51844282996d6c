package locale

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCatalog_Defaults(t *testing.T) {
	c := NewCatalog()
	require.Equal(t, "The shipment was delivered successfully.", c.Resolve(StatusKeyPrefix+"Delivered", DefaultLanguage))
	require.Equal(t, "The shipment was delivered successfully.", c.Resolve(StatusKeyPrefix+"Delivered", 7))
	require.Equal(t, "Unknown.Key", c.Resolve("Unknown.Key", DefaultLanguage))
}

func TestCatalog_LoadFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "de.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
languages:
  2:
    Plugins.Tracking.AfterShip.Status.Delivered: "Zugestellt"
`), 0o600))

	c := NewCatalog()
	require.NoError(t, c.LoadFile(p))
	require.Equal(t, "Zugestellt", c.Resolve(StatusKeyPrefix+"Delivered", 2))
	require.Equal(t, "The shipment was delivered successfully.", c.Resolve(StatusKeyPrefix+"Delivered", 1))
	// no translation: English
	require.Contains(t, c.Resolve(StatusKeyPrefix+"InTransit", 2), "on the way")

	require.Error(t, c.LoadFile(filepath.Join(dir, "missing.yaml")))
}

func TestLanguageContext(t *testing.T) {
	require.Equal(t, DefaultLanguage, LanguageFrom(context.Background()))
	require.Equal(t, 3, LanguageFrom(WithLanguage(context.Background(), 3)))
	require.Equal(t, DefaultLanguage, LanguageFrom(WithLanguage(context.Background(), 0)))
}
