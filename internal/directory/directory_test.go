package directory

import (
	"testing"

	"github.com/BearBump/ShipTrack/internal/integrations/aftership"
	"github.com/stretchr/testify/require"
)

func TestCountries_TwoLetterCode(t *testing.T) {
	c := NewCountries()

	code, ok := c.TwoLetterCode("DEU")
	require.True(t, ok)
	require.Equal(t, "DE", code)

	code, ok = c.TwoLetterCode(aftership.CountryNull)
	require.False(t, ok)
	require.Equal(t, "", code)

	c.WithOverride("XKX", "").WithOverride("GBR", "UK")
	_, ok = c.TwoLetterCode("XKX")
	require.False(t, ok)
	code, _ = c.TwoLetterCode("GBR")
	require.Equal(t, "UK", code)
}
