package directory

import "github.com/BearBump/ShipTrack/internal/integrations/aftership"

// CountryLookup maps AfterShip ISO3 codes to the host's two-letter codes.
type CountryLookup interface {
	TwoLetterCode(iso3 aftership.Iso3Country) (string, bool)
}

// Countries is the built-in lookup over the static ISO table. Overrides let a
// host hide or remap countries it does not sell to.
type Countries struct {
	overrides map[aftership.Iso3Country]string
}

func NewCountries() *Countries {
	return &Countries{overrides: map[aftership.Iso3Country]string{}}
}

// WithOverride maps iso3 to alpha2; an empty alpha2 hides the country.
func (c *Countries) WithOverride(iso3 aftership.Iso3Country, alpha2 string) *Countries {
	c.overrides[iso3] = alpha2
	return c
}

func (c *Countries) TwoLetterCode(iso3 aftership.Iso3Country) (string, bool) {
	if v, ok := c.overrides[iso3]; ok {
		return v, v != ""
	}
	a2 := iso3.Alpha2()
	return a2, a2 != ""
}
