package aftership

import (
	"encoding/json"

	"github.com/pkg/errors"
)

type Courier struct {
	Slug      string
	Name      string
	Phone     string
	OtherName string
	WebURL    string
	// RequiredFields lists extra tracking fields the courier needs,
	// e.g. "tracking_postal_code". Never nil after decoding.
	RequiredFields []string
}

type courierWire struct {
	Slug           optString  `json:"slug"`
	Name           optString  `json:"name"`
	Phone          optString  `json:"phone"`
	OtherName      optString  `json:"other_name"`
	WebURL         optString  `json:"web_url"`
	RequiredFields optStrings `json:"required_fields"`
}

func (c *Courier) UnmarshalJSON(b []byte) error {
	var w courierWire
	if isObject(b) {
		if err := json.Unmarshal(b, &w); err != nil {
			return errors.Wrap(err, "decode courier")
		}
	}
	*c = Courier{
		Slug:           string(w.Slug),
		Name:           string(w.Name),
		Phone:          string(w.Phone),
		OtherName:      string(w.OtherName),
		WebURL:         string(w.WebURL),
		RequiredFields: nonNil(w.RequiredFields),
	}
	return nil
}

func (c Courier) MarshalJSON() ([]byte, error) {
	return json.Marshal(courierWire{
		Slug:           optString(c.Slug),
		Name:           optString(c.Name),
		Phone:          optString(c.Phone),
		OtherName:      optString(c.OtherName),
		WebURL:         optString(c.WebURL),
		RequiredFields: optStrings(nonNil(c.RequiredFields)),
	})
}

// DetectRequest is the body of a courier detection call. Only TrackingNumber
// is mandatory.
type DetectRequest struct {
	TrackingNumber string
	PostalCode     string
	ShipDate       string
	AccountNumber  string
	Slugs          []string
}

type detectBody struct {
	Tracking detectFields `json:"tracking"`
}

type detectFields struct {
	TrackingNumber string   `json:"tracking_number"`
	PostalCode     string   `json:"tracking_postal_code,omitempty"`
	ShipDate       string   `json:"tracking_ship_date,omitempty"`
	AccountNumber  string   `json:"tracking_account_number,omitempty"`
	Slug           []string `json:"slug,omitempty"`
}
