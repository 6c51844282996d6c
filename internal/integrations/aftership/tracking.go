package aftership

import (
	"encoding/json"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

type Tracking struct {
	ID             string
	TrackingNumber string
	Slug           string
	Title          string

	CustomerName string
	OrderID      string
	OrderIDPath  string
	Emails       []string
	Phones       []string

	DestinationCountry Iso3Country
	OriginCountry      Iso3Country
	CustomFields       map[string]string

	// Extra fields some couriers require to identify a shipment.
	TrackingAccountNumber string
	TrackingPostalCode    string
	TrackingShipDate      string

	ExpectedDelivery     string
	ShipmentType         string
	ShipmentPackageCount int
	SignedBy             string
	Source               string
	UniqueToken          string
	TrackedCount         int

	Active    bool
	Tag       StatusTag
	CreatedAt time.Time
	UpdatedAt time.Time

	Checkpoints []Checkpoint
}

// NewTracking returns a tracking whose title defaults to the number.
func NewTracking(trackingNumber string) *Tracking {
	return &Tracking{
		TrackingNumber: trackingNumber,
		Title:          trackingNumber,
	}
}

func (t *Tracking) IsEmpty() bool {
	return t == nil || (t.ID == "" && t.TrackingNumber == "" && t.Slug == "")
}

// LastCheckpoint returns nil when the tracking has no checkpoints.
func (t *Tracking) LastCheckpoint() *Checkpoint {
	if t == nil || len(t.Checkpoints) == 0 {
		return nil
	}
	return &t.Checkpoints[len(t.Checkpoints)-1]
}

// resourcePath returns "/{id}" or "/{slug}/{number}"; byID tells which one.
func (t *Tracking) resourcePath() (path string, byID bool, err error) {
	if t == nil {
		return "", false, errors.Wrap(ErrInvalidArgument, "tracking is nil")
	}
	if t.ID != "" {
		return "/" + url.PathEscape(t.ID), true, nil
	}
	if t.Slug == "" || t.TrackingNumber == "" {
		return "", false, errors.Wrap(ErrInvalidArgument, "tracking id or slug and tracking number are required")
	}
	return "/" + url.PathEscape(t.Slug) + "/" + url.PathEscape(t.TrackingNumber), false, nil
}

func (t *Tracking) addRequiredFields(q *QueryString) {
	if t.TrackingAccountNumber != "" {
		q.Add("tracking_account_number", t.TrackingAccountNumber)
	}
	if t.TrackingPostalCode != "" {
		q.Add("tracking_postal_code", t.TrackingPostalCode)
	}
	if t.TrackingShipDate != "" {
		q.Add("tracking_ship_date", t.TrackingShipDate)
	}
}

// RequiredFieldsQuery renders the courier specific fields as "&name=value".
func (t *Tracking) RequiredFieldsQuery() string {
	var q QueryString
	t.addRequiredFields(&q)
	return q.String()
}

type trackingWire struct {
	ID                     optString           `json:"id"`
	TrackingNumber         optString           `json:"tracking_number"`
	Slug                   optString           `json:"slug"`
	Title                  optString           `json:"title"`
	CustomerName           optString           `json:"customer_name"`
	ExpectedDelivery       optString           `json:"expected_delivery"`
	OrderID                optString           `json:"order_id"`
	OrderIDPath            optString           `json:"order_id_path"`
	TrackingAccountNumber  optString           `json:"tracking_account_number"`
	TrackingPostalCode     optString           `json:"tracking_postal_code"`
	TrackingShipDate       optString           `json:"tracking_ship_date"`
	ShipmentType           optString           `json:"shipment_type"`
	SignedBy               optString           `json:"signed_by"`
	Source                 optString           `json:"source"`
	UniqueToken            optString           `json:"unique_token"`
	Smses                  optStrings          `json:"smses"`
	Emails                 optStrings          `json:"emails"`
	DestinationCountryISO3 optString           `json:"destination_country_iso3"`
	OriginCountryISO3      optString           `json:"origin_country_iso3"`
	CustomFields           optStringMap        `json:"custom_fields"`
	CreatedAt              optTime             `json:"created_at"`
	UpdatedAt              optTime             `json:"updated_at"`
	Active                 optBool             `json:"active"`
	ShipmentPackageCount   optInt              `json:"shipment_package_count"`
	Tag                    optString           `json:"tag"`
	TrackedCount           optInt              `json:"tracked_count"`
	Checkpoints            optList[Checkpoint] `json:"checkpoints"`
}

// UnmarshalJSON reads the AfterShip tracking object; absent keys keep zero values.
func (t *Tracking) UnmarshalJSON(b []byte) error {
	var w trackingWire
	if isObject(b) {
		if err := json.Unmarshal(b, &w); err != nil {
			return errors.Wrap(err, "decode tracking")
		}
	}
	*t = Tracking{
		ID:                    string(w.ID),
		TrackingNumber:        string(w.TrackingNumber),
		Slug:                  string(w.Slug),
		Title:                 string(w.Title),
		CustomerName:          string(w.CustomerName),
		OrderID:               string(w.OrderID),
		OrderIDPath:           string(w.OrderIDPath),
		Emails:                nonNil(w.Emails),
		Phones:                nonNil(w.Smses),
		DestinationCountry:    ParseIso3Country(string(w.DestinationCountryISO3)),
		OriginCountry:         ParseIso3Country(string(w.OriginCountryISO3)),
		CustomFields:          w.CustomFields,
		TrackingAccountNumber: string(w.TrackingAccountNumber),
		TrackingPostalCode:    string(w.TrackingPostalCode),
		TrackingShipDate:      string(w.TrackingShipDate),
		ExpectedDelivery:      string(w.ExpectedDelivery),
		ShipmentType:          string(w.ShipmentType),
		ShipmentPackageCount:  int(w.ShipmentPackageCount),
		SignedBy:              string(w.SignedBy),
		Source:                string(w.Source),
		UniqueToken:           string(w.UniqueToken),
		TrackedCount:          int(w.TrackedCount),
		Active:                bool(w.Active),
		Tag:                   ParseStatusTag(string(w.Tag)),
		CreatedAt:             time.Time(w.CreatedAt),
		UpdatedAt:             time.Time(w.UpdatedAt),
		Checkpoints:           []Checkpoint(w.Checkpoints),
	}
	if t.CustomFields == nil {
		t.CustomFields = map[string]string{}
	}
	if t.Checkpoints == nil {
		t.Checkpoints = []Checkpoint{}
	}
	return nil
}

// MarshalJSON writes the full wire form, readable back by UnmarshalJSON.
func (t Tracking) MarshalJSON() ([]byte, error) {
	return json.Marshal(trackingWire{
		ID:                     optString(t.ID),
		TrackingNumber:         optString(t.TrackingNumber),
		Slug:                   optString(t.Slug),
		Title:                  optString(t.Title),
		CustomerName:           optString(t.CustomerName),
		ExpectedDelivery:       optString(t.ExpectedDelivery),
		OrderID:                optString(t.OrderID),
		OrderIDPath:            optString(t.OrderIDPath),
		TrackingAccountNumber:  optString(t.TrackingAccountNumber),
		TrackingPostalCode:     optString(t.TrackingPostalCode),
		TrackingShipDate:       optString(t.TrackingShipDate),
		ShipmentType:           optString(t.ShipmentType),
		SignedBy:               optString(t.SignedBy),
		Source:                 optString(t.Source),
		UniqueToken:            optString(t.UniqueToken),
		Smses:                  optStrings(t.Phones),
		Emails:                 optStrings(t.Emails),
		DestinationCountryISO3: optString(t.DestinationCountry),
		OriginCountryISO3:      optString(t.OriginCountry),
		CustomFields:           optStringMap(t.CustomFields),
		CreatedAt:              optTime(t.CreatedAt),
		UpdatedAt:              optTime(t.UpdatedAt),
		Active:                 optBool(t.Active),
		ShipmentPackageCount:   optInt(t.ShipmentPackageCount),
		Tag:                    optString(t.Tag.String()),
		TrackedCount:           optInt(t.TrackedCount),
		Checkpoints:            t.Checkpoints,
	})
}

// ParseTracking decodes a single tracking object.
func ParseTracking(b []byte) (*Tracking, error) {
	var t Tracking
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

type trackingCreateFields struct {
	TrackingNumber         string            `json:"tracking_number"`
	Slug                   string            `json:"slug,omitempty"`
	Title                  string            `json:"title,omitempty"`
	Emails                 []string          `json:"emails,omitempty"`
	Smses                  []string          `json:"smses,omitempty"`
	CustomerName           string            `json:"customer_name,omitempty"`
	DestinationCountryISO3 string            `json:"destination_country_iso3,omitempty"`
	OrderID                string            `json:"order_id,omitempty"`
	OrderIDPath            string            `json:"order_id_path,omitempty"`
	TrackingAccountNumber  string            `json:"tracking_account_number,omitempty"`
	TrackingPostalCode     string            `json:"tracking_postal_code,omitempty"`
	TrackingShipDate       string            `json:"tracking_ship_date,omitempty"`
	CustomFields           map[string]string `json:"custom_fields,omitempty"`
}

type trackingUpdateFields struct {
	Title        string            `json:"title,omitempty"`
	Emails       []string          `json:"emails,omitempty"`
	Smses        []string          `json:"smses,omitempty"`
	CustomerName string            `json:"customer_name,omitempty"`
	OrderID      string            `json:"order_id,omitempty"`
	OrderIDPath  string            `json:"order_id_path,omitempty"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`
}

// MarshalCreate builds the POST /trackings body.
func (t *Tracking) MarshalCreate() ([]byte, error) {
	f := trackingCreateFields{
		TrackingNumber:        t.TrackingNumber,
		Slug:                  t.Slug,
		Title:                 t.Title,
		Emails:                t.Emails,
		Smses:                 t.Phones,
		CustomerName:          t.CustomerName,
		OrderID:               t.OrderID,
		OrderIDPath:           t.OrderIDPath,
		TrackingAccountNumber: t.TrackingAccountNumber,
		TrackingPostalCode:    t.TrackingPostalCode,
		TrackingShipDate:      t.TrackingShipDate,
		CustomFields:          t.CustomFields,
	}
	if t.DestinationCountry.Valid() {
		f.DestinationCountryISO3 = string(t.DestinationCountry)
	}
	return json.Marshal(map[string]any{"tracking": f})
}

// MarshalUpdate builds the PUT body. Tracking number and slug are immutable
// on the server side and never sent.
func (t *Tracking) MarshalUpdate() ([]byte, error) {
	return json.Marshal(map[string]any{"tracking": trackingUpdateFields{
		Title:        t.Title,
		Emails:       t.Emails,
		Smses:        t.Phones,
		CustomerName: t.CustomerName,
		OrderID:      t.OrderID,
		OrderIDPath:  t.OrderIDPath,
		CustomFields: t.CustomFields,
	}})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
