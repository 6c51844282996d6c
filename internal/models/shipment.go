package models

import (
	"strings"
	"time"
)

type Customer struct {
	FirstName string
	LastName  string
	Email     string
}

// FullName returns "First Last" without surrounding blanks.
func (c Customer) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

type Shipment struct {
	ID             int64    `json:"id"`
	OrderID        int64    `json:"orderId"`
	TrackingNumber string   `json:"trackingNumber"`
	Customer       Customer `json:"customer"`
}

// ShipmentStatusEvent is one line of shipment progress shown to the host.
type ShipmentStatusEvent struct {
	// CountryCode is ISO 3166-1 alpha-2 or "".
	CountryCode string    `json:"countryCode"`
	Date        time.Time `json:"date"`
	EventName   string    `json:"eventName"`
	Location    string    `json:"location"`
}
