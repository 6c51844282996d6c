package messages

import (
	"time"

	"github.com/BearBump/ShipTrack/internal/integrations/aftership"
	"github.com/BearBump/ShipTrack/internal/models"
)

const (
	TopicShipmentEvents  = "shipment.events"
	TopicTrackingUpdated = "aftership.tracking.updated"
)

type ShipmentEventKind string

const (
	ShipmentInserted ShipmentEventKind = "inserted"
	ShipmentUpdated  ShipmentEventKind = "updated"
	ShipmentDeleted  ShipmentEventKind = "deleted"
)

// ShipmentChanged is published by the store whenever a shipment row changes.
type ShipmentChanged struct {
	Kind     ShipmentEventKind `json:"kind"`
	Shipment models.Shipment   `json:"shipment"`
	// StoreURL ends with "/", e.g. "https://shop.example.com/".
	StoreURL string `json:"storeUrl"`
}

// TrackingUpdated is published by the worker after it re-read a tracking.
type TrackingUpdated struct {
	EventID   string              `json:"event_id"`
	CheckedAt time.Time           `json:"checked_at"`
	Tracking  *aftership.Tracking `json:"tracking"`
}
