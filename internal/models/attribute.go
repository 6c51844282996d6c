package models

// Attribute keys stored on a shipment once its tracking is registered.
const (
	KeyGroupShipment = "Shipment"

	AttrTrackingID        = "AfterShipTrackingId"
	AttrTrackingNumber    = "AfterShipTrackingNumber"
	AttrIsSetNotification = "IsSetNotification"
)

type Attribute struct {
	EntityID int64
	KeyGroup string
	Key      string
	Value    string
}

// Attributes is a key → value view of one entity's attributes.
type Attributes map[string]string

func (a Attributes) TrackingID() string     { return a[AttrTrackingID] }
func (a Attributes) TrackingNumber() string { return a[AttrTrackingNumber] }

// Registered reports whether the number was already sent to AfterShip.
func (a Attributes) Registered(number string) bool {
	return number != "" && a[AttrTrackingNumber] == number
}
