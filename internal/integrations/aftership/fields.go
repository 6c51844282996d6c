package aftership

// TrackingField names a tracking attribute for the fields parameter.
type TrackingField string

const (
	FieldID                     TrackingField = "id"
	FieldCreatedAt              TrackingField = "created_at"
	FieldUpdatedAt              TrackingField = "updated_at"
	FieldTrackingNumber         TrackingField = "tracking_number"
	FieldSlug                   TrackingField = "slug"
	FieldActive                 TrackingField = "active"
	FieldCustomFields           TrackingField = "custom_fields"
	FieldCustomerName           TrackingField = "customer_name"
	FieldDestinationCountryISO3 TrackingField = "destination_country_iso3"
	FieldEmails                 TrackingField = "emails"
	FieldExpectedDelivery       TrackingField = "expected_delivery"
	FieldOrderID                TrackingField = "order_id"
	FieldOrderIDPath            TrackingField = "order_id_path"
	FieldOriginCountryISO3      TrackingField = "origin_country_iso3"
	FieldShipmentPackageCount   TrackingField = "shipment_package_count"
	FieldShipmentType           TrackingField = "shipment_type"
	FieldSignedBy               TrackingField = "signed_by"
	FieldPhones                 TrackingField = "smses"
	FieldSource                 TrackingField = "source"
	FieldTag                    TrackingField = "tag"
	FieldTitle                  TrackingField = "title"
	FieldTrackedCount           TrackingField = "tracked_count"
	FieldCheckpoints            TrackingField = "checkpoints"
)

var trackingFields = map[TrackingField]struct{}{
	FieldID: {}, FieldCreatedAt: {}, FieldUpdatedAt: {}, FieldTrackingNumber: {},
	FieldSlug: {}, FieldActive: {}, FieldCustomFields: {}, FieldCustomerName: {},
	FieldDestinationCountryISO3: {}, FieldEmails: {}, FieldExpectedDelivery: {},
	FieldOrderID: {}, FieldOrderIDPath: {}, FieldOriginCountryISO3: {},
	FieldShipmentPackageCount: {}, FieldShipmentType: {}, FieldSignedBy: {},
	FieldPhones: {}, FieldSource: {}, FieldTag: {}, FieldTitle: {},
	FieldTrackedCount: {}, FieldCheckpoints: {},
}

func ParseTrackingField(s string) (TrackingField, bool) {
	f := TrackingField(s)
	_, ok := trackingFields[f]
	return f, ok
}

type CheckpointField string

const (
	CheckpointCreatedAt   CheckpointField = "created_at"
	CheckpointTimeField   CheckpointField = "checkpoint_time"
	CheckpointCity        CheckpointField = "city"
	CheckpointCoordinates CheckpointField = "coordinates"
	CheckpointCountryISO3 CheckpointField = "country_iso3"
	CheckpointCountryName CheckpointField = "country_name"
	CheckpointMessage     CheckpointField = "message"
	CheckpointState       CheckpointField = "state"
	CheckpointTag         CheckpointField = "tag"
	CheckpointZip         CheckpointField = "zip"
)

var checkpointFields = map[CheckpointField]struct{}{
	CheckpointCreatedAt: {}, CheckpointTimeField: {}, CheckpointCity: {},
	CheckpointCoordinates: {}, CheckpointCountryISO3: {}, CheckpointCountryName: {},
	CheckpointMessage: {}, CheckpointState: {}, CheckpointTag: {}, CheckpointZip: {},
}

func ParseCheckpointField(s string) (CheckpointField, bool) {
	f := CheckpointField(s)
	_, ok := checkpointFields[f]
	return f, ok
}

func fieldStrings[T ~string](fs []T) []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, string(f))
	}
	return out
}
