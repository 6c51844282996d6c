package registration

import (
	"context"
	"fmt"
	"strconv"

	"github.com/BearBump/ShipTrack/internal/broker/messages"
	"github.com/BearBump/ShipTrack/internal/integrations/aftership"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type API interface {
	CreateTracking(ctx context.Context, t *aftership.Tracking) (*aftership.Tracking, error)
	DeleteTracking(ctx context.Context, t *aftership.Tracking) (bool, error)
	DetectCouriers(ctx context.Context, req aftership.DetectRequest) ([]aftership.Courier, error)
}

type ClientFactory func(apiKey string) API

type SettingsProvider interface {
	Load(ctx context.Context) (models.Settings, error)
}

type AttributeStore interface {
	GetAttributes(ctx context.Context, keyGroup string, entityID int64) (models.Attributes, error)
	SaveAttribute(ctx context.Context, a models.Attribute) error
	DeleteAttributes(ctx context.Context, keyGroup string, entityID int64, keys ...string) error
}

type Recorder interface {
	RecordRegistration(kind, outcome string)
}

// Service registers shipments on AfterShip as they are created, renumbered
// and deleted. AfterShip failures are logged and swallowed; attribute store
// failures are returned so the event can be redelivered.
type Service struct {
	clients  ClientFactory
	settings SettingsProvider
	attrs    AttributeStore
	log      *zap.Logger
	recorder Recorder
}

func New(clients ClientFactory, settings SettingsProvider, attrs AttributeStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{clients: clients, settings: settings, attrs: attrs, log: log}
}

func (s *Service) WithRecorder(r Recorder) *Service {
	s.recorder = r
	return s
}

func (s *Service) Handle(ctx context.Context, msg messages.ShipmentChanged) error {
	switch msg.Kind {
	case messages.ShipmentInserted:
		return s.ShipmentInserted(ctx, msg.Shipment, msg.StoreURL)
	case messages.ShipmentUpdated:
		return s.ShipmentUpdated(ctx, msg.Shipment, msg.StoreURL)
	case messages.ShipmentDeleted:
		return s.ShipmentDeleted(ctx, msg.Shipment)
	default:
		return errors.Errorf("unknown shipment event kind %q", msg.Kind)
	}
}

func (s *Service) ShipmentInserted(ctx context.Context, sh models.Shipment, storeURL string) error {
	api, settings, ok := s.connect(ctx)
	if !ok || sh.TrackingNumber == "" {
		return nil
	}
	attrs, err := s.attrs.GetAttributes(ctx, models.KeyGroupShipment, sh.ID)
	if err != nil {
		return errors.Wrap(err, "get shipment attributes")
	}
	if registered(attrs, sh.TrackingNumber) {
		s.record("inserted", "skipped")
		return nil
	}
	return s.register(ctx, api, settings, sh, storeURL, "inserted")
}

func (s *Service) ShipmentUpdated(ctx context.Context, sh models.Shipment, storeURL string) error {
	api, settings, ok := s.connect(ctx)
	if !ok {
		return nil
	}
	attrs, err := s.attrs.GetAttributes(ctx, models.KeyGroupShipment, sh.ID)
	if err != nil {
		return errors.Wrap(err, "get shipment attributes")
	}

	old := attrs.TrackingNumber()
	if old != "" && old != sh.TrackingNumber {
		if s.deleteRemote(ctx, api, attrs.TrackingID(), old) {
			if err := s.attrs.DeleteAttributes(ctx, models.KeyGroupShipment, sh.ID); err != nil {
				return errors.Wrap(err, "clear shipment attributes")
			}
		} else {
			s.record("updated", "delete_failed")
			s.log.Warn("old tracking left on AfterShip",
				zap.Int64("shipment_id", sh.ID),
				zap.String("old_tracking_number", old),
				zap.String("tracking_number", sh.TrackingNumber))
		}
		// register overwrites the id and number with the new ones
		attrs = models.Attributes{}
	}

	if sh.TrackingNumber == "" || registered(attrs, sh.TrackingNumber) {
		s.record("updated", "skipped")
		return nil
	}
	return s.register(ctx, api, settings, sh, storeURL, "updated")
}

func (s *Service) ShipmentDeleted(ctx context.Context, sh models.Shipment) error {
	api, _, ok := s.connect(ctx)
	if !ok {
		return nil
	}
	attrs, err := s.attrs.GetAttributes(ctx, models.KeyGroupShipment, sh.ID)
	if err != nil {
		return errors.Wrap(err, "get shipment attributes")
	}
	number := attrs.TrackingNumber()
	if number == "" {
		number = sh.TrackingNumber
	}
	if number == "" && attrs.TrackingID() == "" {
		return nil
	}

	if s.deleteRemote(ctx, api, attrs.TrackingID(), number) {
		s.record("deleted", "deleted")
	} else {
		s.record("deleted", "delete_failed")
	}
	if len(attrs) == 0 {
		return nil
	}
	if err := s.attrs.DeleteAttributes(ctx, models.KeyGroupShipment, sh.ID); err != nil {
		return errors.Wrap(err, "clear shipment attributes")
	}
	return nil
}

func (s *Service) register(ctx context.Context, api API, settings models.Settings, sh models.Shipment, storeURL, kind string) error {
	created, err := api.CreateTracking(ctx, NewTrackingFor(sh, storeURL, settings.AllowCustomerNotification))
	if err != nil {
		s.log.Error("create AfterShip tracking",
			zap.Int64("shipment_id", sh.ID),
			zap.String("tracking_number", sh.TrackingNumber),
			zap.Error(err))
		s.record(kind, "create_failed")
		return nil
	}

	save := []models.Attribute{
		{Key: models.AttrTrackingNumber, Value: sh.TrackingNumber},
		{Key: models.AttrIsSetNotification, Value: "True"},
	}
	if created.ID != "" {
		save = append([]models.Attribute{{Key: models.AttrTrackingID, Value: created.ID}}, save...)
	}
	for _, a := range save {
		a.EntityID = sh.ID
		a.KeyGroup = models.KeyGroupShipment
		if err := s.attrs.SaveAttribute(ctx, a); err != nil {
			return errors.Wrapf(err, "save attribute %s", a.Key)
		}
	}

	s.log.Info("AfterShip tracking registered",
		zap.Int64("shipment_id", sh.ID),
		zap.String("tracking_number", sh.TrackingNumber),
		zap.String("tracking_id", created.ID),
		zap.String("slug", created.Slug))
	s.record(kind, "created")
	return nil
}

// deleteRemote removes the tracking by id, or by number on each detected
// courier until one succeeds. An already missing tracking counts as deleted.
func (s *Service) deleteRemote(ctx context.Context, api API, id, number string) bool {
	if id != "" {
		ok, err := api.DeleteTracking(ctx, &aftership.Tracking{ID: id})
		if (err == nil && ok) || aftership.IsNotFound(err) {
			return true
		}
		if err != nil {
			s.log.Warn("delete AfterShip tracking by id", zap.String("tracking_id", id), zap.Error(err))
		}
	}
	if number == "" {
		return false
	}

	couriers, err := api.DetectCouriers(ctx, aftership.DetectRequest{TrackingNumber: number})
	if err != nil {
		s.log.Warn("detect couriers for delete", zap.String("tracking_number", number), zap.Error(err))
		return false
	}
	for _, c := range couriers {
		ok, err := api.DeleteTracking(ctx, &aftership.Tracking{Slug: c.Slug, TrackingNumber: number})
		if err == nil && ok {
			return true
		}
		if err != nil && !aftership.IsNotFound(err) {
			s.log.Warn("delete AfterShip tracking",
				zap.String("tracking_number", number),
				zap.String("slug", c.Slug),
				zap.Error(err))
		}
	}
	return false
}

func (s *Service) connect(ctx context.Context) (API, models.Settings, bool) {
	settings, err := s.settings.Load(ctx)
	if err != nil {
		s.log.Warn("load settings", zap.Error(err))
		return nil, settings, false
	}
	if !settings.HasAPIKey() {
		return nil, settings, false
	}
	return s.clients(settings.APIKey), settings, true
}

func (s *Service) record(kind, outcome string) {
	if s.recorder != nil {
		s.recorder.RecordRegistration(kind, outcome)
	}
}

// NewTrackingFor builds the create request of a shipment.
func NewTrackingFor(sh models.Shipment, storeURL string, notify bool) *aftership.Tracking {
	t := aftership.NewTracking(sh.TrackingNumber)
	t.CustomerName = sh.Customer.FullName()
	t.OrderID = fmt.Sprintf("ID %d", sh.OrderID)
	t.OrderIDPath = storeURL + "orderdetails/" + strconv.FormatInt(sh.OrderID, 10)
	if notify && sh.Customer.Email != "" {
		t.Emails = []string{sh.Customer.Email}
	}
	return t
}

// registered: a recorded number must match; records without a number but
// with the notification flag were made before numbers were stored.
func registered(attrs models.Attributes, number string) bool {
	if n := attrs.TrackingNumber(); n != "" {
		return n == number
	}
	return attrs[models.AttrIsSetNotification] != ""
}
