package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/BearBump/ShipTrack/internal/broker/messages"
	cachemocks "github.com/BearBump/ShipTrack/internal/cache/mocks"
	"github.com/BearBump/ShipTrack/internal/directory"
	"github.com/BearBump/ShipTrack/internal/integrations/aftership"
	"github.com/BearBump/ShipTrack/internal/locale"
	"github.com/BearBump/ShipTrack/internal/models"
	trackermocks "github.com/BearBump/ShipTrack/internal/services/tracker/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type TrackerSuite struct {
	suite.Suite

	api      *trackermocks.MockAPI
	settings *trackermocks.MockSettingsProvider
	attrs    *trackermocks.MockAttributeReader
	cache    *cachemocks.MockBytesCache
	catalog  *locale.Catalog

	keys []string
	tr   *Tracker
}

func (s *TrackerSuite) SetupTest() {
	s.api = &trackermocks.MockAPI{}
	s.settings = &trackermocks.MockSettingsProvider{}
	s.attrs = &trackermocks.MockAttributeReader{}
	s.cache = &cachemocks.MockBytesCache{}
	s.catalog = locale.NewCatalog()
	s.keys = nil

	factory := func(key string) API {
		s.keys = append(s.keys, key)
		return s.api
	}
	s.tr = New(factory, s.settings, s.catalog, directory.NewCountries(), s.attrs, nil)
}

func (s *TrackerSuite) configured() {
	s.settings.On("Load", mock.Anything).Return(models.Settings{APIKey: "key"}, nil)
}

func bySlug(slug string) any {
	return mock.MatchedBy(func(t *aftership.Tracking) bool {
		return t.Slug == slug && t.ID == ""
	})
}

func byID(id string) any {
	return mock.MatchedBy(func(t *aftership.Tracking) bool { return t.ID == id })
}

func checkpoints(n int) []aftership.Checkpoint {
	out := make([]aftership.Checkpoint, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, aftership.Checkpoint{
			CheckpointTime: "2024-03-0" + string(rune('1'+i)) + "T10:00:00",
			Message:        "step",
			Tag:            "InTransit",
			City:           "Paris",
			CountryISO3:    "FRA",
		})
	}
	return out
}

func (s *TrackerSuite) TestPlaceholderKey_NoNetwork() {
	s.settings.On("Load", mock.Anything).Return(models.Settings{APIKey: models.PlaceholderAPIKey}, nil)

	out := s.tr.GetShipmentEvents(context.Background(), 1, "ANY123")
	s.Require().NotNil(out)
	s.Require().Empty(out)
	s.Require().Empty(s.keys)
	s.api.AssertNotCalled(s.T(), "DetectCouriers", mock.Anything, mock.Anything)
}

func (s *TrackerSuite) TestEmptyNumber_NoLookup() {
	out := s.tr.GetShipmentEvents(context.Background(), 1, "")
	s.Require().NotNil(out)
	s.Require().Empty(out)
	s.settings.AssertNotCalled(s.T(), "Load", mock.Anything)
}

func (s *TrackerSuite) TestSettingsError_Empty() {
	s.settings.On("Load", mock.Anything).Return(models.Settings{}, errors.New("db down"))
	s.Require().Empty(s.tr.GetShipmentEvents(context.Background(), 1, "N"))
	s.Require().Empty(s.keys)
}

func (s *TrackerSuite) TestNoCouriers_EmptyList() {
	s.configured()
	s.api.On("DetectCouriers", mock.Anything, aftership.DetectRequest{TrackingNumber: "N"}).
		Return([]aftership.Courier{}, nil).Once()

	out := s.tr.GetShipmentEvents(context.Background(), 0, "N")
	s.Require().NotNil(out)
	s.Require().Empty(out)
	s.Require().Equal([]string{"key"}, s.keys)
	s.api.AssertExpectations(s.T())
}

func (s *TrackerSuite) TestSecondCandidateWins_NoFurtherCalls() {
	s.configured()
	s.api.On("DetectCouriers", mock.Anything, mock.Anything).
		Return([]aftership.Courier{{Slug: "a"}, {Slug: "b"}, {Slug: "c"}}, nil).Once()
	s.api.On("GetTracking", mock.Anything, bySlug("a"), mock.Anything).
		Return(&aftership.Tracking{Slug: "a", TrackingNumber: "N", Checkpoints: []aftership.Checkpoint{}}, nil).Once()
	s.api.On("GetTracking", mock.Anything, bySlug("b"), mock.Anything).
		Return(&aftership.Tracking{Slug: "b", TrackingNumber: "N", Checkpoints: checkpoints(3)}, nil).Once()

	out := s.tr.GetShipmentEvents(context.Background(), 0, "N")
	s.Require().Len(out, 3)
	s.api.AssertNotCalled(s.T(), "GetTracking", mock.Anything, bySlug("c"), mock.Anything)
	s.api.AssertExpectations(s.T())
}

func (s *TrackerSuite) TestStoredTrackingID_FetchedDirectly() {
	s.configured()
	s.attrs.On("GetAttributes", mock.Anything, models.KeyGroupShipment, int64(42)).
		Return(models.Attributes{models.AttrTrackingID: "tid", models.AttrTrackingNumber: "N"}, nil).Once()
	s.api.On("GetTracking", mock.Anything, byID("tid"), mock.Anything).
		Return(&aftership.Tracking{ID: "tid", TrackingNumber: "N", Checkpoints: checkpoints(2)}, nil).Once()

	out := s.tr.GetShipmentEvents(context.Background(), 42, "N")
	s.Require().Len(out, 2)
	s.api.AssertNotCalled(s.T(), "DetectCouriers", mock.Anything, mock.Anything)
	s.api.AssertExpectations(s.T())
}

func (s *TrackerSuite) TestStoredTrackingID_StaleNumberIgnored() {
	s.configured()
	s.attrs.On("GetAttributes", mock.Anything, models.KeyGroupShipment, int64(42)).
		Return(models.Attributes{models.AttrTrackingID: "old", models.AttrTrackingNumber: "OLD"}, nil).Once()
	s.api.On("DetectCouriers", mock.Anything, mock.Anything).Return([]aftership.Courier{}, nil).Once()

	s.Require().Empty(s.tr.GetShipmentEvents(context.Background(), 42, "NEW"))
	s.api.AssertNotCalled(s.T(), "GetTracking", mock.Anything, byID("old"), mock.Anything)
}

func (s *TrackerSuite) TestStoredTrackingID_NotFoundFallsBackToDetect() {
	s.configured()
	s.attrs.On("GetAttributes", mock.Anything, models.KeyGroupShipment, int64(42)).
		Return(models.Attributes{models.AttrTrackingID: "gone"}, nil).Once()
	s.api.On("GetTracking", mock.Anything, byID("gone"), mock.Anything).
		Return(nil, &aftership.APIError{StatusCode: http.StatusNotFound, Code: 4004}).Once()
	s.api.On("DetectCouriers", mock.Anything, mock.Anything).
		Return([]aftership.Courier{{Slug: "ups"}}, nil).Once()
	s.api.On("GetTracking", mock.Anything, bySlug("ups"), mock.Anything).
		Return(&aftership.Tracking{Slug: "ups", TrackingNumber: "N", Checkpoints: checkpoints(1)}, nil).Once()

	s.Require().Len(s.tr.GetShipmentEvents(context.Background(), 42, "N"), 1)
	s.api.AssertExpectations(s.T())
}

func (s *TrackerSuite) TestDetectError_Empty() {
	s.configured()
	s.api.On("DetectCouriers", mock.Anything, mock.Anything).
		Return(nil, errors.New("dial tcp: timeout")).Once()

	out := s.tr.GetShipmentEvents(context.Background(), 0, "N")
	s.Require().NotNil(out)
	s.Require().Empty(out)
}

func (s *TrackerSuite) TestCandidateErrorDoesNotStopProbing() {
	s.configured()
	s.api.On("DetectCouriers", mock.Anything, mock.Anything).
		Return([]aftership.Courier{{Slug: "a"}, {Slug: "b"}}, nil).Once()
	s.api.On("GetTracking", mock.Anything, bySlug("a"), mock.Anything).
		Return(nil, &aftership.APIError{StatusCode: http.StatusInternalServerError}).Once()
	s.api.On("GetTracking", mock.Anything, bySlug("b"), mock.Anything).
		Return(&aftership.Tracking{Slug: "b", TrackingNumber: "N", Checkpoints: checkpoints(2)}, nil).Once()

	s.Require().Len(s.tr.GetShipmentEvents(context.Background(), 0, "N"), 2)
}

func (s *TrackerSuite) TestResolve_Variants() {
	ctx := context.Background()

	s.api.On("DetectCouriers", mock.Anything, aftership.DetectRequest{TrackingNumber: "AMB"}).
		Return([]aftership.Courier{{Slug: "a"}, {Slug: "b"}}, nil)
	s.api.On("GetTracking", mock.Anything, mock.MatchedBy(func(t *aftership.Tracking) bool {
		return t.TrackingNumber == "AMB"
	}), mock.Anything).Return(&aftership.Tracking{TrackingNumber: "AMB"}, nil)

	res, err := s.tr.Resolve(ctx, "key", 0, "AMB")
	s.Require().NoError(err)
	s.Require().Equal(Ambiguous, res.Kind)
	s.Require().Len(res.Candidates, 2)

	s.api.On("DetectCouriers", mock.Anything, aftership.DetectRequest{TrackingNumber: "ONE"}).
		Return([]aftership.Courier{{Slug: "x"}}, nil)
	s.api.On("GetTracking", mock.Anything, mock.MatchedBy(func(t *aftership.Tracking) bool {
		return t.TrackingNumber == "ONE"
	}), mock.Anything).Return(&aftership.Tracking{Slug: "x", TrackingNumber: "ONE"}, nil)

	res, err = s.tr.Resolve(ctx, "key", 0, "ONE")
	s.Require().NoError(err)
	s.Require().Equal(Found, res.Kind)
	s.Require().Equal("x", res.Tracking.Slug)

	s.api.On("DetectCouriers", mock.Anything, aftership.DetectRequest{TrackingNumber: "MISS"}).
		Return([]aftership.Courier{{Slug: "y"}}, nil)
	s.api.On("GetTracking", mock.Anything, mock.MatchedBy(func(t *aftership.Tracking) bool {
		return t.TrackingNumber == "MISS"
	}), mock.Anything).Return(nil, &aftership.APIError{StatusCode: http.StatusNotFound, Code: 4004})

	res, err = s.tr.Resolve(ctx, "key", 0, "MISS")
	s.Require().NoError(err)
	s.Require().Equal(NotFound, res.Kind)
	s.Require().Equal("not_found", res.Kind.String())
}

func (s *TrackerSuite) TestMapping() {
	s.configured()
	s.api.On("DetectCouriers", mock.Anything, mock.Anything).
		Return([]aftership.Courier{{Slug: "dhl"}}, nil).Once()
	s.api.On("GetTracking", mock.Anything, bySlug("dhl"), mock.Anything).
		Return(&aftership.Tracking{Slug: "dhl", TrackingNumber: "N", Checkpoints: []aftership.Checkpoint{
			{CheckpointTime: "2024-03-01T10:30:00", Message: "Arrived", Tag: "InTransit", City: "Berlin", CountryISO3: "DEU"},
			{CheckpointTime: "bogus", Message: "Held", Tag: "Weird", Location: "Customs", CountryISO3: aftership.CountryNull},
			{CheckpointTime: "2024-03-03T08:00:00+02:00", Message: "Delivered", Tag: "Delivered"},
		}}, nil).Once()

	out := s.tr.GetShipmentEvents(context.Background(), 0, "N")
	s.Require().Len(out, 3)

	s.Require().Equal("DE", out[0].CountryCode)
	s.Require().Equal(time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC), out[0].Date)
	s.Require().Equal("Arrived (Carrier has accepted or picked up shipment from shipper. The shipment is on the way.)", out[0].EventName)
	s.Require().Equal("Berlin", out[0].Location)

	s.Require().Equal("", out[1].CountryCode)
	s.Require().True(out[1].Date.IsZero())
	s.Require().Equal("Held (Custom hold, undelivered, returned shipment to sender or any shipping exceptions.)", out[1].EventName)
	s.Require().Equal("Customs", out[1].Location)

	s.Require().True(out[2].Date.Equal(time.Date(2024, 3, 3, 6, 0, 0, 0, time.UTC)))
	s.Require().Equal("Delivered (The shipment was delivered successfully.)", out[2].EventName)
}

func (s *TrackerSuite) TestStatusText_AllTags() {
	want := map[string]string{
		"Pending":        "Pending",
		"InfoReceived":   "InfoReceived",
		"InTransit":      "InTransit",
		"OutForDelivery": "OutForDelivery",
		"AttemptFail":    "AttemptFail",
		"Delivered":      "Delivered",
		"Expired":        "Expired",
		"Exception":      "Exception",
		"":               "Exception",
		"SomethingNew":   "Exception",
		"delivered":      "Exception",
		"IN_TRANSIT":     "Exception",
	}
	for wire, key := range want {
		got := s.tr.StatusText(aftership.ParseStatusTag(wire), locale.DefaultLanguage)
		s.Require().Equal(s.catalog.Resolve(locale.StatusKeyPrefix+key, locale.DefaultLanguage), got, wire)
		s.Require().NotEqual(locale.StatusKeyPrefix+key, got)
	}
}

func (s *TrackerSuite) TestLanguageFromContext() {
	s.catalog.Merge(2, map[string]string{locale.StatusKeyPrefix + "Delivered": "Zugestellt"})
	s.configured()
	s.api.On("DetectCouriers", mock.Anything, mock.Anything).Return([]aftership.Courier{{Slug: "dhl"}}, nil).Once()
	s.api.On("GetTracking", mock.Anything, bySlug("dhl"), mock.Anything).
		Return(&aftership.Tracking{Slug: "dhl", TrackingNumber: "N", Checkpoints: []aftership.Checkpoint{
			{Message: "Paket", Tag: "Delivered"},
		}}, nil).Once()

	out := s.tr.GetShipmentEvents(locale.WithLanguage(context.Background(), 2), 0, "N")
	s.Require().Len(out, 1)
	s.Require().Equal("Paket (Zugestellt)", out[0].EventName)
}

func (s *TrackerSuite) TestGetURL() {
	s.settings.On("Load", mock.Anything).Return(models.Settings{Username: models.PlaceholderUsername}, nil).Once()
	s.Require().Equal("https://track.aftership.com/ABC123", s.tr.GetURL(context.Background(), "ABC123"))

	s.settings.On("Load", mock.Anything).Return(models.Settings{Username: ""}, nil).Once()
	s.Require().Equal("https://track.aftership.com/ABC123", s.tr.GetURL(context.Background(), "ABC123"))

	s.settings.On("Load", mock.Anything).Return(models.Settings{Username: "acme"}, nil).Once()
	s.Require().Equal("https://acme.aftership.com/ABC123", s.tr.GetURL(context.Background(), "ABC123"))
	s.Require().Empty(s.keys)
}

func (s *TrackerSuite) TestCacheHit_NoNetwork() {
	s.configured()
	s.tr.WithCache(s.cache, NewPlanner(DefaultPlannerConfig(), nil))

	b, err := json.Marshal(&aftership.Tracking{ID: "t", TrackingNumber: "N", Checkpoints: checkpoints(2)})
	s.Require().NoError(err)
	s.cache.On("Get", mock.Anything, "tracking:N").Return(b, true, nil).Once()

	s.Require().Len(s.tr.GetShipmentEvents(context.Background(), 0, "N"), 2)
	s.api.AssertNotCalled(s.T(), "DetectCouriers", mock.Anything, mock.Anything)
	s.cache.AssertExpectations(s.T())
}

func (s *TrackerSuite) TestCacheMiss_StoresWithPlannerTTL() {
	s.configured()
	s.tr.WithCache(s.cache, NewPlanner(PlannerConfig{DeliveredTTL: time.Hour}, nil))

	s.cache.On("Get", mock.Anything, "tracking:N").Return(nil, false, nil).Once()
	s.cache.On("Set", mock.Anything, "tracking:N", mock.Anything, time.Hour).Return(errors.New("ignored")).Once()
	s.api.On("DetectCouriers", mock.Anything, mock.Anything).Return([]aftership.Courier{{Slug: "dhl"}}, nil).Once()
	s.api.On("GetTracking", mock.Anything, bySlug("dhl"), mock.Anything).
		Return(&aftership.Tracking{Slug: "dhl", TrackingNumber: "N", Tag: aftership.StatusDelivered, Checkpoints: checkpoints(1)}, nil).Once()

	s.Require().Len(s.tr.GetShipmentEvents(context.Background(), 0, "N"), 1)
	s.cache.AssertExpectations(s.T())
}

func (s *TrackerSuite) TestApplyTrackingUpdate() {
	s.Require().Error(s.tr.ApplyTrackingUpdate(context.Background(), messages.TrackingUpdated{}))
	// no cache: no-op
	s.Require().NoError(s.tr.ApplyTrackingUpdate(context.Background(), messages.TrackingUpdated{
		Tracking: &aftership.Tracking{TrackingNumber: "N"},
	}))

	s.tr.WithCache(s.cache, NewPlanner(PlannerConfig{ExpiredTTL: 2 * time.Hour}, nil))
	s.cache.On("Set", mock.Anything, "tracking:N", mock.Anything, 2*time.Hour).Return(nil).Once()
	s.Require().NoError(s.tr.ApplyTrackingUpdate(context.Background(), messages.TrackingUpdated{
		EventID:  "e",
		Tracking: &aftership.Tracking{TrackingNumber: "N", Tag: aftership.StatusExpired},
	}))
	s.cache.AssertExpectations(s.T())
}

func (s *TrackerSuite) TestConcurrentProbing_FindsTracking() {
	s.configured()
	s.tr.WithProbing(3, time.Second)
	s.api.On("DetectCouriers", mock.Anything, mock.Anything).
		Return([]aftership.Courier{{Slug: "a"}, {Slug: "b"}, {Slug: "c"}}, nil).Once()
	s.api.On("GetTracking", mock.Anything, bySlug("a"), mock.Anything).
		Return(nil, &aftership.APIError{StatusCode: http.StatusNotFound, Code: 4004}).Maybe()
	s.api.On("GetTracking", mock.Anything, bySlug("b"), mock.Anything).
		Return(&aftership.Tracking{Slug: "b", TrackingNumber: "N", Checkpoints: checkpoints(3)}, nil).Once()
	s.api.On("GetTracking", mock.Anything, bySlug("c"), mock.Anything).
		Return(&aftership.Tracking{Slug: "c", TrackingNumber: "N"}, nil).Maybe()

	out := s.tr.GetShipmentEvents(context.Background(), 0, "N")
	s.Require().Len(out, 3)
}

func TestTrackerSuite(t *testing.T) {
	suite.Run(t, new(TrackerSuite))
}
