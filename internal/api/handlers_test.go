// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sentinel/internal/auth"
	"github.com/tomtom215/sentinel/internal/config"
	"github.com/tomtom215/sentinel/internal/journey"
	"github.com/tomtom215/sentinel/internal/models"
	"github.com/tomtom215/sentinel/internal/presence"
	"github.com/tomtom215/sentinel/internal/proximity"
	"github.com/tomtom215/sentinel/internal/rooms"
	ws "github.com/tomtom215/sentinel/internal/websocket"
)

type fakeJourneys struct {
	startErr    error
	stopErr     error
	respondErr  error
	checkErr    error
	checkResult *journey.CheckResult

	startCalls   int
	checkCalls   int
	respondOkay  bool
	lastLat      float64
	lastLng      float64
	lastIdentity string
}

func (f *fakeJourneys) Start(_ context.Context, identityID string, from, to models.Waypoint, path []models.Coordinate) (*models.Journey, error) {
	f.startCalls++
	f.lastIdentity = identityID
	if f.startErr != nil {
		return nil, f.startErr
	}
	now := time.Now()
	return &models.Journey{
		IsActive:          true,
		From:              from,
		To:                to,
		SelectedRoutePath: path,
		StartedAt:         &now,
	}, nil
}

func (f *fakeJourneys) Stop(_ context.Context, identityID string) error {
	f.lastIdentity = identityID
	return f.stopErr
}

func (f *fakeJourneys) RespondOkay(_ context.Context, identityID string, isOkay bool) error {
	f.lastIdentity = identityID
	f.respondOkay = isOkay
	return f.respondErr
}

func (f *fakeJourneys) CheckDeviation(_ context.Context, identityID string, lat, lng float64) (*journey.CheckResult, error) {
	f.checkCalls++
	f.lastIdentity = identityID
	f.lastLat = lat
	f.lastLng = lng
	if f.checkErr != nil {
		return nil, f.checkErr
	}
	if f.checkResult != nil {
		return f.checkResult, nil
	}
	return &journey.CheckResult{OnRoute: true}, nil
}

type fakeProximity struct {
	nearbyErr  error
	sosErr     error
	users      []models.NearbyUser
	lastRadius float64
	lastOrigin models.Coordinate
	lastSender string
}

func (f *fakeProximity) FindNearby(_ context.Context, origin models.Coordinate, radiusKm float64, excludeID string) ([]models.NearbyUser, error) {
	f.lastOrigin = origin
	f.lastRadius = radiusKm
	f.lastSender = excludeID
	if f.nearbyErr != nil {
		return nil, f.nearbyErr
	}
	return f.users, nil
}

func (f *fakeProximity) BroadcastSOS(_ context.Context, senderID string, origin models.Coordinate, address string) (*proximity.SOSResult, error) {
	f.lastSender = senderID
	f.lastOrigin = origin
	if f.sosErr != nil {
		return nil, f.sosErr
	}
	return &proximity.SOSResult{AlertID: "alert-1", NotifiedCount: 2, NotifiedIDs: []string{"a", "b"}}, nil
}

type fakeLocations struct {
	saveErr error
	saved   []*models.LocationSnapshot
}

func (f *fakeLocations) SaveSnapshot(_ context.Context, snap *models.LocationSnapshot) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, snap)
	return nil
}

type fakeDirectory struct {
	identities map[string]*models.Identity
}

func (f *fakeDirectory) GetIdentity(_ context.Context, id string) (*models.Identity, error) {
	ident, ok := f.identities[id]
	if !ok {
		return nil, fmt.Errorf("identity %s not found", id)
	}
	return ident, nil
}

type publishCall struct {
	channel string
	event   string
}

type fakeHub struct {
	calls []publishCall
}

func (f *fakeHub) Publish(channel, event string, _ interface{}) {
	f.calls = append(f.calls, publishCall{channel: channel, event: event})
}

type handlerFixture struct {
	handler   *Handler
	journeys  *fakeJourneys
	proximity *fakeProximity
	locations *fakeLocations
	hub       *fakeHub
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	directory := &fakeDirectory{identities: map[string]*models.Identity{
		"child-1":  {ID: "child-1", DisplayName: "Child", ParentID: "parent-1"},
		"parent-1": {ID: "parent-1", DisplayName: "Parent", ChildIDs: []string{"child-1"}},
	}}
	hub := &fakeHub{}
	journeys := &fakeJourneys{}
	prox := &fakeProximity{}
	locations := &fakeLocations{}

	cfg := &config.Config{}
	cfg.Safety.NearbyDefaultRadiusKm = 5
	cfg.Security.CORSOrigins = []string{"https://app.example.com"}

	h := NewHandler(cfg, journeys, prox, locations, rooms.NewTopology(directory, hub), ws.NewHub(), presence.NewRegistry())
	return &handlerFixture{handler: h, journeys: journeys, proximity: prox, locations: locations, hub: hub}
}

func authedRequest(method, target, body string) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, bytes.NewBufferString(body))
	}
	return r.WithContext(auth.ContextWithIdentity(r.Context(), "child-1"))
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v (body %q)", err, rec.Body.String())
	}
	return resp
}

func TestJourneyStart_Success(t *testing.T) {
	f := newHandlerFixture(t)
	body := `{
		"from": {"name": "Home", "latitude": 10, "longitude": 10},
		"to": {"name": "School", "latitude": 10.1, "longitude": 10},
		"route_path": [{"latitude": 10, "longitude": 10}, {"latitude": 10.1, "longitude": 10}]
	}`

	rec := httptest.NewRecorder()
	f.handler.JourneyStart(rec, authedRequest(http.MethodPost, "/api/v1/journey/start", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	if resp.Status != "success" {
		t.Errorf("status = %q, want success", resp.Status)
	}
	if f.journeys.lastIdentity != "child-1" {
		t.Errorf("identity = %q, want child-1", f.journeys.lastIdentity)
	}
}

func TestJourneyStart_OutOfRangeLatitudeRejected(t *testing.T) {
	f := newHandlerFixture(t)
	body := `{
		"from": {"name": "Home", "latitude": 91, "longitude": 10},
		"to": {"name": "School", "latitude": 10.1, "longitude": 10}
	}`

	rec := httptest.NewRecorder()
	f.handler.JourneyStart(rec, authedRequest(http.MethodPost, "/api/v1/journey/start", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("error = %+v, want VALIDATION_ERROR", resp.Error)
	}
	if f.journeys.startCalls != 0 {
		t.Errorf("engine reached with invalid coordinates")
	}
}

func TestJourneyStart_MalformedJSON(t *testing.T) {
	f := newHandlerFixture(t)

	rec := httptest.NewRecorder()
	f.handler.JourneyStart(rec, authedRequest(http.MethodPost, "/api/v1/journey/start", "{not json"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Code != "BAD_REQUEST" {
		t.Errorf("error = %+v, want BAD_REQUEST", resp.Error)
	}
}

func TestJourneyStart_EngineCoordinateError(t *testing.T) {
	f := newHandlerFixture(t)
	f.journeys.startErr = journey.ErrInvalidCoordinate
	body := `{
		"from": {"name": "Home", "latitude": 10, "longitude": 10},
		"to": {"name": "School", "latitude": 10.1, "longitude": 10}
	}`

	rec := httptest.NewRecorder()
	f.handler.JourneyStart(rec, authedRequest(http.MethodPost, "/api/v1/journey/start", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestJourneyStop_Success(t *testing.T) {
	f := newHandlerFixture(t)

	rec := httptest.NewRecorder()
	f.handler.JourneyStop(rec, authedRequest(http.MethodPost, "/api/v1/journey/stop", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if f.journeys.lastIdentity != "child-1" {
		t.Errorf("identity = %q, want child-1", f.journeys.lastIdentity)
	}
}

func TestJourneyRespond_NegativeResponseRejected(t *testing.T) {
	f := newHandlerFixture(t)
	f.journeys.respondErr = journey.ErrInvalidResponse

	rec := httptest.NewRecorder()
	f.handler.JourneyRespond(rec, authedRequest(http.MethodPost, "/api/v1/journey/respond", `{"is_okay": false}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if f.journeys.respondOkay {
		t.Errorf("is_okay = true, want false passed through")
	}
}

func TestJourneyCheck_ReturnsResult(t *testing.T) {
	f := newHandlerFixture(t)
	f.journeys.checkResult = &journey.CheckResult{OnRoute: false, DistanceFromRouteKm: 1.5, AlertSent: true}

	rec := httptest.NewRecorder()
	f.handler.JourneyCheck(rec, authedRequest(http.MethodPost, "/api/v1/journey/check", `{"latitude": 10.5, "longitude": 10}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"alert_sent":true`) {
		t.Errorf("body missing alert_sent: %s", rec.Body.String())
	}
	if f.journeys.lastLat != 10.5 {
		t.Errorf("lat = %v, want 10.5", f.journeys.lastLat)
	}
}

func TestLocationUpdate_StoresPublishesAndChecks(t *testing.T) {
	f := newHandlerFixture(t)
	body := `{"latitude": 10, "longitude": 20, "address": "123 Main St"}`

	rec := httptest.NewRecorder()
	f.handler.LocationUpdate(rec, authedRequest(http.MethodPost, "/api/v1/location", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if len(f.locations.saved) != 1 {
		t.Fatalf("saved snapshots = %d, want 1", len(f.locations.saved))
	}
	snap := f.locations.saved[0]
	if snap.IdentityID != "child-1" || snap.Coordinate.Latitude != 10 || snap.Address != "123 Main St" {
		t.Errorf("snapshot = %+v", snap)
	}
	if len(f.hub.calls) != 1 {
		t.Fatalf("hub publishes = %d, want 1", len(f.hub.calls))
	}
	if f.hub.calls[0].event != rooms.EventLocationUpdate {
		t.Errorf("event = %q, want %q", f.hub.calls[0].event, rooms.EventLocationUpdate)
	}
	if !strings.Contains(f.hub.calls[0].channel, "parent-1") {
		t.Errorf("channel = %q, want guardian channel of parent-1", f.hub.calls[0].channel)
	}
	if f.journeys.checkCalls != 1 {
		t.Errorf("deviation checks = %d, want 1", f.journeys.checkCalls)
	}
}

func TestLocationUpdate_NoGuardianStillStores(t *testing.T) {
	f := newHandlerFixture(t)
	body := `{"latitude": 10, "longitude": 20}`

	r := httptest.NewRequest(http.MethodPost, "/api/v1/location", bytes.NewBufferString(body))
	r = r.WithContext(auth.ContextWithIdentity(r.Context(), "parent-1"))
	rec := httptest.NewRecorder()
	f.handler.LocationUpdate(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(f.hub.calls) != 0 {
		t.Errorf("hub publishes = %d, want 0 for identity without guardian", len(f.hub.calls))
	}
	if len(f.locations.saved) != 1 {
		t.Errorf("saved snapshots = %d, want 1", len(f.locations.saved))
	}
}

func TestLocationUpdate_StoreFailure(t *testing.T) {
	f := newHandlerFixture(t)
	f.locations.saveErr = errors.New("disk full")

	rec := httptest.NewRecorder()
	f.handler.LocationUpdate(rec, authedRequest(http.MethodPost, "/api/v1/location", `{"latitude": 10, "longitude": 20}`))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if len(f.hub.calls) != 0 {
		t.Errorf("event published despite store failure")
	}
}

func TestBatteryLevel_PublishesToGuardian(t *testing.T) {
	f := newHandlerFixture(t)

	rec := httptest.NewRecorder()
	f.handler.BatteryLevel(rec, authedRequest(http.MethodPost, "/api/v1/battery", `{"level": 42, "charging": true}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if len(f.hub.calls) != 1 || f.hub.calls[0].event != rooms.EventBatteryLevel {
		t.Errorf("hub calls = %+v, want one battery event", f.hub.calls)
	}
}

func TestBatteryLevel_OutOfRangeRejected(t *testing.T) {
	f := newHandlerFixture(t)

	rec := httptest.NewRecorder()
	f.handler.BatteryLevel(rec, authedRequest(http.MethodPost, "/api/v1/battery", `{"level": 150}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(f.hub.calls) != 0 {
		t.Errorf("invalid battery level published")
	}
}

func TestAppState_UnknownStateRejected(t *testing.T) {
	f := newHandlerFixture(t)

	rec := httptest.NewRecorder()
	f.handler.AppState(rec, authedRequest(http.MethodPost, "/api/v1/app-state", `{"state": "hibernating"}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAppState_PublishesToGuardian(t *testing.T) {
	f := newHandlerFixture(t)

	rec := httptest.NewRecorder()
	f.handler.AppState(rec, authedRequest(http.MethodPost, "/api/v1/app-state", `{"state": "background"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(f.hub.calls) != 1 || f.hub.calls[0].event != rooms.EventAppState {
		t.Errorf("hub calls = %+v, want one app-state event", f.hub.calls)
	}
}

func TestNearby_DefaultsRadiusAndExcludesSelf(t *testing.T) {
	f := newHandlerFixture(t)
	f.proximity.users = []models.NearbyUser{{ID: "other", DistanceKm: 1.2}}

	rec := httptest.NewRecorder()
	f.handler.Nearby(rec, authedRequest(http.MethodGet, "/api/v1/nearby?lat=10&lng=20", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if f.proximity.lastRadius != 5 {
		t.Errorf("radius = %v, want configured default 5", f.proximity.lastRadius)
	}
	if f.proximity.lastSender != "child-1" {
		t.Errorf("excludeID = %q, want child-1", f.proximity.lastSender)
	}
}

func TestNearby_ExplicitRadius(t *testing.T) {
	f := newHandlerFixture(t)

	rec := httptest.NewRecorder()
	f.handler.Nearby(rec, authedRequest(http.MethodGet, "/api/v1/nearby?lat=10&lng=20&radius_km=2.5", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if f.proximity.lastRadius != 2.5 {
		t.Errorf("radius = %v, want 2.5", f.proximity.lastRadius)
	}
}

func TestNearby_MissingCoordinatesRejected(t *testing.T) {
	f := newHandlerFixture(t)

	rec := httptest.NewRecorder()
	f.handler.Nearby(rec, authedRequest(http.MethodGet, "/api/v1/nearby", ""))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSOS_ReturnsBroadcastResult(t *testing.T) {
	f := newHandlerFixture(t)

	rec := httptest.NewRecorder()
	f.handler.SOS(rec, authedRequest(http.MethodPost, "/api/v1/sos", `{"latitude": 10, "longitude": 20, "address": "Corner of 5th"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if f.proximity.lastSender != "child-1" {
		t.Errorf("sender = %q, want child-1", f.proximity.lastSender)
	}
	if !strings.Contains(rec.Body.String(), `"notified_count":2`) {
		t.Errorf("body missing notified_count: %s", rec.Body.String())
	}
}

func TestSOS_BroadcastFailure(t *testing.T) {
	f := newHandlerFixture(t)
	f.proximity.sosErr = errors.New("snapshot scan failed")

	rec := httptest.NewRecorder()
	f.handler.SOS(rec, authedRequest(http.MethodPost, "/api/v1/sos", `{"latitude": 10, "longitude": 20}`))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestHealth_ReportsCounts(t *testing.T) {
	f := newHandlerFixture(t)

	rec := httptest.NewRecorder()
	f.handler.Health(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Status != "success" {
		t.Errorf("status = %q, want success", resp.Status)
	}
}
