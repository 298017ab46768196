package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qr-lost-found/internal/event"
	"qr-lost-found/internal/metrics"
	"qr-lost-found/internal/model"
	"qr-lost-found/internal/service"
)

// Items are stored under the canonical form: literal "QR-" prefix plus a
// lowercase UUID, exactly what qrcode.Extract normalizes scans to.
const testQRCode = "QR-aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"

type fakeItemStore struct {
	items map[string]model.Item
}

func newFakeItemStore() *fakeItemStore {
	return &fakeItemStore{items: map[string]model.Item{}}
}

func (s *fakeItemStore) Create(ctx context.Context, item model.Item) error {
	if _, exists := s.items[item.QRCode]; exists {
		return model.ErrItemAlreadyRegistered
	}
	s.items[item.QRCode] = item
	return nil
}

func (s *fakeItemStore) FindByQRCode(ctx context.Context, qrCode string) (model.Item, error) {
	item, ok := s.items[qrCode]
	if !ok {
		return model.Item{}, model.ErrItemNotFound
	}
	return item, nil
}

func (s *fakeItemStore) ListByOwner(ctx context.Context, userID string) ([]model.Item, error) {
	var out []model.Item
	for _, item := range s.items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *fakeItemStore) ListExpired(ctx context.Context, now time.Time) ([]model.Item, error) {
	var out []model.Item
	for _, item := range s.items {
		if item.Status == model.StatusDroppedOff && item.ExpiresAt != nil && !item.ExpiresAt.After(now) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *fakeItemStore) UpdateStatus(ctx context.Context, qrCode string, expected model.ItemStatus, item model.Item) error {
	current, ok := s.items[qrCode]
	if !ok {
		return model.ErrItemNotFound
	}
	if current.Status != expected {
		return fmt.Errorf("%w: status changed concurrently", model.ErrInvalidTransition)
	}
	s.items[qrCode] = item
	return nil
}

func (s *fakeItemStore) Delete(ctx context.Context, qrCode string, userID string) error {
	item, ok := s.items[qrCode]
	if !ok || item.UserID != userID {
		return model.ErrItemNotFound
	}
	delete(s.items, qrCode)
	return nil
}

type fakeLocationStore struct {
	locations map[int64]model.Location
}

func (s *fakeLocationStore) List(ctx context.Context) ([]model.Location, error) {
	out := make([]model.Location, 0, len(s.locations))
	for _, loc := range s.locations {
		out = append(out, loc)
	}
	return out, nil
}

func (s *fakeLocationStore) FindByID(ctx context.Context, id int64) (model.Location, error) {
	loc, ok := s.locations[id]
	if !ok {
		return model.Location{}, model.ErrLocationNotFound
	}
	return loc, nil
}

func newFinderTestServer(t *testing.T, store *fakeItemStore) *httptest.Server {
	t.Helper()

	locations := &fakeLocationStore{locations: map[int64]model.Location{
		1: {ID: 1, Name: "Central Library", Address: "1 Main St"},
	}}

	items := service.NewItemService(store, locations, event.NewBus(), metrics.Nop{})
	public := NewPublicHandler(items, service.NewLocationService(locations))

	r := chi.NewRouter()
	r.Get("/api/v1/public/items/{qr_code}", public.GetItem)
	r.Post("/api/v1/public/items/{qr_code}/report-found", public.ReportFound)
	r.Post("/api/v1/public/items/{qr_code}/drop-off", public.DropOff)
	r.Get("/api/v1/locations", public.Locations)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func seedActiveItem(store *fakeItemStore) {
	now := time.Now().UTC()
	store.items[testQRCode] = model.Item{
		QRCode:       testQRCode,
		UserID:       "owner-1",
		Name:         "Blue backpack",
		OwnerName:    "Dana",
		OwnerEmail:   "dana@example.com",
		Status:       model.StatusActive,
		RegisteredAt: now,
		UpdatedAt:    now,
	}
}

func decodeResponse(t *testing.T, resp *http.Response) model.APIResponse {
	t.Helper()
	defer resp.Body.Close()

	var body model.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestPublicHandler_GetItem_RedactsOwnerContact(t *testing.T) {
	store := newFakeItemStore()
	seedActiveItem(store)
	server := newFinderTestServer(t, store)

	resp, err := http.Get(server.URL + "/api/v1/public/items/" + testQRCode)
	require.NoError(t, err)
	body := decodeResponse(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, body.Success)

	data := body.Data.(map[string]any)
	assert.Equal(t, "Blue backpack", data["name"])
	assert.Equal(t, "Dana", data["owner_name"])
	assert.NotContains(t, data, "owner_email")
	assert.NotContains(t, data, "user_id")
}

func TestPublicHandler_GetItem_NormalizesScannedCasing(t *testing.T) {
	store := newFakeItemStore()
	seedActiveItem(store)
	server := newFinderTestServer(t, store)

	// Scanners hand back codes in varied casing; lookups must still resolve
	// against the canonical stored key.
	scanned := "qr-AAAAAAAA-BBBB-CCCC-DDDD-EEEEEEEEEEEE"
	resp, err := http.Get(server.URL + "/api/v1/public/items/" + scanned)
	require.NoError(t, err)
	body := decodeResponse(t, resp)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body.Data.(map[string]any)
	assert.Equal(t, testQRCode, data["qr_code"])
}

func TestPublicHandler_GetItem_UnknownCode(t *testing.T) {
	server := newFinderTestServer(t, newFakeItemStore())

	resp, err := http.Get(server.URL + "/api/v1/public/items/QR-00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	body := decodeResponse(t, resp)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, body.Success)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestPublicHandler_FinderFlow(t *testing.T) {
	store := newFakeItemStore()
	seedActiveItem(store)
	server := newFinderTestServer(t, store)

	// Finder scans and reports the item found.
	resp, err := http.Post(server.URL+"/api/v1/public/items/"+testQRCode+"/report-found", "application/json", nil)
	require.NoError(t, err)
	body := decodeResponse(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := body.Data.(map[string]any)
	assert.Equal(t, string(model.StatusReportedFound), data["status"])
	// Owner display name is hidden once the item is in play.
	assert.NotContains(t, data, "owner_name")

	// Finder drops the item off at a partner location.
	payload := strings.NewReader(`{"location_id": 1}`)
	resp, err = http.Post(server.URL+"/api/v1/public/items/"+testQRCode+"/drop-off", "application/json", payload)
	require.NoError(t, err)
	body = decodeResponse(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data = body.Data.(map[string]any)
	assert.Equal(t, string(model.StatusDroppedOff), data["status"])

	location := data["location"].(map[string]any)
	assert.Equal(t, "Central Library", location["name"])

	countdown := data["countdown"].(map[string]any)
	assert.Equal(t, float64(6), countdown["days"])

	// Reporting found again is no longer a valid move.
	resp, err = http.Post(server.URL+"/api/v1/public/items/"+testQRCode+"/report-found", "application/json", nil)
	require.NoError(t, err)
	body = decodeResponse(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", body.Error.Code)
}

func TestPublicHandler_DropOff_RequiresLocation(t *testing.T) {
	store := newFakeItemStore()
	seedActiveItem(store)
	item := store.items[testQRCode]
	item.Status = model.StatusReportedFound
	store.items[testQRCode] = item
	server := newFinderTestServer(t, store)

	resp, err := http.Post(server.URL+"/api/v1/public/items/"+testQRCode+"/drop-off", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	body := decodeResponse(t, resp)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "BAD_REQUEST", body.Error.Code)
}

func TestPublicHandler_DropOff_UnknownLocation(t *testing.T) {
	store := newFakeItemStore()
	seedActiveItem(store)
	item := store.items[testQRCode]
	item.Status = model.StatusReportedFound
	store.items[testQRCode] = item
	server := newFinderTestServer(t, store)

	resp, err := http.Post(server.URL+"/api/v1/public/items/"+testQRCode+"/drop-off", "application/json", strings.NewReader(`{"location_id": 99}`))
	require.NoError(t, err)
	body := decodeResponse(t, resp)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestPublicHandler_DropOff_InvalidJSON(t *testing.T) {
	server := newFinderTestServer(t, newFakeItemStore())

	resp, err := http.Post(server.URL+"/api/v1/public/items/"+testQRCode+"/drop-off", "application/json", strings.NewReader("not json"))
	require.NoError(t, err)
	body := decodeResponse(t, resp)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "BAD_REQUEST", body.Error.Code)
}

func TestPublicHandler_Locations(t *testing.T) {
	server := newFinderTestServer(t, newFakeItemStore())

	resp, err := http.Get(server.URL + "/api/v1/locations")
	require.NoError(t, err)
	body := decodeResponse(t, resp)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	locations := body.Data.([]any)
	require.Len(t, locations, 1)
	assert.Equal(t, "Central Library", locations[0].(map[string]any)["name"])
}
