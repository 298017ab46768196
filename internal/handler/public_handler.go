package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"qr-lost-found/internal/lifecycle"
	"qr-lost-found/internal/model"
	"qr-lost-found/internal/qrcode"
	"qr-lost-found/internal/service"
	"qr-lost-found/pkg/apierror"
)

// PublicHandler serves the anonymous finder flow. No authentication: anyone
// who scans a tag can look the item up and move it along.
type PublicHandler struct {
	items     *service.ItemService
	locations *service.LocationService
}

func NewPublicHandler(items *service.ItemService, locations *service.LocationService) *PublicHandler {
	return &PublicHandler{items: items, locations: locations}
}

type publicItemResponse struct {
	model.PublicItem
	Countdown *lifecycle.Countdown `json:"countdown,omitempty"`
}

func (h *PublicHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.items.GetPublicView(r.Context(), chi.URLParam(r, "qr_code"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, withCountdown(item))
}

func (h *PublicHandler) ReportFound(w http.ResponseWriter, r *http.Request) {
	code, ok := qrcode.Extract(chi.URLParam(r, "qr_code"))
	if !ok {
		writeError(w, model.ErrInvalidQRCode)
		return
	}

	item, err := h.items.ReportFound(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, withCountdown(item))
}

func (h *PublicHandler) DropOff(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.DropOffRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	code, ok := qrcode.Extract(chi.URLParam(r, "qr_code"))
	if !ok {
		writeError(w, model.ErrInvalidQRCode)
		return
	}

	item, err := h.items.ConfirmDropOff(r.Context(), code, payload.LocationID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, withCountdown(item))
}

func (h *PublicHandler) Locations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.locations.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, locations)
}

// withCountdown attaches the remaining pickup window for display purposes.
// The countdown is cosmetic; expiry itself is enforced server-side.
func withCountdown(item model.PublicItem) publicItemResponse {
	resp := publicItemResponse{PublicItem: item}
	if item.Status == model.StatusDroppedOff && item.ExpiresAt != nil {
		if remaining, ok := lifecycle.Remaining(*item.ExpiresAt, time.Now()); ok {
			resp.Countdown = &remaining
		}
	}
	return resp
}
