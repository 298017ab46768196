package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"qr-lost-found/internal/middleware"
	"qr-lost-found/internal/model"
	"qr-lost-found/internal/qrcode"
	"qr-lost-found/internal/service"
	"qr-lost-found/pkg/apierror"
)

// ItemHandler serves the authenticated owner endpoints. The acting owner is
// always taken from the token claims, never from the request body.
type ItemHandler struct {
	service *service.ItemService
	baseURL string
}

func NewItemHandler(service *service.ItemService, baseURL string) *ItemHandler {
	return &ItemHandler{service: service, baseURL: baseURL}
}

type registeredItemResponse struct {
	model.Item
	FoundURL string `json:"found_url"`
}

func (h *ItemHandler) Register(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	var payload model.RegisterItemRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	owner := model.AuthUser{ID: claims.UserID, Email: claims.Email, Name: claims.Name}
	item, err := h.service.Register(r.Context(), owner, payload.QRCode, payload.Name, payload.OwnerName)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, registeredItemResponse{
		Item:     item,
		FoundURL: qrcode.FoundURL(h.baseURL, item.QRCode),
	})
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	items, err := h.service.ListOwnerItems(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, items)
}

func (h *ItemHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	if err := h.service.Unlink(r.Context(), chi.URLParam(r, "qr_code"), claims.UserID); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"unlinked": true})
}

func (h *ItemHandler) Pickup(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	item, err := h.service.ConfirmPickup(r.Context(), chi.URLParam(r, "qr_code"), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, item)
}

func (h *ItemHandler) Reset(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	item, err := h.service.ResetToActive(r.Context(), chi.URLParam(r, "qr_code"), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, item)
}
