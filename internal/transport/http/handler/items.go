package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lostfound-api/internal/application/item"
	"github.com/lostfound-api/internal/domain"
)

// ItemHandler handles item lifecycle endpoints.
type ItemHandler struct {
	svc item.Service
}

func NewItemHandler(svc item.Service) *ItemHandler {
	return &ItemHandler{svc: svc}
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := h.svc.Create(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	it, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (h *ItemHandler) Photo(w http.ResponseWriter, r *http.Request) {
	url, err := h.svc.PhotoURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PhotoEnvelope{URL: url})
}

func (h *ItemHandler) Sighting(w http.ResponseWriter, r *http.Request) {
	var req domain.SightingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.RecordSighting(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ItemEnvelope{Item: res.Item, Notified: res.Notified})
}

func (h *ItemHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var req domain.ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.RecordClaim(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ItemEnvelope{Item: res.Item, Notified: res.Notified})
}

func (h *ItemHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req domain.ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.Resolve(r.Context(), chi.URLParam(r, "id"), req.Email)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ItemEnvelope{Item: res.Item, Notified: res.Notified})
}
