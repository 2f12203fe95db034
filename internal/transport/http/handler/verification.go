package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lostfound-api/internal/application/verify"
	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/pkg/validate"
)

// ItemGetter is the read surface the bound-OTP flow needs to check that the
// requester is the item's reporter.
type ItemGetter interface {
	Get(ctx context.Context, itemID string) (*domain.Item, error)
}

// VerificationHandler handles OTP request and validation endpoints.
type VerificationHandler struct {
	gate  verify.Gate
	items ItemGetter
}

func NewVerificationHandler(gate verify.Gate, items ItemGetter) *VerificationHandler {
	return &VerificationHandler{gate: gate, items: items}
}

type requestCodeBody struct {
	Email string `json:"email" validate:"required,email"`
}

type validateCodeBody struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

// Request issues an unbound code, used ahead of item creation.
func (h *VerificationHandler) Request(w http.ResponseWriter, r *http.Request) {
	var body requestCodeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.gate.RequestCode(r.Context(), body.Email, "", nil); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SentEnvelope{Sent: true})
}

// RequestForItem issues a code bound to an item; only the item's reporter
// may request one. This is the entry point of the resolve flow.
func (h *VerificationHandler) RequestForItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")
	var body requestCodeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	err := h.gate.RequestCode(r.Context(), body.Email, itemID, func() error {
		it, err := h.items.Get(r.Context(), itemID)
		if err != nil {
			return err
		}
		if it.ReporterEmail != body.Email {
			return fmt.Errorf("email does not match the reporter: %w", domain.ErrUnauthorized)
		}
		return nil
	})
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SentEnvelope{Sent: true})
}

// Validate consumes the code and marks the email verified for one
// privileged action.
func (h *VerificationHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var body validateCodeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	boundItemID, err := h.gate.VerifyCode(body.Email, body.Code)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VerifiedEnvelope{Verified: true, ItemID: boundItemID})
}
