package handler

import (
	"encoding/json"
	"net/http"

	"github.com/lostfound-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SentEnvelope wraps OTP request responses.
type SentEnvelope struct {
	Sent bool `json:"sent"`
}

// VerifiedEnvelope wraps code validation responses.
type VerifiedEnvelope struct {
	Verified bool   `json:"verified"`
	ItemID   string `json:"item_id,omitempty"`
}

// ItemEnvelope wraps state-changing item responses with the soft
// notification flag.
type ItemEnvelope struct {
	Item     *domain.Item `json:"item"`
	Notified bool         `json:"notified"`
}

// PhotoEnvelope wraps presigned photo URL responses.
type PhotoEnvelope struct {
	URL string `json:"url"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
