package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// callbackEvent is a normalized status callback for a listing request.
type callbackEvent struct {
	Status      string
	Description string
	OccurredAt  string
	Raw         json.RawMessage
}

// ErrMissingRequestID is returned when a callback payload carries no
// listing request reference.
var ErrMissingRequestID = errors.New("missing request id")

// normalizeCallback extracts the request reference and status fields from
// a provider callback. Providers disagree on key names, so a few common
// spellings are probed.
func normalizeCallback(body []byte) (uuid.UUID, callbackEvent, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return uuid.Nil, callbackEvent{}, err
	}
	raw := firstString(payload, "request_id", "listing_request_id", "id")
	if strings.TrimSpace(raw) == "" {
		return uuid.Nil, callbackEvent{}, ErrMissingRequestID
	}
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, callbackEvent{}, ErrMissingRequestID
	}
	ev := callbackEvent{
		Status:      firstString(payload, "status", "listing_status"),
		Description: firstString(payload, "description", "message"),
		OccurredAt:  firstString(payload, "occurred_at", "timestamp"),
		Raw:         json.RawMessage(body),
	}
	return id, ev, nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// handleWebhook ingests marketplace status callbacks. The payload is
// HMAC-SHA256 signed with a per-source secret read from env.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	if strings.TrimSpace(source) == "" {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "source required")
		return
	}
	var secretEnv string
	switch strings.ToLower(strings.TrimSpace(source)) {
	case "marketplace":
		secretEnv = "MARKETPLACE_WEBHOOK_SECRET"
	default:
		writeErrorJSON(w, http.StatusNotFound, "unsupported_source", "unsupported source")
		return
	}
	secret := os.Getenv(secretEnv)
	if strings.TrimSpace(secret) == "" {
		writeErrorJSON(w, http.StatusUnauthorized, "secret_not_configured", "webhook secret not configured")
		return
	}

	// Read raw body for signature verification
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "read_error", "read error")
		return
	}
	sigHeader := r.Header.Get("X-Signature")
	sigHeader = strings.TrimSpace(sigHeader)
	sigHeader = strings.TrimPrefix(sigHeader, "sha256=")
	if sigHeader == "" {
		writeErrorJSON(w, http.StatusUnauthorized, "missing_signature", "missing signature")
		return
	}
	provided, err := hex.DecodeString(sigHeader)
	if err != nil {
		writeErrorJSON(w, http.StatusUnauthorized, "invalid_signature_format", "invalid signature format")
		return
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), provided) {
		writeErrorJSON(w, http.StatusUnauthorized, "signature_mismatch", "signature mismatch")
		return
	}

	id, ev, nerr := normalizeCallback(body)
	if nerr != nil {
		if errors.Is(nerr, ErrMissingRequestID) {
			writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "request id required")
		} else {
			writeErrorJSON(w, http.StatusBadRequest, "invalid_json", "invalid json")
		}
		return
	}

	var occurred time.Time
	if strings.TrimSpace(ev.OccurredAt) == "" {
		occurred = time.Now().UTC()
	} else {
		t, perr := time.Parse(time.RFC3339, ev.OccurredAt)
		if perr != nil {
			writeErrorJSON(w, http.StatusBadRequest, "invalid_occurred_at", "invalid occurred_at")
			return
		}
		occurred = t.UTC()
	}

	if err := s.insertListingEvent(r.Context(), id, ev, occurred); err != nil {
		if errors.Is(err, errRequestNotFound) {
			writeErrorJSON(w, http.StatusNotFound, "resource_not_found", "not found")
			return
		}
		s.log.Error("callback ingestion failed", zap.String("request_id", id.String()), zap.Error(err))
		writeErrorJSON(w, http.StatusInternalServerError, "db_error", "db error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          id.String(),
		"status":      orDefault(ev.Status, "unknown"),
		"occurred_at": occurred.Format(time.RFC3339),
	})
}
