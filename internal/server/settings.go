package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Marketplace/auction credentials per console account. Authentication is
// handled upstream; the boundary forwards the account id in X-Account-ID.

type settingsResponse struct {
	ID                int64   `json:"id"`
	YahooClientID     *string `json:"yahoo_client_id"`
	YahooClientSecret *string `json:"yahoo_client_secret"`
	EbayClientID      *string `json:"ebay_client_id"`
	EbayDevID         *string `json:"ebay_dev_id"`
	EbayClientSecret  *string `json:"ebay_client_secret"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

type settingsUpdateRequest struct {
	YahooClientID     *string `json:"yahoo_client_id"`
	YahooClientSecret *string `json:"yahoo_client_secret"`
	EbayClientID      *string `json:"ebay_client_id"`
	EbayDevID         *string `json:"ebay_dev_id"`
	EbayClientSecret  *string `json:"ebay_client_secret"`
	EbayAuthToken     *string `json:"ebay_auth_token"`
}

func accountID(r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(r.Header.Get("X-Account-ID"))
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// handleGetSettings returns the account's stored credentials, creating an
// empty row on first read. The auth token is write-only and never echoed.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(r)
	if !ok {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "X-Account-ID required")
		return
	}
	ctx := r.Context()

	res := settingsResponse{ID: id}
	var createdAt, updatedAt time.Time
	err := s.db.QueryRow(ctx, `
		SELECT yahoo_client_id, yahoo_client_secret,
		       ebay_client_id, ebay_dev_id, ebay_client_secret,
		       created_at, updated_at
		FROM m_setting
		WHERE id = $1
	`, id).Scan(
		&res.YahooClientID, &res.YahooClientSecret,
		&res.EbayClientID, &res.EbayDevID, &res.EbayClientSecret,
		&createdAt, &updatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		now := time.Now().UTC()
		_, err = s.db.Exec(ctx, `
			INSERT INTO m_setting (id, created_at, updated_at)
			VALUES ($1, $2, $2)
			ON CONFLICT (id) DO NOTHING
		`, id, now)
		createdAt, updatedAt = now, now
	}
	if err != nil {
		s.log.Error("settings read failed", zap.Int64("account_id", id), zap.Error(err))
		writeErrorJSON(w, http.StatusInternalServerError, "db_error", "db error")
		return
	}
	res.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	res.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": res})
}

// handleUpdateSettings applies a partial credential update: only the
// fields present in the request change.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(r)
	if !ok {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "X-Account-ID required")
		return
	}
	var req settingsUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	ctx := r.Context()
	now := time.Now().UTC()

	_, err := s.db.Exec(ctx, `
		INSERT INTO m_setting (id, created_at, updated_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (id) DO NOTHING
	`, id, now)
	if err == nil {
		_, err = s.db.Exec(ctx, `
			UPDATE m_setting SET
				yahoo_client_id     = COALESCE($2, yahoo_client_id),
				yahoo_client_secret = COALESCE($3, yahoo_client_secret),
				ebay_client_id      = COALESCE($4, ebay_client_id),
				ebay_dev_id         = COALESCE($5, ebay_dev_id),
				ebay_client_secret  = COALESCE($6, ebay_client_secret),
				ebay_auth_token     = COALESCE($7, ebay_auth_token),
				updated_at          = $8
			WHERE id = $1
		`, id,
			req.YahooClientID, req.YahooClientSecret,
			req.EbayClientID, req.EbayDevID, req.EbayClientSecret,
			req.EbayAuthToken, now)
	}
	if err != nil {
		s.log.Error("settings update failed", zap.Int64("account_id", id), zap.Error(err))
		writeErrorJSON(w, http.StatusInternalServerError, "db_error", "failed to update settings")
		return
	}
	s.handleGetSettings(w, r)
}
