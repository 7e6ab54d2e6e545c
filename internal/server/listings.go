package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Listing requests track a sourcing/relisting job from acceptance through
// marketplace callbacks: accepted -> sourcing -> listed | failed.

type listingRequestCreate struct {
	Source     string `json:"source"`
	URL        string `json:"url"`
	CategoryID string `json:"category_id"`
}

type listingRequestResponse struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	URL        string `json:"url"`
	CategoryID string `json:"category_id"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

func (s *Server) handleCreateListingRequest(w http.ResponseWriter, r *http.Request) {
	var req listingRequestCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if req.Source == "" || req.URL == "" || req.CategoryID == "" {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "source, url and category_id are required")
		return
	}
	if !strings.EqualFold(req.Source, "yahoo_auction") {
		writeErrorJSON(w, http.StatusBadRequest, "unsupported_source", "unsupported sourcing site")
		return
	}
	if u, err := url.ParseRequestURI(req.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "invalid url")
		return
	}

	id := uuid.New()
	now := time.Now().UTC()
	_, err := s.db.Exec(r.Context(), `
		INSERT INTO listing_requests (id, source, url, category_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'accepted', $5, $5)
	`, id, strings.ToLower(req.Source), req.URL, req.CategoryID, now)
	if err != nil {
		s.log.Error("insert listing request failed", zap.Error(err))
		writeErrorJSON(w, http.StatusInternalServerError, "db_error", "failed to create request")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "request accepted",
		"data": listingRequestResponse{
			ID:         id.String(),
			Source:     strings.ToLower(req.Source),
			URL:        req.URL,
			CategoryID: req.CategoryID,
			Status:     "accepted",
			CreatedAt:  now.Format(time.RFC3339),
		},
	})
}

type listingStatusResponse struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	UpdatedAt   string          `json:"updated_at"`
	LastEvent   json.RawMessage `json:"last_event,omitempty"`
	LastEventAt string          `json:"last_event_at,omitempty"`
}

func (s *Server) handleGetListingRequest(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "valid request id required")
		return
	}
	ctx := r.Context()
	var (
		status       string
		updatedAt    time.Time
		lastEventAt  *time.Time
		lastEventRaw *string
	)
	err = s.db.QueryRow(ctx, `
		SELECT lr.status,
		       lr.updated_at,
		       (SELECT e.occurred_at FROM listing_events e
		         WHERE e.request_id = lr.id
		         ORDER BY e.occurred_at DESC
		         LIMIT 1),
		       (SELECT to_jsonb(e) FROM listing_events e
		         WHERE e.request_id = lr.id
		         ORDER BY e.occurred_at DESC
		         LIMIT 1)
		FROM listing_requests lr
		WHERE lr.id = $1
	`, id).Scan(&status, &updatedAt, &lastEventAt, &lastEventRaw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeErrorJSON(w, http.StatusNotFound, "resource_not_found", "not found")
			return
		}
		s.log.Error("listing request read failed", zap.Error(err))
		writeErrorJSON(w, http.StatusInternalServerError, "db_error", "db error")
		return
	}
	resp := listingStatusResponse{
		ID:        id.String(),
		Status:    status,
		UpdatedAt: updatedAt.UTC().Format(time.RFC3339),
	}
	if lastEventAt != nil {
		resp.LastEventAt = lastEventAt.UTC().Format(time.RFC3339)
	}
	if lastEventRaw != nil {
		resp.LastEvent = json.RawMessage(*lastEventRaw)
	}
	writeJSON(w, http.StatusOK, resp)
}

// insertListingEvent records a status event for an existing request and
// advances its status, idempotently: replaying the same callback is a
// no-op success.
func (s *Server) insertListingEvent(ctx context.Context, id uuid.UUID, ev callbackEvent, occurred time.Time) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM listing_requests WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return errRequestNotFound
	}

	var dup bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM listing_events
			WHERE request_id = $1
			  AND occurred_at = $2
			  AND (status IS NOT DISTINCT FROM $3)
			  AND (description IS NOT DISTINCT FROM $4)
		)
	`, id, occurred, nullIfEmpty(ev.Status), ev.Description).Scan(&dup)
	if err != nil {
		return err
	}
	if !dup {
		_, err = tx.Exec(ctx, `
			INSERT INTO listing_events (request_id, occurred_at, status, description, raw)
			VALUES ($1, $2, $3, $4, $5::jsonb)
		`, id, occurred, nullIfEmpty(ev.Status), ev.Description, string(ev.Raw))
		if err != nil {
			// Unique violation from a concurrent replay is an idempotent success
			var pgErr *pgconn.PgError
			if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
				return err
			}
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE listing_requests
		SET status = COALESCE($2, status), updated_at = $3
		WHERE id = $1
	`, id, nullIfEmpty(ev.Status), occurred)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

var errRequestNotFound = errors.New("listing request not found")

func nullIfEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
