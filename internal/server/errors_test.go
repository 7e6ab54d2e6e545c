package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

// helper to parse standardized error
type stdError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// helper to parse calculator failures
type calcError struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func decodeStdError(t *testing.T, rr *httptest.ResponseRecorder) stdError {
	t.Helper()
	var e stdError
	if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil {
		t.Fatalf("unmarshal error: %v; body=%s", err, rr.Body.String())
	}
	return e
}

func decodeCalcError(t *testing.T, rr *httptest.ResponseRecorder) calcError {
	t.Helper()
	var e calcError
	if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil {
		t.Fatalf("unmarshal error: %v; body=%s", err, rr.Body.String())
	}
	if e.Success {
		t.Fatalf("expected success=false; body=%s", rr.Body.String())
	}
	return e
}

func TestCalculateShipping_InvalidJSON(t *testing.T) {
	h := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/shipping-calculator", strings.NewReader("{"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if e := decodeCalcError(t, rr); e.Message != "invalid json" {
		t.Fatalf("unexpected message: %q", e.Message)
	}
}

func TestCalculateShipping_ValidationMessagesAccumulate(t *testing.T) {
	h := newTestServer(t)
	rr := postQuote(t, h, map[string]any{
		"service_id":   1,
		"country_code": "US",
		"length":       170,
		"width":        100,
		"height":       100,
		"weight":       35,
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d; body=%s", rr.Code, rr.Body.String())
	}
	e := decodeCalcError(t, rr)
	msgs := strings.Split(e.Message, "\n")
	want := []string{
		"weight must be 30kg or less",
		"each dimension must be 160cm or less",
		"combined dimensions must be 260cm or less",
	}
	if len(msgs) != len(want) {
		t.Fatalf("expected %d messages, got %d: %q", len(want), len(msgs), e.Message)
	}
	for i := range want {
		if msgs[i] != want[i] {
			t.Fatalf("message %d: got %q, want %q", i, msgs[i], want[i])
		}
	}
}

func TestCalculateShipping_UnknownCountry(t *testing.T) {
	h := newTestServer(t)
	rr := postQuote(t, h, map[string]any{
		"service_id":   1,
		"country_code": "XX",
		"length":       20,
		"width":        20,
		"height":       20,
		"weight":       5,
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d; body=%s", rr.Code, rr.Body.String())
	}
	if e := decodeCalcError(t, rr); !strings.Contains(e.Message, "country_code") {
		t.Fatalf("unexpected message: %q", e.Message)
	}
}

func TestCalculateShipping_RateGapIs422(t *testing.T) {
	h := newTestServer(t)
	// Catalog brackets top out at 5kg; 20kg has no rate.
	rr := postQuote(t, h, map[string]any{
		"service_id":   1,
		"country_code": "US",
		"length":       20,
		"width":        20,
		"height":       20,
		"weight":       20,
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d; body=%s", rr.Code, rr.Body.String())
	}
	if e := decodeCalcError(t, rr); !strings.Contains(e.Message, "no rate bracket") {
		t.Fatalf("unexpected message: %q", e.Message)
	}
}

func TestGetSettings_MissingAccountHeader(t *testing.T) {
	h := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/settings", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if e := decodeStdError(t, rr); e.Error.Code != "invalid_request" {
		t.Fatalf("unexpected error code: %s", e.Error.Code)
	}
}

func TestCreateListingRequest_UnsupportedSource(t *testing.T) {
	h := newTestServer(t)
	body, _ := json.Marshal(map[string]any{
		"source":      "mercari",
		"url":         "https://example.com/item/1",
		"category_id": "123",
	})
	req := httptest.NewRequest(http.MethodPost, "/product-register", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d; body=%s", rr.Code, rr.Body.String())
	}
	if e := decodeStdError(t, rr); e.Error.Code != "unsupported_source" {
		t.Fatalf("unexpected error code: %s", e.Error.Code)
	}
}

func TestCreateListingRequest_InvalidURL(t *testing.T) {
	h := newTestServer(t)
	body, _ := json.Marshal(map[string]any{
		"source":      "yahoo_auction",
		"url":         "not-a-url",
		"category_id": "123",
	})
	req := httptest.NewRequest(http.MethodPost, "/product-register", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d; body=%s", rr.Code, rr.Body.String())
	}
	if e := decodeStdError(t, rr); e.Error.Code != "invalid_request" {
		t.Fatalf("unexpected error code: %s", e.Error.Code)
	}
}

func TestGetListingRequest_BadID(t *testing.T) {
	h := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/product-register/not-a-uuid", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if e := decodeStdError(t, rr); e.Error.Code != "invalid_request" {
		t.Fatalf("unexpected error code: %s", e.Error.Code)
	}
}

func TestWebhook_UnsupportedSource_ErrorJSON(t *testing.T) {
	h := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/unknown", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d; body=%s", rr.Code, rr.Body.String())
	}
	if e := decodeStdError(t, rr); e.Error.Code != "unsupported_source" {
		t.Fatalf("unexpected error code: %s", e.Error.Code)
	}
}

func TestWebhook_MissingSignature_ErrorJSON(t *testing.T) {
	h := newTestServer(t)
	os.Setenv("MARKETPLACE_WEBHOOK_SECRET", "testsecret")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/marketplace", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d; body=%s", rr.Code, rr.Body.String())
	}
	if e := decodeStdError(t, rr); e.Error.Code != "missing_signature" {
		t.Fatalf("unexpected error code: %s", e.Error.Code)
	}
}

func TestWebhook_InvalidSignatureFormat_ErrorJSON(t *testing.T) {
	h := newTestServer(t)
	os.Setenv("MARKETPLACE_WEBHOOK_SECRET", "testsecret")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/marketplace", nil)
	req.Header.Set("X-Signature", "ZZZ") // invalid hex
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d; body=%s", rr.Code, rr.Body.String())
	}
	if e := decodeStdError(t, rr); e.Error.Code != "invalid_signature_format" {
		t.Fatalf("unexpected error code: %s", e.Error.Code)
	}
}

func TestWebhook_SecretNotConfigured(t *testing.T) {
	h := newTestServer(t)
	os.Unsetenv("MARKETPLACE_WEBHOOK_SECRET")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/marketplace", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d; body=%s", rr.Code, rr.Body.String())
	}
	if e := decodeStdError(t, rr); e.Error.Code != "secret_not_configured" {
		t.Fatalf("unexpected error code: %s", e.Error.Code)
	}
}
