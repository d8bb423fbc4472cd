package wallet_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/taskhive/taskhive-api/internal/domain/wallet"
	"github.com/taskhive/taskhive-api/internal/middleware"
	"github.com/taskhive/taskhive-api/internal/pkg/jwt"
)

type walletAPIResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Diamonds      int64  `json:"diamonds"`
		USDT          string `json:"usdt"`
		DiamondsAfter int64  `json:"diamonds_after"`
		USDTAfter     string `json:"usdt_after"`
		USDTReceived  string `json:"usdt_received"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestWalletEndpointsIntegration(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	userID := uuid.New()
	h := wallet.NewHandler(newTestService(t, db))

	jwtSvc := jwt.NewService("wallet-integration-secret", time.Hour)
	token, err := jwtSvc.GenerateAccessToken(userID, "member", false)
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}

	r := chi.NewRouter()
	r.Mount("/api/v1/wallet", h.Routes(middleware.Auth(jwtSvc)))

	t.Run("GET /balance initial", func(t *testing.T) {
		resp := performWalletRequest(t, r, token, http.MethodGet, "/api/v1/wallet/balance", nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.Code)
		}
		body := decodeWalletResponse(t, resp)
		if !body.Success || body.Data.Diamonds != 100 || body.Data.USDT != "0.00" {
			t.Fatalf("expected starting grant, got success=%v diamonds=%d usdt=%s",
				body.Success, body.Data.Diamonds, body.Data.USDT)
		}
	})

	t.Run("POST /buy", func(t *testing.T) {
		resp := performWalletRequest(t, r, token, http.MethodPost, "/api/v1/wallet/buy", map[string]interface{}{
			"quantity": int64(200),
		})
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.Code)
		}
		body := decodeWalletResponse(t, resp)
		if !body.Success || body.Data.DiamondsAfter != 300 {
			t.Fatalf("expected 300 diamonds after buy, got success=%v diamonds=%d", body.Success, body.Data.DiamondsAfter)
		}
	})

	t.Run("POST /convert", func(t *testing.T) {
		resp := performWalletRequest(t, r, token, http.MethodPost, "/api/v1/wallet/convert", map[string]interface{}{
			"diamonds": int64(60),
		})
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.Code)
		}
		body := decodeWalletResponse(t, resp)
		if !body.Success || body.Data.DiamondsAfter != 240 || body.Data.USDTReceived != "3.00" {
			t.Fatalf("expected 240 diamonds and 3.00 USDT, got success=%v diamonds=%d usdt=%s",
				body.Success, body.Data.DiamondsAfter, body.Data.USDTReceived)
		}
	})

	t.Run("POST /withdraw insufficient", func(t *testing.T) {
		resp := performWalletRequest(t, r, token, http.MethodPost, "/api/v1/wallet/withdraw", map[string]interface{}{
			"amount":      "50.00",
			"destination": "0xabc123",
		})
		if resp.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", resp.Code)
		}
	})

	t.Run("POST /convert validation", func(t *testing.T) {
		resp := performWalletRequest(t, r, token, http.MethodPost, "/api/v1/wallet/convert", map[string]interface{}{
			"diamonds": int64(-5),
		})
		if resp.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", resp.Code)
		}
	})

	t.Run("GET /transactions bad filter", func(t *testing.T) {
		resp := performWalletRequest(t, r, token, http.MethodGet, "/api/v1/wallet/transactions?type=bogus", nil)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for unknown type filter, got %d", resp.Code)
		}
	})

	t.Run("POST /adjust requires admin", func(t *testing.T) {
		resp := performWalletRequest(t, r, token, http.MethodPost, "/api/v1/wallet/adjust", map[string]interface{}{
			"user_id":        userID.String(),
			"diamonds_delta": int64(5),
			"reason":         "test",
		})
		if resp.Code != http.StatusForbidden {
			t.Fatalf("expected 403 for non-admin, got %d", resp.Code)
		}

		adminToken, err := jwtSvc.GenerateAccessToken(uuid.New(), "admin", false)
		if err != nil {
			t.Fatalf("generate admin token failed: %v", err)
		}
		resp = performWalletRequest(t, r, adminToken, http.MethodPost, "/api/v1/wallet/adjust", map[string]interface{}{
			"user_id":        userID.String(),
			"diamonds_delta": int64(5),
			"reason":         "support correction",
		})
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for admin adjust, got %d: %s", resp.Code, resp.Body.String())
		}
	})

	t.Run("JWT required", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet/balance", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 without jwt, got %d", rec.Code)
		}
	})
}

func performWalletRequest(t *testing.T, handler http.Handler, token, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload failed: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeWalletResponse(t *testing.T, rec *httptest.ResponseRecorder) walletAPIResponse {
	t.Helper()
	var out walletAPIResponse
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response failed: %v; body=%s", err, rec.Body.String())
	}
	return out
}
