package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mmynk/evensplit/internal/ledger"
	"github.com/mmynk/evensplit/internal/service"
	"github.com/mmynk/evensplit/internal/storage/sqlite"
)

func setupTestServer(t *testing.T) http.Handler {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "evensplit-api-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	engine := ledger.New()
	srv := NewServer(
		service.NewBillService(store, engine),
		service.NewSettlementService(store, engine, true),
		service.NewAnalyticsService(store),
		engine,
		store,
	)
	return srv.Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestIdentityRequired(t *testing.T) {
	handler := setupTestServer(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/balances", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without identity header", rec.Code)
	}

	// Health and metrics stay open.
	if rec := doJSON(t, handler, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rec.Code)
	}
	if rec := doJSON(t, handler, http.MethodGet, "/metrics", "", nil); rec.Code != http.StatusOK {
		t.Errorf("metrics status = %d, want 200", rec.Code)
	}
}

func TestCreateBillAndBalances(t *testing.T) {
	handler := setupTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/bills", "alice", createBillRequest{
		Description:    "dinner",
		TotalAmount:    10000,
		Category:       "food",
		ParticipantIDs: []string{"alice", "bob", "carol"},
		SplitStrategy:  "equal",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	bill := decode[billResponse](t, rec)
	if bill.ID == "" || len(bill.Splits) != 3 {
		t.Fatalf("bill = %+v, want id and 3 splits", bill)
	}
	var sum int64
	for _, split := range bill.Splits {
		sum += split.Amount
	}
	if sum != 10000 {
		t.Errorf("splits sum to %d, want 10000", sum)
	}

	// Alice is now owed by bob and carol.
	rec = doJSON(t, handler, http.MethodGet, "/api/balances", "alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("balances status = %d", rec.Code)
	}
	balances := decode[struct {
		Net      int64                         `json:"net"`
		Balances []counterpartyBalanceResponse `json:"balances"`
	}](t, rec)
	if balances.Net != 6666 || len(balances.Balances) != 2 {
		t.Errorf("balances = %+v, want net 6666 over 2 counterparties", balances)
	}

	// Bob's view: he owes alice his 3333 share.
	rec = doJSON(t, handler, http.MethodGet, "/api/balances/alice", "bob", nil)
	pair := decode[pairBalanceResponse](t, rec)
	if pair.Amount != -3333 || pair.Direction != "owed_to_b" {
		t.Errorf("pair = %+v, want -3333 owed_to_b", pair)
	}
}

func TestCreateBillValidationMapsTo400(t *testing.T) {
	handler := setupTestServer(t)

	tests := []struct {
		name string
		req  createBillRequest
	}{
		{
			name: "fixed amounts off by one",
			req: createBillRequest{
				TotalAmount:    9900,
				ParticipantIDs: []string{"alice", "bob", "carol"},
				SplitStrategy:  "fixed_amount",
				Amounts:        map[string]int64{"alice": 4000, "bob": 3500, "carol": 2500},
			},
		},
		{
			name: "percentages off",
			req: createBillRequest{
				TotalAmount:    10000,
				ParticipantIDs: []string{"alice", "bob"},
				SplitStrategy:  "percentage",
				Percentages:    map[string]float64{"alice": 60, "bob": 50},
			},
		},
		{
			name: "unknown strategy",
			req: createBillRequest{
				TotalAmount:    10000,
				ParticipantIDs: []string{"alice"},
				SplitStrategy:  "shares",
			},
		},
		{
			name: "zero total",
			req: createBillRequest{
				TotalAmount:    0,
				ParticipantIDs: []string{"alice"},
				SplitStrategy:  "equal",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, handler, http.MethodPost, "/api/bills", "alice", tt.req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
			resp := decode[errorResponse](t, rec)
			if resp.Code != "invalid_argument" {
				t.Errorf("code = %q, want invalid_argument", resp.Code)
			}
		})
	}
}

func TestSettlementFlow(t *testing.T) {
	handler := setupTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/bills", "alice", createBillRequest{
		Description:    "rent",
		TotalAmount:    10000,
		ParticipantIDs: []string{"alice", "bob"},
		SplitStrategy:  "equal",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("bill status = %d", rec.Code)
	}

	// Bob settles his half.
	rec = doJSON(t, handler, http.MethodPost, "/api/settlements", "bob", createSettlementRequest{
		PayeeID: "alice",
		Amount:  5000,
		Note:    "rent share",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("settlement status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp := decode[struct {
		Settlement settlementResponse  `json:"settlement"`
		Balance    pairBalanceResponse `json:"balance"`
	}](t, rec)
	if resp.Settlement.PayerID != "bob" || resp.Settlement.Amount != 5000 {
		t.Errorf("settlement = %+v", resp.Settlement)
	}
	if resp.Balance.Amount != 0 || resp.Balance.Direction != "settled" {
		t.Errorf("balance = %+v, want settled zero", resp.Balance)
	}

	// Both parties see the settlement.
	for _, user := range []string{"alice", "bob"} {
		rec = doJSON(t, handler, http.MethodGet, "/api/settlements", user, nil)
		if got := decode[[]settlementResponse](t, rec); len(got) != 1 {
			t.Errorf("%s sees %d settlements, want 1", user, len(got))
		}
	}

	// Zero amount rejected.
	rec = doJSON(t, handler, http.MethodPost, "/api/settlements", "bob", createSettlementRequest{
		PayeeID: "alice",
		Amount:  0,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("zero settlement status = %d, want 400", rec.Code)
	}
}

func TestBillVisibility(t *testing.T) {
	handler := setupTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/bills", "alice", createBillRequest{
		TotalAmount:    1000,
		ParticipantIDs: []string{"alice", "bob"},
		SplitStrategy:  "equal",
	})
	bill := decode[billResponse](t, rec)

	if rec := doJSON(t, handler, http.MethodGet, "/api/bills/"+bill.ID, "bob", nil); rec.Code != http.StatusOK {
		t.Errorf("participant view status = %d, want 200", rec.Code)
	}
	if rec := doJSON(t, handler, http.MethodGet, "/api/bills/"+bill.ID, "mallory", nil); rec.Code != http.StatusForbidden {
		t.Errorf("outsider view status = %d, want 403", rec.Code)
	}
	if rec := doJSON(t, handler, http.MethodGet, "/api/bills/does-not-exist", "alice", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing bill status = %d, want 404", rec.Code)
	}
}

func TestUsersEndpoint(t *testing.T) {
	handler := setupTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/users", "admin", createUserRequest{DisplayName: "Alice"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user status = %d", rec.Code)
	}
	user := decode[userResponse](t, rec)

	rec = doJSON(t, handler, http.MethodGet, "/api/users/"+user.ID, "admin", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get user status = %d", rec.Code)
	}
	if got := decode[userResponse](t, rec); got.DisplayName != "Alice" {
		t.Errorf("display name = %q, want Alice", got.DisplayName)
	}

	if rec := doJSON(t, handler, http.MethodGet, "/api/users/missing", "admin", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing user status = %d, want 404", rec.Code)
	}
}
