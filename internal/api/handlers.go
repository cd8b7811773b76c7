package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmynk/evensplit/internal/calculator"
	"github.com/mmynk/evensplit/internal/middleware"
	"github.com/mmynk/evensplit/internal/models"
	"github.com/mmynk/evensplit/internal/money"
	"github.com/mmynk/evensplit/internal/service"
	"github.com/mmynk/evensplit/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeError maps typed domain errors onto HTTP statuses. Validation
// rejections are the caller's to fix (400), conflicts are transient (409),
// anything unrecognized is a 500.
func writeError(w http.ResponseWriter, err error) {
	var (
		dup      *calculator.DuplicateParticipantError
		pct      *calculator.PercentageMismatchError
		amt      *calculator.AmountMismatchError
		missing  *calculator.MissingInputError
		negative *calculator.NegativeAmountError
		negPct   *calculator.NegativePercentageError
		unknown  *calculator.UnknownStrategyError
		category *service.InvalidCategoryError
		overpay  *service.OverpaymentError
	)

	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, calculator.ErrEmptyParticipants),
		errors.Is(err, service.ErrNonPositiveTotal),
		errors.Is(err, service.ErrMissingCreator),
		errors.Is(err, service.ErrNonPositiveAmount),
		errors.Is(err, service.ErrSelfSettlement),
		errors.As(err, &dup),
		errors.As(err, &pct),
		errors.As(err, &amt),
		errors.As(err, &missing),
		errors.As(err, &negative),
		errors.As(err, &negPct),
		errors.As(err, &unknown),
		errors.As(err, &category),
		errors.As(err, &overpay):
		status, code = http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, storage.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, storage.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	}

	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

type splitResponse struct {
	UserID string `json:"user_id"`
	Amount int64  `json:"amount"`
}

type billResponse struct {
	ID             string          `json:"id"`
	Description    string          `json:"description"`
	TotalAmount    int64           `json:"total_amount"`
	Category       string          `json:"category"`
	CreatorID      string          `json:"creator_id"`
	ParticipantIDs []string        `json:"participant_ids"`
	SplitStrategy  string          `json:"split_strategy"`
	Splits         []splitResponse `json:"splits"`
	CreatedAt      int64           `json:"created_at"`
}

func toBillResponse(bill *models.Bill) billResponse {
	resp := billResponse{
		ID:             bill.ID,
		Description:    bill.Description,
		TotalAmount:    int64(bill.Total),
		Category:       string(bill.Category),
		CreatorID:      bill.CreatorID,
		ParticipantIDs: bill.ParticipantIDs,
		SplitStrategy:  string(bill.Strategy),
		CreatedAt:      bill.CreatedAt,
	}
	for _, split := range bill.Splits {
		resp.Splits = append(resp.Splits, splitResponse{UserID: split.UserID, Amount: int64(split.Amount)})
	}
	return resp
}

type createBillRequest struct {
	Description    string             `json:"description"`
	TotalAmount    int64              `json:"total_amount"`
	Category       string             `json:"category"`
	ParticipantIDs []string           `json:"participant_ids"`
	SplitStrategy  string             `json:"split_strategy"`
	Percentages    map[string]float64 `json:"percentages,omitempty"`
	Amounts        map[string]int64   `json:"amounts,omitempty"`
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var req createBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body", Code: "invalid_argument"})
		return
	}

	amounts := make(map[string]money.Amount, len(req.Amounts))
	for user, amt := range req.Amounts {
		amounts[user] = money.Amount(amt)
	}

	bill, err := s.bills.Create(r.Context(), service.CreateBillRequest{
		Description:    req.Description,
		Total:          money.Amount(req.TotalAmount),
		Category:       models.Category(req.Category),
		CreatorID:      middleware.UserID(r.Context()),
		ParticipantIDs: req.ParticipantIDs,
		Strategy:       models.SplitStrategy(req.SplitStrategy),
		Percentages:    req.Percentages,
		Amounts:        amounts,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBillResponse(bill))
}

func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	bill, err := s.bills.Get(r.Context(), chi.URLParam(r, "billID"))
	if err != nil {
		writeError(w, err)
		return
	}

	// Bills are visible to their participants only.
	caller := middleware.UserID(r.Context())
	visible := false
	for _, id := range bill.ParticipantIDs {
		if id == caller {
			visible = true
			break
		}
	}
	if !visible {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "you must be a participant to view this bill", Code: "permission_denied"})
		return
	}
	writeJSON(w, http.StatusOK, toBillResponse(bill))
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.bills.ListForUser(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]billResponse, 0, len(bills))
	for _, bill := range bills {
		resp = append(resp, toBillResponse(bill))
	}
	writeJSON(w, http.StatusOK, resp)
}

type createSettlementRequest struct {
	PayeeID string `json:"payee_id"`
	Amount  int64  `json:"amount"`
	BillID  string `json:"bill_id,omitempty"`
	Note    string `json:"note,omitempty"`
}

type settlementResponse struct {
	ID        string `json:"id"`
	PayerID   string `json:"payer_id"`
	PayeeID   string `json:"payee_id"`
	Amount    int64  `json:"amount"`
	BillID    string `json:"bill_id,omitempty"`
	Note      string `json:"note,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

type pairBalanceResponse struct {
	UserA     string `json:"user_a"`
	UserB     string `json:"user_b"`
	Amount    int64  `json:"amount"`
	Direction string `json:"direction"`
}

func toSettlementResponse(settlement *models.Settlement) settlementResponse {
	return settlementResponse{
		ID:        settlement.ID,
		PayerID:   settlement.PayerID,
		PayeeID:   settlement.PayeeID,
		Amount:    int64(settlement.Amount),
		BillID:    settlement.BillID,
		Note:      settlement.Note,
		CreatedAt: settlement.CreatedAt,
	}
}

func toPairBalanceResponse(pb models.PairBalance) pairBalanceResponse {
	return pairBalanceResponse{
		UserA:     pb.UserA,
		UserB:     pb.UserB,
		Amount:    int64(pb.Amount),
		Direction: string(pb.Direction),
	}
}

func (s *Server) handleCreateSettlement(w http.ResponseWriter, r *http.Request) {
	var req createSettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body", Code: "invalid_argument"})
		return
	}

	// The payer is always the caller.
	settlement, balance, err := s.settlements.RecordPayment(r.Context(),
		middleware.UserID(r.Context()), req.PayeeID, money.Amount(req.Amount), req.BillID, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Settlement settlementResponse  `json:"settlement"`
		Balance    pairBalanceResponse `json:"balance"`
	}{toSettlementResponse(settlement), toPairBalanceResponse(balance)})
}

func (s *Server) handleListSettlements(w http.ResponseWriter, r *http.Request) {
	settlements, err := s.settlements.ListForUser(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]settlementResponse, 0, len(settlements))
	for _, settlement := range settlements {
		resp = append(resp, toSettlementResponse(settlement))
	}
	writeJSON(w, http.StatusOK, resp)
}

type counterpartyBalanceResponse struct {
	CounterpartyID string `json:"counterparty_id"`
	Amount         int64  `json:"amount"`
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserID(r.Context())

	balances := s.engine.BalancesFor(caller)
	resp := struct {
		Net      int64                         `json:"net"`
		Balances []counterpartyBalanceResponse `json:"balances"`
	}{Balances: make([]counterpartyBalanceResponse, 0, len(balances))}

	for _, b := range balances {
		resp.Net += int64(b.Amount)
		resp.Balances = append(resp.Balances, counterpartyBalanceResponse{
			CounterpartyID: b.CounterpartyID,
			Amount:         int64(b.Amount),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePairBalance(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserID(r.Context())
	counterparty := chi.URLParam(r, "counterpartyID")
	writeJSON(w, http.StatusOK, toPairBalanceResponse(s.engine.PairBalance(caller, counterparty)))
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	summary, err := s.analytics.Summary(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAnalyticsResponse(summary))
}

type createUserRequest struct {
	DisplayName string `json:"display_name"`
}

type userResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	CreatedAt   int64  `json:"created_at"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DisplayName == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "display_name required", Code: "invalid_argument"})
		return
	}

	user := &models.User{DisplayName: req.DisplayName}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{ID: user.ID, DisplayName: user.DisplayName, CreatedAt: user.CreatedAt})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{ID: user.ID, DisplayName: user.DisplayName, CreatedAt: user.CreatedAt})
}
