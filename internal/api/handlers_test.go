package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/vaultbank/banking-service/internal/app"
	"github.com/vaultbank/banking-service/internal/domain"
	"github.com/vaultbank/banking-service/internal/store"
	"github.com/vaultbank/banking-service/pkg/rabbitmq"
)

// stubRepo embeds the Repository interface so each test only fills in the
// methods its handler touches; anything else panics loudly.
type stubRepo struct {
	store.Repository
	profile              *domain.Profile
	account              *domain.Account
	applyLedgerEntry     func(ctx context.Context, ownerID uuid.UUID, tx *domain.Transaction) (int64, error)
	findTransactionByRef func(ctx context.Context, userID uuid.UUID, referenceID string) (*domain.Transaction, error)
}

func (s *stubRepo) FindProfileByClerkUserID(ctx context.Context, clerkUserID string) (*domain.Profile, error) {
	if s.profile != nil && s.profile.ClerkUserID == clerkUserID {
		return s.profile, nil
	}
	return nil, store.ErrProfileNotFound
}

func (s *stubRepo) FindAccountByID(ctx context.Context, accountID, ownerID uuid.UUID) (*domain.Account, error) {
	if s.account != nil && s.account.ID == accountID && s.account.UserID == ownerID {
		return s.account, nil
	}
	return nil, store.ErrAccountNotFound
}

func (s *stubRepo) ApplyLedgerEntry(ctx context.Context, ownerID uuid.UUID, tx *domain.Transaction) (int64, error) {
	return s.applyLedgerEntry(ctx, ownerID, tx)
}

func (s *stubRepo) FindTransactionByReferenceID(ctx context.Context, userID uuid.UUID, referenceID string) (*domain.Transaction, error) {
	return s.findTransactionByRef(ctx, userID, referenceID)
}

func testProfile() *domain.Profile {
	return &domain.Profile{
		ID:          uuid.New(),
		ClerkUserID: "user_test",
		Email:       "test@example.com",
	}
}

func authedRequest(method, target string, body []byte, clerkUserID string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	return req.WithContext(WithClerkUserID(req.Context(), clerkUserID))
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{store.ErrInsufficientFunds, http.StatusPaymentRequired},
		{store.ErrAccountNotFound, http.StatusNotFound},
		{store.ErrProfileNotFound, http.StatusNotFound},
		{store.ErrLoanNotFound, http.StatusNotFound},
		{store.ErrAccountInactive, http.StatusConflict},
		{store.ErrInvalidLoanState, http.StatusConflict},
		{store.ErrNoPendingInstallments, http.StatusConflict},
		{app.ErrInvalidAmount, http.StatusBadRequest},
		{app.ErrInvalidStatus, http.StatusBadRequest},
		{app.ErrInvalidLoanTerms, http.StatusBadRequest},
		{app.ErrSameAccountTransfer, http.StatusBadRequest},
		{errors.New("database on fire"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := statusForError(tc.err); got != tc.want {
			t.Errorf("statusForError(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestCreateTransactionHandler_Success(t *testing.T) {
	profile := testProfile()
	repo := &stubRepo{
		profile: profile,
		applyLedgerEntry: func(ctx context.Context, ownerID uuid.UUID, tx *domain.Transaction) (int64, error) {
			if ownerID != profile.ID {
				t.Errorf("unexpected owner id %s", ownerID)
			}
			return 5000, nil
		},
	}
	h := NewHandlers(app.NewService(repo, nil, &rabbitmq.EventProducerFallback{}))

	body, _ := json.Marshal(domain.LedgerEntryRequest{
		AccountID: uuid.New(),
		Amount:    5000,
		Type:      domain.TransactionTypeDeposit,
	})
	rec := httptest.NewRecorder()
	h.CreateTransactionHandler(rec, authedRequest(http.MethodPost, "/api/transactions", body, "user_test"))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success    bool  `json:"success"`
		NewBalance int64 `json:"new_balance"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success || resp.NewBalance != 5000 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestCreateTransactionHandler_InsufficientFunds(t *testing.T) {
	profile := testProfile()
	repo := &stubRepo{
		profile: profile,
		applyLedgerEntry: func(ctx context.Context, ownerID uuid.UUID, tx *domain.Transaction) (int64, error) {
			return 0, store.ErrInsufficientFunds
		},
	}
	h := NewHandlers(app.NewService(repo, nil, &rabbitmq.EventProducerFallback{}))

	body, _ := json.Marshal(domain.LedgerEntryRequest{
		AccountID: uuid.New(),
		Amount:    999999,
		Type:      domain.TransactionTypeWithdrawal,
	})
	rec := httptest.NewRecorder()
	h.CreateTransactionHandler(rec, authedRequest(http.MethodPost, "/api/transactions", body, "user_test"))

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateTransactionHandler_InvalidBody(t *testing.T) {
	profile := testProfile()
	h := NewHandlers(app.NewService(&stubRepo{profile: profile}, nil, &rabbitmq.EventProducerFallback{}))

	rec := httptest.NewRecorder()
	h.CreateTransactionHandler(rec, authedRequest(http.MethodPost, "/api/transactions", []byte(`{"amount": "lots"}`), "user_test"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestHandlers_MissingIdentityIsUnauthorized(t *testing.T) {
	h := NewHandlers(app.NewService(&stubRepo{}, nil, &rabbitmq.EventProducerFallback{}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/profiles/me", nil)
	h.GetProfileHandler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", rec.Code)
	}
}

func TestHandlers_UnknownProfileIsUnauthorized(t *testing.T) {
	h := NewHandlers(app.NewService(&stubRepo{}, nil, &rabbitmq.EventProducerFallback{}))

	rec := httptest.NewRecorder()
	h.GetProfileHandler(rec, authedRequest(http.MethodGet, "/api/profiles/me", nil, "user_unsynced"))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unsynced profile, got %d", rec.Code)
	}
}

func TestRequireAdmin_ForbidsNonAdmins(t *testing.T) {
	profile := testProfile()
	h := NewHandlers(app.NewService(&stubRepo{profile: profile}, nil, &rabbitmq.EventProducerFallback{}))
	admin := NewAdminHandlers(h, nil)

	called := false
	gate := admin.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/admin/profiles", nil, "user_test"))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rec.Code)
	}
	if called {
		t.Error("expected the protected handler not to run")
	}
}

func TestRequireAdmin_AllowsAdmins(t *testing.T) {
	profile := testProfile()
	profile.IsAdmin = true
	h := NewHandlers(app.NewService(&stubRepo{profile: profile}, nil, &rabbitmq.EventProducerFallback{}))
	admin := NewAdminHandlers(h, nil)

	called := false
	gate := admin.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/admin/profiles", nil, "user_test"))

	if rec.Code != http.StatusOK || !called {
		t.Fatalf("expected admin to pass the gate, got %d (called=%t)", rec.Code, called)
	}
}

func TestRespondError_HidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	respondError(rec, fmt.Errorf("pq: connection to %s refused", "10.0.0.5:5432"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if resp["error"] != "Internal server error" {
		t.Errorf("expected generic error message, got %q", resp["error"])
	}
}
