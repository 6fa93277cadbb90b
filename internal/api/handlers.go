/**
 * @description
 * This file contains the HTTP handlers for profile, account, transaction, and
 * dashboard endpoints. Handlers are responsible for parsing incoming requests,
 * calling the appropriate methods on the application service, and writing the
 * HTTP response. They act as the bridge between the web layer and the business
 * logic layer.
 *
 * All failures are converted to a JSON error body here; nothing propagates far
 * enough to crash the process, and no handler retries anything.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vaultbank/banking-service/internal/app"
	"github.com/vaultbank/banking-service/internal/domain"
	"github.com/vaultbank/banking-service/internal/store"
)

// Handlers holds the application service that the core banking handlers use.
type Handlers struct {
	service *app.Service
}

// NewHandlers creates a new instance of Handlers.
func NewHandlers(service *app.Service) *Handlers {
	return &Handlers{service: service}
}

// ledgerEntryResponse is the 201 body for POST /api/transactions.
type ledgerEntryResponse struct {
	Success     bool                `json:"success"`
	Transaction *domain.Transaction `json:"transaction"`
	NewBalance  int64               `json:"new_balance"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusForError maps service and store errors onto the HTTP error taxonomy:
// InvalidArgument -> 400, NotFound -> 404, InsufficientFunds -> 402,
// conflicting lifecycle state -> 409, everything unexpected -> 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, store.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, store.ErrAccountNotFound),
		errors.Is(err, store.ErrProfileNotFound),
		errors.Is(err, store.ErrTransactionNotFound),
		errors.Is(err, store.ErrLoanNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrAccountInactive),
		errors.Is(err, store.ErrInvalidLoanState),
		errors.Is(err, store.ErrNoPendingInstallments),
		errors.Is(err, store.ErrDuplicateReference):
		return http.StatusConflict
	case errors.Is(err, app.ErrInvalidAmount),
		errors.Is(err, app.ErrInvalidTransactionType),
		errors.Is(err, app.ErrInvalidStatus),
		errors.Is(err, app.ErrInvalidAccountType),
		errors.Is(err, app.ErrInvalidKYCStatus),
		errors.Is(err, app.ErrInvalidLoanTerms),
		errors.Is(err, app.ErrSameAccountTransfer),
		errors.Is(err, app.ErrMissingEmail):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func respondError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		log.Printf("level=error component=api msg=\"request failed\" err=%v", err)
		writeError(w, status, "Internal server error")
		return
	}
	writeError(w, status, err.Error())
}

// caller resolves the authenticated user's profile. It writes the error
// response itself and reports false when the request cannot proceed.
func (h *Handlers) caller(w http.ResponseWriter, r *http.Request) (*domain.Profile, bool) {
	clerkUserID, ok := GetClerkUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing caller identity")
		return nil, false
	}
	profile, err := h.service.ResolveProfile(r.Context(), clerkUserID)
	if err != nil {
		if errors.Is(err, store.ErrProfileNotFound) {
			writeError(w, http.StatusUnauthorized, "Profile not found; sync your profile first")
			return nil, false
		}
		respondError(w, err)
		return nil, false
	}
	return profile, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

// SyncProfileHandler upserts the caller's profile on first sign-in.
func (h *Handlers) SyncProfileHandler(w http.ResponseWriter, r *http.Request) {
	clerkUserID, ok := GetClerkUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing caller identity")
		return
	}

	var req domain.SyncProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := h.service.EnsureProfile(r.Context(), clerkUserID, req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// GetProfileHandler returns the caller's profile.
func (h *Handlers) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.caller(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// OpenAccountHandler opens a new account for the caller.
func (h *Handlers) OpenAccountHandler(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req domain.OpenAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.service.OpenAccount(r.Context(), profile.ID, req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// ListAccountsHandler returns the caller's accounts.
func (h *Handlers) ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.caller(w, r)
	if !ok {
		return
	}
	accounts, err := h.service.ListAccounts(r.Context(), profile.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// GetAccountHandler returns one of the caller's accounts.
func (h *Handlers) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.caller(w, r)
	if !ok {
		return
	}
	accountID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	account, err := h.service.GetAccount(r.Context(), accountID, profile.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// UpdateAccountHandler updates mutable account fields (type only; balance and
// status have dedicated paths).
func (h *Handlers) UpdateAccountHandler(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.caller(w, r)
	if !ok {
		return
	}
	accountID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req domain.UpdateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.service.UpdateAccountType(r.Context(), accountID, profile.ID, req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// SetAccountStatusHandler toggles an account between active and inactive.
// Administrators may target any account; other callers only their own.
func (h *Handlers) SetAccountStatusHandler(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.caller(w, r)
	if !ok {
		return
	}
	accountID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req domain.SetAccountStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.service.SetAccountStatus(r.Context(), profile, accountID, req.Status)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// CreateTransactionHandler executes the ledger operation against one of the
// caller's accounts.
func (h *Handlers) CreateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req domain.LedgerEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.ApplyLedgerEntry(r.Context(), profile.ID, req)
	if err != nil {
		log.Printf("level=warn component=api endpoint=create_transaction outcome=failed user_id=%s err=%v", profile.ID, err)
		respondError(w, err)
		return
	}

	log.Printf("level=info component=api endpoint=create_transaction outcome=completed user_id=%s account_id=%s type=%s amount=%d",
		profile.ID, req.AccountID, req.Type, req.Amount)
	writeJSON(w, http.StatusCreated, ledgerEntryResponse{
		Success:     true,
		Transaction: result.Transaction,
		NewBalance:  result.NewBalance,
	})
}

// ListTransactionsHandler returns the caller's transaction history with
// optional account filtering and pagination.
func (h *Handlers) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.caller(w, r)
	if !ok {
		return
	}

	opts := domain.TransactionListOptions{
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	if raw := r.URL.Query().Get("account_id"); raw != "" {
		accountID, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid account_id")
			return
		}
		opts.AccountID = &accountID
	}

	transactions, err := h.service.ListTransactions(r.Context(), profile.ID, opts)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transactions)
}

// TransferHandler moves funds from one of the caller's accounts to another account.
func (h *Handlers) TransferHandler(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req domain.TransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.Transfer(r.Context(), profile.ID, req)
	if err != nil {
		log.Printf("level=warn component=api endpoint=transfer outcome=failed user_id=%s err=%v", profile.ID, err)
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// DashboardHandler returns the cached dashboard summary for the caller.
func (h *Handlers) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.caller(w, r)
	if !ok {
		return
	}
	summary, err := h.service.DashboardSummary(r.Context(), profile.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func queryInt(r *http.Request, key string) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
