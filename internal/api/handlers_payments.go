/**
 * @description
 * HTTP handlers for deposit funding through Stripe. The service never captures
 * payments itself: it creates a PaymentIntent for the client to complete, then
 * on confirmation verifies with Stripe that the intent succeeded before
 * crediting the account through the standard ledger operation. The intent id
 * doubles as the ledger reference id, which keeps confirmation idempotent.
 */

package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/vaultbank/banking-service/internal/app"
	"github.com/vaultbank/banking-service/internal/domain"
	"github.com/vaultbank/banking-service/internal/store"
	"github.com/vaultbank/banking-service/pkg/stripeclient"
)

// PaymentHandlers holds the Stripe client and the banking service.
type PaymentHandlers struct {
	banking *Handlers
	stripe  *stripeclient.Client
}

// NewPaymentHandlers creates a new instance of PaymentHandlers.
func NewPaymentHandlers(banking *Handlers, stripe *stripeclient.Client) *PaymentHandlers {
	return &PaymentHandlers{banking: banking, stripe: stripe}
}

type depositIntentRequest struct {
	AccountID uuid.UUID `json:"account_id"`
	Amount    int64     `json:"amount"` // in cents
	Currency  string    `json:"currency,omitempty"`
}

type depositIntentResponse struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
	Amount          int64  `json:"amount"`
}

type confirmDepositRequest struct {
	AccountID       uuid.UUID `json:"account_id"`
	PaymentIntentID string    `json:"payment_intent_id"`
}

// CreateDepositIntentHandler creates a Stripe PaymentIntent to fund a deposit
// into one of the caller's accounts.
func (h *PaymentHandlers) CreateDepositIntentHandler(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.banking.caller(w, r)
	if !ok {
		return
	}

	var req depositIntentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, app.ErrInvalidAmount.Error())
		return
	}

	// The target account must exist and belong to the caller before we create
	// anything on Stripe's side.
	account, err := h.banking.service.GetAccount(r.Context(), req.AccountID, profile.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = account.Currency
	}
	intent, err := h.stripe.CreatePaymentIntent(r.Context(), req.Amount, currency, map[string]string{
		"account_id": account.ID.String(),
		"user_id":    profile.ID.String(),
	})
	if err != nil {
		log.Printf("level=warn component=api endpoint=deposit_intent outcome=failed user_id=%s err=%v", profile.ID, err)
		writeError(w, http.StatusBadGateway, "Payment provider is unavailable")
		return
	}

	writeJSON(w, http.StatusCreated, depositIntentResponse{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          intent.Amount,
	})
}

// ConfirmDepositHandler verifies a succeeded PaymentIntent with Stripe and
// credits the account through the ledger operation. The intent's metadata must
// tie it to the caller and the target account. Confirming the same intent
// twice returns the original transaction instead of crediting again.
func (h *PaymentHandlers) ConfirmDepositHandler(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.banking.caller(w, r)
	if !ok {
		return
	}

	var req confirmDepositRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.PaymentIntentID == "" {
		writeError(w, http.StatusBadRequest, "payment_intent_id is required")
		return
	}

	// Idempotency: a deposit already recorded for this intent is returned
	// as-is, with the account's current balance rather than a stale one.
	if existing, err := h.banking.service.FindTransactionByReference(r.Context(), profile.ID, req.PaymentIntentID); err == nil {
		account, err := h.banking.service.GetAccount(r.Context(), existing.AccountID, profile.ID)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ledgerEntryResponse{Success: true, Transaction: existing, NewBalance: account.Balance})
		return
	} else if !errors.Is(err, store.ErrTransactionNotFound) {
		respondError(w, err)
		return
	}

	intent, err := h.stripe.GetPaymentIntent(r.Context(), req.PaymentIntentID)
	if err != nil {
		log.Printf("level=warn component=api endpoint=confirm_deposit outcome=failed user_id=%s err=%v", profile.ID, err)
		writeError(w, http.StatusBadGateway, "Payment provider is unavailable")
		return
	}
	// The intent must have been created by this caller for this account; an
	// intent id is not a bearer credential for whoever learns it.
	if intent.Metadata["user_id"] != profile.ID.String() {
		writeError(w, http.StatusNotFound, "Payment intent not found")
		return
	}
	if intent.Metadata["account_id"] != req.AccountID.String() {
		writeError(w, http.StatusBadRequest, "account_id does not match the payment intent")
		return
	}
	if intent.Status != "succeeded" {
		writeError(w, http.StatusConflict, "Payment has not succeeded yet")
		return
	}

	result, err := h.banking.service.ApplyLedgerEntry(r.Context(), profile.ID, domain.LedgerEntryRequest{
		AccountID:   req.AccountID,
		Amount:      intent.Amount,
		Type:        domain.TransactionTypeDeposit,
		Description: "Stripe deposit",
		ReferenceID: intent.ID,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ledgerEntryResponse{
		Success:     true,
		Transaction: result.Transaction,
		NewBalance:  result.NewBalance,
	})
}
