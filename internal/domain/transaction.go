/**
 * @description
 * This file defines the transaction domain model — the append-only ledger record
 * behind every balance movement — together with the request/response DTOs for the
 * ledger and transfer endpoints.
 *
 * @notes
 * - Transaction rows are immutable once created. Direction is carried by the type
 *   field; the amount column always holds the positive magnitude in cents.
 * - Using distinct types for API requests and database models keeps the web layer
 *   decoupled from storage.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Transaction types. Debiting kinds subtract from the balance, crediting kinds add.
const (
	TransactionTypeDeposit          = "deposit"
	TransactionTypeWithdrawal       = "withdrawal"
	TransactionTypeTransferIn       = "transfer_in"
	TransactionTypeTransferOut      = "transfer_out"
	TransactionTypeLoanDisbursement = "loan_disbursement"
	TransactionTypeEMIPayment       = "emi_payment"
	TransactionTypeCredit           = "credit"
	TransactionTypeDebit            = "debit"
)

// Transaction statuses.
const (
	TransactionStatusCompleted = "completed"
	TransactionStatusPending   = "pending"
	TransactionStatusFailed    = "failed"
)

// Transaction is the central ledger record for any money movement. It maps
// directly to the `transactions` table.
type Transaction struct {
	ID                 uuid.UUID  `json:"id"`
	UserID             uuid.UUID  `json:"user_id"`
	AccountID          uuid.UUID  `json:"account_id"`
	Amount             int64      `json:"amount"` // in cents, always positive
	Type               string     `json:"type"`
	Status             string     `json:"status"`
	Description        string     `json:"description,omitempty"`
	ReferenceID        string     `json:"reference_id"`
	RecipientAccountID *uuid.UUID `json:"recipient_account_id,omitempty"`
	RecipientUserID    *uuid.UUID `json:"recipient_user_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// LedgerEntryRequest is the DTO for the POST /api/transactions endpoint.
type LedgerEntryRequest struct {
	AccountID   uuid.UUID `json:"account_id"`
	Amount      int64     `json:"amount"` // in cents
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	ReferenceID string    `json:"reference_id,omitempty"`
}

// LedgerEntryResult carries the outcome of a committed ledger operation.
type LedgerEntryResult struct {
	Transaction *Transaction `json:"transaction"`
	NewBalance  int64        `json:"new_balance"`
}

// TransferRequest is the DTO for the POST /api/transfers endpoint.
type TransferRequest struct {
	SourceAccountID      uuid.UUID `json:"source_account_id"`
	DestinationAccountID uuid.UUID `json:"destination_account_id"`
	Amount               int64     `json:"amount"` // in cents
	Description          string    `json:"description,omitempty"`
}

// TransferResult carries both legs of a committed transfer. The legs share a
// reference id so they can be correlated in statements.
type TransferResult struct {
	Outgoing         *Transaction `json:"outgoing"`
	Incoming         *Transaction `json:"incoming"`
	SourceNewBalance int64        `json:"source_new_balance"`
}

// TransactionListOptions controls filtering and pagination of history queries.
type TransactionListOptions struct {
	AccountID *uuid.UUID
	Limit     int
	Offset    int
}

// IsDebitType reports whether t subtracts from the account balance.
func IsDebitType(t string) bool {
	switch t {
	case TransactionTypeWithdrawal, TransactionTypeTransferOut, TransactionTypeEMIPayment, TransactionTypeDebit:
		return true
	}
	return false
}

// IsValidTransactionType reports whether t is one of the recognized ledger kinds.
func IsValidTransactionType(t string) bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal,
		TransactionTypeTransferIn, TransactionTypeTransferOut,
		TransactionTypeLoanDisbursement, TransactionTypeEMIPayment,
		TransactionTypeCredit, TransactionTypeDebit:
		return true
	}
	return false
}

// SignedAmount returns the delta the transaction applies to its account balance.
func (t *Transaction) SignedAmount() int64 {
	if IsDebitType(t.Type) {
		return -t.Amount
	}
	return t.Amount
}
