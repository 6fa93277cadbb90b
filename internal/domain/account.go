/**
 * @description
 * This file defines the bank account domain model and its DTOs. An account's
 * balance is a denormalized column that is only ever written inside the atomic
 * ledger operation, in lockstep with the transaction insert.
 *
 * @notes
 * - Amounts are stored as `int64` in the smallest currency unit (cents) to avoid
 *   floating-point inaccuracies with financial data.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account statuses.
const (
	AccountStatusActive   = "active"
	AccountStatusInactive = "inactive"
)

// Account types.
const (
	AccountTypeSavings  = "savings"
	AccountTypeChecking = "checking"
)

// Account represents a user's bank account. Balance mutations flow exclusively
// through the ledger operation; every other endpoint treats balance as read-only.
type Account struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	AccountNumber string    `json:"account_number"`
	AccountType   string    `json:"account_type"`
	Balance       int64     `json:"balance"` // in cents
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OpenAccountRequest is the DTO for the account opening endpoint.
type OpenAccountRequest struct {
	AccountType string `json:"account_type"`
	Currency    string `json:"currency,omitempty"`
}

// UpdateAccountRequest is the DTO for the account field-update endpoint.
// Balance is deliberately absent: allowing a direct balance write here would
// break the balance/transaction lockstep invariant.
type UpdateAccountRequest struct {
	AccountType string `json:"account_type"`
}

// SetAccountStatusRequest is the DTO for the status mutator endpoint.
type SetAccountStatusRequest struct {
	Status string `json:"status"`
}

// DashboardSummary aggregates the account and recent-transaction view rendered
// on the user dashboard. It is cached and must be invalidated whenever an
// account or transaction belonging to the user changes.
type DashboardSummary struct {
	Accounts           []Account     `json:"accounts"`
	TotalBalance       int64         `json:"total_balance"`
	RecentTransactions []Transaction `json:"recent_transactions"`
}

// IsValidAccountStatus reports whether s is one of the two recognized statuses.
func IsValidAccountStatus(s string) bool {
	return s == AccountStatusActive || s == AccountStatusInactive
}

// IsValidAccountType reports whether t is a recognized account type.
func IsValidAccountType(t string) bool {
	return t == AccountTypeSavings || t == AccountTypeChecking
}
