/**
 * @description
 * This file defines the loan and installment (EMI) domain models. The loan
 * lifecycle is a linear state machine: pending -> approved -> disbursed -> closed.
 * Disbursement credits the borrower's account through the ledger operation and
 * materializes the full installment schedule in the same atomic unit.
 *
 * @dependencies
 * - time: Standard Go library.
 * - github.com/google/uuid: For identifiers.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Loan lifecycle states, in order. No backward transitions.
const (
	LoanStatusPending   = "pending"
	LoanStatusApproved  = "approved"
	LoanStatusDisbursed = "disbursed"
	LoanStatusClosed    = "closed"
)

// Installment statuses.
const (
	InstallmentStatusPending = "pending"
	InstallmentStatusPaid    = "paid"
)

// Loan represents a loan application and, once disbursed, the running repayment
// state. Monetary fields are int64 cents; InterestRate is an annual percentage.
type Loan struct {
	ID                    uuid.UUID  `json:"id"`
	UserID                uuid.UUID  `json:"user_id"`
	LoanType              string     `json:"loan_type"`
	Amount                int64      `json:"amount"` // principal, in cents
	InterestRate          float64    `json:"interest_rate"`
	TenureMonths          int        `json:"tenure_months"`
	Status                string     `json:"status"`
	TotalPayable          int64      `json:"total_payable"`
	EMIAmount             int64      `json:"emi_amount"`
	AmountPaid            int64      `json:"amount_paid"`
	DisbursementAccountID *uuid.UUID `json:"disbursement_account_id,omitempty"`
	ApprovedBy            *string    `json:"approved_by,omitempty"`
	ApprovedAt            *time.Time `json:"approved_at,omitempty"`
	DisbursedAt           *time.Time `json:"disbursed_at,omitempty"`
	NextEMIDate           *time.Time `json:"next_emi_date,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// Installment represents one scheduled partial repayment (EMI) of a loan.
type Installment struct {
	ID              uuid.UUID  `json:"id"`
	LoanID          uuid.UUID  `json:"loan_id"`
	UserID          uuid.UUID  `json:"user_id"`
	EMINumber       int        `json:"emi_number"`
	Amount          int64      `json:"amount"` // in cents
	PrincipalAmount int64      `json:"principal_amount"`
	InterestAmount  int64      `json:"interest_amount"`
	Status          string     `json:"status"`
	DueDate         time.Time  `json:"due_date"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	TransactionID   *uuid.UUID `json:"transaction_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ApplyLoanRequest is the DTO for the loan application endpoint.
type ApplyLoanRequest struct {
	LoanType     string  `json:"loan_type"`
	Amount       int64   `json:"amount"` // principal, in cents
	InterestRate float64 `json:"interest_rate"`
	TenureMonths int     `json:"tenure_months"`
}

// DisburseLoanRequest is the DTO for the admin disbursement endpoint.
type DisburseLoanRequest struct {
	AccountID uuid.UUID `json:"account_id"`
}

// PayEMIRequest is the DTO for the installment payment endpoint.
type PayEMIRequest struct {
	AccountID uuid.UUID `json:"account_id"`
}

// PayEMIResult carries the outcome of a committed installment payment.
type PayEMIResult struct {
	Installment *Installment `json:"installment"`
	Transaction *Transaction `json:"transaction"`
	Loan        *Loan        `json:"loan"`
	NewBalance  int64        `json:"new_balance"`
}

// CanTransitionLoanStatus reports whether the loan lifecycle permits moving
// from one state to the next. Only forward, single-step transitions are legal.
func CanTransitionLoanStatus(from, to string) bool {
	switch from {
	case LoanStatusPending:
		return to == LoanStatusApproved
	case LoanStatusApproved:
		return to == LoanStatusDisbursed
	case LoanStatusDisbursed:
		return to == LoanStatusClosed
	}
	return false
}
