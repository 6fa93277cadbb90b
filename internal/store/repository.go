/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the banking service. By defining an interface,
 * we decouple the application's business logic from the specific database implementation
 * (PostgreSQL), making the code more modular and easier to test.
 *
 * @dependencies
 * - context: Standard Go library.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/vaultbank/banking-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
//
// Ownership scoping convention: methods taking an ownerID return ErrAccountNotFound
// (or the record-appropriate not-found error) when the record exists but belongs to
// someone else. Callers cannot distinguish "absent" from "not yours".
type Repository interface {
	// Profile methods
	FindProfileByClerkUserID(ctx context.Context, clerkUserID string) (*domain.Profile, error)
	FindProfileByID(ctx context.Context, profileID uuid.UUID) (*domain.Profile, error)
	UpsertProfile(ctx context.Context, profile *domain.Profile) (*domain.Profile, error)
	ListProfiles(ctx context.Context, limit, offset int) ([]domain.Profile, error)
	SetProfileKYCStatus(ctx context.Context, profileID uuid.UUID, kycStatus string) error
	SetProfileAdmin(ctx context.Context, profileID uuid.UUID, isAdmin bool) error

	// Account methods
	CreateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error)
	FindAccountByID(ctx context.Context, accountID, ownerID uuid.UUID) (*domain.Account, error)
	FindAccountByIDAnyOwner(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
	FindAccountsByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Account, error)
	ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error)
	UpdateAccountType(ctx context.Context, accountID, ownerID uuid.UUID, accountType string) error
	// UpdateAccountStatus updates the status of an account. A nil ownerID skips the
	// ownership check (administrator scope).
	UpdateAccountStatus(ctx context.Context, accountID uuid.UUID, ownerID *uuid.UUID, status string) error

	// Ledger methods
	//
	// ApplyLedgerEntry is the atomic balance-update-plus-transaction-append operation.
	// Within one database transaction it locks the (accountID, ownerID) row, verifies
	// funds for debiting kinds, applies the signed delta, and inserts the immutable
	// transaction record. It returns the new balance. Any failure rolls back both
	// writes; no partial state is observable.
	ApplyLedgerEntry(ctx context.Context, ownerID uuid.UUID, tx *domain.Transaction) (int64, error)
	// Transfer moves funds between two accounts as one atomic unit, producing the
	// paired transfer_out/transfer_in records.
	Transfer(ctx context.Context, ownerID uuid.UUID, outgoing, incoming *domain.Transaction) (*domain.TransferResult, error)
	FindTransactionsByUserID(ctx context.Context, userID uuid.UUID, opts domain.TransactionListOptions) ([]domain.Transaction, error)
	FindTransactionByReferenceID(ctx context.Context, userID uuid.UUID, referenceID string) (*domain.Transaction, error)

	// Loan methods
	CreateLoan(ctx context.Context, loan *domain.Loan) (*domain.Loan, error)
	FindLoanByID(ctx context.Context, loanID, ownerID uuid.UUID) (*domain.Loan, error)
	FindLoanByIDAnyOwner(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error)
	FindLoansByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Loan, error)
	ListLoans(ctx context.Context, limit, offset int) ([]domain.Loan, error)
	// ApproveLoan moves a pending loan to approved and records the computed
	// repayment terms. It fails with ErrInvalidLoanState if the loan is not pending.
	ApproveLoan(ctx context.Context, loanID uuid.UUID, approvedBy string, totalPayable, emiAmount int64) error
	// DisburseLoan atomically marks an approved loan disbursed, inserts its
	// installment schedule, and credits the disbursement account through the same
	// balance-plus-transaction write used by ApplyLedgerEntry.
	DisburseLoan(ctx context.Context, loan *domain.Loan, disbursement *domain.Transaction, schedule []domain.Installment) (int64, error)
	FindInstallmentsByLoanID(ctx context.Context, loanID, ownerID uuid.UUID) ([]domain.Installment, error)
	// PayNextInstallment atomically debits the paying account, marks the earliest
	// pending installment paid, advances the loan's repayment state, and closes the
	// loan when the final installment settles.
	PayNextInstallment(ctx context.Context, ownerID, loanID uuid.UUID, payment *domain.Transaction) (*domain.PayEMIResult, error)
}
