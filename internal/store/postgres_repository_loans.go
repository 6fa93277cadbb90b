/**
 * @description
 * PostgreSQL implementation of the loan and installment methods of the
 * `Repository` interface. Disbursement and EMI payment are composite operations:
 * they reuse applyEntryInTx so the loan-state writes and the account
 * balance/transaction pair commit as one database transaction.
 */

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vaultbank/banking-service/internal/domain"
)

const loanColumns = `id, user_id, loan_type, amount, interest_rate, tenure_months, status, total_payable, emi_amount, amount_paid, disbursement_account_id, approved_by, approved_at, disbursed_at, next_emi_date, created_at, updated_at`

func scanLoan(row pgx.Row) (*domain.Loan, error) {
	var l domain.Loan
	err := row.Scan(&l.ID, &l.UserID, &l.LoanType, &l.Amount, &l.InterestRate, &l.TenureMonths, &l.Status,
		&l.TotalPayable, &l.EMIAmount, &l.AmountPaid, &l.DisbursementAccountID,
		&l.ApprovedBy, &l.ApprovedAt, &l.DisbursedAt, &l.NextEMIDate, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}
	return &l, nil
}

// CreateLoan inserts a new loan application in the pending state.
func (r *PostgresRepository) CreateLoan(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	query := `
		INSERT INTO loans (id, user_id, loan_type, amount, interest_rate, tenure_months, status, total_payable, emi_amount, amount_paid, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, 0, NOW(), NOW())
		RETURNING ` + loanColumns
	return scanLoan(r.db.QueryRow(ctx, query,
		loan.ID, loan.UserID, loan.LoanType, loan.Amount, loan.InterestRate, loan.TenureMonths, domain.LoanStatusPending))
}

// FindLoanByID retrieves a loan scoped to its owner.
func (r *PostgresRepository) FindLoanByID(ctx context.Context, loanID, ownerID uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 AND user_id = $2`
	return scanLoan(r.db.QueryRow(ctx, query, loanID, ownerID))
}

// FindLoanByIDAnyOwner retrieves a loan without ownership scoping (administrator paths).
func (r *PostgresRepository) FindLoanByIDAnyOwner(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	return scanLoan(r.db.QueryRow(ctx, query, loanID))
}

// FindLoansByUserID retrieves all loans belonging to a user, newest first.
func (r *PostgresRepository) FindLoansByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLoans(rows)
}

// ListLoans returns loans across all owners (administrator listing).
func (r *PostgresRepository) ListLoans(ctx context.Context, limit, offset int) ([]domain.Loan, error) {
	limit, offset = clampPage(limit, offset)
	query := `SELECT ` + loanColumns + ` FROM loans ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLoans(rows)
}

func collectLoans(rows pgx.Rows) ([]domain.Loan, error) {
	var loans []domain.Loan
	for rows.Next() {
		var l domain.Loan
		if err := rows.Scan(&l.ID, &l.UserID, &l.LoanType, &l.Amount, &l.InterestRate, &l.TenureMonths, &l.Status,
			&l.TotalPayable, &l.EMIAmount, &l.AmountPaid, &l.DisbursementAccountID,
			&l.ApprovedBy, &l.ApprovedAt, &l.DisbursedAt, &l.NextEMIDate, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

// ApproveLoan transitions a pending loan to approved and records the computed
// repayment terms. The status predicate in the WHERE clause enforces the
// forward-only lifecycle at the database level.
func (r *PostgresRepository) ApproveLoan(ctx context.Context, loanID uuid.UUID, approvedBy string, totalPayable, emiAmount int64) error {
	query := `
		UPDATE loans
		SET status = $1, total_payable = $2, emi_amount = $3, approved_by = $4, approved_at = NOW(), updated_at = NOW()
		WHERE id = $5 AND status = $6
	`
	result, err := r.db.Exec(ctx, query, domain.LoanStatusApproved, totalPayable, emiAmount, approvedBy, loanID, domain.LoanStatusPending)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		// Distinguish absent from wrong-state for accurate error mapping.
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM loans WHERE id = $1)`, loanID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrLoanNotFound
		}
		return ErrInvalidLoanState
	}
	return nil
}

// DisburseLoan atomically: moves the loan approved -> disbursed, credits the
// disbursement account through the standard ledger write, and inserts the full
// installment schedule. Any failure rolls everything back.
func (r *PostgresRepository) DisburseLoan(ctx context.Context, loan *domain.Loan, disbursement *domain.Transaction, schedule []domain.Installment) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin disbursement transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
		UPDATE loans
		SET status = $1, disbursement_account_id = $2, disbursed_at = NOW(), next_emi_date = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5`,
		domain.LoanStatusDisbursed, disbursement.AccountID, firstDueDate(schedule), loan.ID, domain.LoanStatusApproved)
	if err != nil {
		return 0, err
	}
	if result.RowsAffected() == 0 {
		return 0, ErrInvalidLoanState
	}

	newBalance, err := applyEntryInTx(ctx, tx, loan.UserID, disbursement)
	if err != nil {
		return 0, err
	}

	for i := range schedule {
		inst := &schedule[i]
		_, err := tx.Exec(ctx, `
			INSERT INTO installments (id, loan_id, user_id, emi_number, amount, principal_amount, interest_amount, status, due_date, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())`,
			inst.ID, inst.LoanID, inst.UserID, inst.EMINumber, inst.Amount, inst.PrincipalAmount, inst.InterestAmount, domain.InstallmentStatusPending, inst.DueDate)
		if err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit disbursement transaction: %w", err)
	}
	return newBalance, nil
}

func firstDueDate(schedule []domain.Installment) *time.Time {
	if len(schedule) == 0 {
		return nil
	}
	return &schedule[0].DueDate
}

const installmentColumns = `id, loan_id, user_id, emi_number, amount, principal_amount, interest_amount, status, due_date, paid_at, transaction_id, created_at`

// FindInstallmentsByLoanID retrieves the schedule of an owner's loan in EMI order.
func (r *PostgresRepository) FindInstallmentsByLoanID(ctx context.Context, loanID, ownerID uuid.UUID) ([]domain.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments WHERE loan_id = $1 AND user_id = $2 ORDER BY emi_number ASC`
	rows, err := r.db.Query(ctx, query, loanID, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var installments []domain.Installment
	for rows.Next() {
		var inst domain.Installment
		if err := rows.Scan(&inst.ID, &inst.LoanID, &inst.UserID, &inst.EMINumber, &inst.Amount, &inst.PrincipalAmount,
			&inst.InterestAmount, &inst.Status, &inst.DueDate, &inst.PaidAt, &inst.TransactionID, &inst.CreatedAt); err != nil {
			return nil, err
		}
		installments = append(installments, inst)
	}
	return installments, rows.Err()
}

// PayNextInstallment atomically: locks the loan, picks its earliest pending
// installment, debits the paying account through the standard ledger write,
// marks the installment paid, advances the loan's repayment state, and closes
// the loan when the final installment settles.
func (r *PostgresRepository) PayNextInstallment(ctx context.Context, ownerID, loanID uuid.UUID, payment *domain.Transaction) (*domain.PayEMIResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin emi transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	loan, err := scanLoan(tx.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1 AND user_id = $2 FOR UPDATE`, loanID, ownerID))
	if err != nil {
		return nil, err
	}
	if loan.Status != domain.LoanStatusDisbursed {
		return nil, ErrInvalidLoanState
	}

	var inst domain.Installment
	err = tx.QueryRow(ctx, `
		SELECT `+installmentColumns+`
		FROM installments
		WHERE loan_id = $1 AND status = $2
		ORDER BY emi_number ASC
		LIMIT 1
		FOR UPDATE`,
		loanID, domain.InstallmentStatusPending,
	).Scan(&inst.ID, &inst.LoanID, &inst.UserID, &inst.EMINumber, &inst.Amount, &inst.PrincipalAmount,
		&inst.InterestAmount, &inst.Status, &inst.DueDate, &inst.PaidAt, &inst.TransactionID, &inst.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNoPendingInstallments
		}
		return nil, err
	}

	payment.Amount = inst.Amount
	newBalance, err := applyEntryInTx(ctx, tx, ownerID, payment)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	inst.Status = domain.InstallmentStatusPaid
	inst.PaidAt = &now
	inst.TransactionID = &payment.ID
	if _, err := tx.Exec(ctx,
		`UPDATE installments SET status = $1, paid_at = $2, transaction_id = $3 WHERE id = $4`,
		domain.InstallmentStatusPaid, now, payment.ID, inst.ID); err != nil {
		return nil, err
	}

	var nextDue *time.Time
	var remaining int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*), MIN(due_date)
		FROM installments
		WHERE loan_id = $1 AND status = $2`,
		loanID, domain.InstallmentStatusPending).Scan(&remaining, &nextDue)
	if err != nil {
		return nil, err
	}

	loan.AmountPaid += inst.Amount
	loan.NextEMIDate = nextDue
	if remaining == 0 {
		loan.Status = domain.LoanStatusClosed
	}
	if _, err := tx.Exec(ctx,
		`UPDATE loans SET amount_paid = $1, next_emi_date = $2, status = $3, updated_at = NOW() WHERE id = $4`,
		loan.AmountPaid, loan.NextEMIDate, loan.Status, loan.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit emi transaction: %w", err)
	}
	return &domain.PayEMIResult{
		Installment: &inst,
		Transaction: payment,
		Loan:        loan,
		NewBalance:  newBalance,
	}, nil
}
