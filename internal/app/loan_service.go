/**
 * @description
 * This file contains the loan lifecycle logic: application, approval,
 * disbursement, and installment (EMI) payment. Repayment terms are computed
 * with shopspring/decimal and rounded to cents exactly once per installment.
 * The EMI is floored so the final installment absorbs a non-negative remainder
 * and the schedule sums to the total payable.
 *
 * @dependencies
 * - github.com/shopspring/decimal: For interest arithmetic.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For event publishing.
 */

package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vaultbank/banking-service/internal/domain"
	"github.com/vaultbank/banking-service/internal/store"
	"github.com/vaultbank/banking-service/pkg/rabbitmq"
)

var (
	ErrInvalidLoanTerms = errors.New("loan terms are invalid")
)

const maxTenureMonths = 360

// LoanService provides the loan lifecycle business logic.
type LoanService struct {
	repo    store.Repository
	banking *Service
	events  rabbitmq.Publisher
}

// NewLoanService creates a new loan service instance. The banking service is
// used for its view invalidation and event plumbing after disbursement and EMI
// payment commit ledger writes.
func NewLoanService(repo store.Repository, banking *Service, events rabbitmq.Publisher) *LoanService {
	return &LoanService{repo: repo, banking: banking, events: events}
}

// Apply creates a pending loan application.
func (s *LoanService) Apply(ctx context.Context, ownerID uuid.UUID, req domain.ApplyLoanRequest) (*domain.Loan, error) {
	if req.Amount <= 0 || req.TenureMonths <= 0 || req.TenureMonths > maxTenureMonths || req.InterestRate < 0 {
		return nil, ErrInvalidLoanTerms
	}
	// Every installment must be at least one cent, otherwise the schedule
	// cannot be materialized.
	if _, emiAmount := computeRepaymentTerms(req.Amount, req.InterestRate, req.TenureMonths); emiAmount < 1 {
		return nil, ErrInvalidLoanTerms
	}
	loanType := req.LoanType
	if loanType == "" {
		loanType = "personal"
	}
	return s.repo.CreateLoan(ctx, &domain.Loan{
		ID:           uuid.New(),
		UserID:       ownerID,
		LoanType:     loanType,
		Amount:       req.Amount,
		InterestRate: req.InterestRate,
		TenureMonths: req.TenureMonths,
	})
}

// ListLoans returns the caller's loans.
func (s *LoanService) ListLoans(ctx context.Context, ownerID uuid.UUID) ([]domain.Loan, error) {
	return s.repo.FindLoansByUserID(ctx, ownerID)
}

// GetLoan returns one of the caller's loans; foreign loans surface as not-found.
func (s *LoanService) GetLoan(ctx context.Context, loanID, ownerID uuid.UUID) (*domain.Loan, error) {
	return s.repo.FindLoanByID(ctx, loanID, ownerID)
}

// ListInstallments returns the schedule of one of the caller's loans.
func (s *LoanService) ListInstallments(ctx context.Context, loanID, ownerID uuid.UUID) ([]domain.Installment, error) {
	if _, err := s.repo.FindLoanByID(ctx, loanID, ownerID); err != nil {
		return nil, err
	}
	return s.repo.FindInstallmentsByLoanID(ctx, loanID, ownerID)
}

// AdminListLoans returns loans across all owners.
func (s *LoanService) AdminListLoans(ctx context.Context, limit, offset int) ([]domain.Loan, error) {
	return s.repo.ListLoans(ctx, limit, offset)
}

// Approve transitions a pending loan to approved, computing total payable and
// the EMI amount from the requested terms.
func (s *LoanService) Approve(ctx context.Context, approver *domain.Profile, loanID uuid.UUID) (*domain.Loan, error) {
	loan, err := s.repo.FindLoanByIDAnyOwner(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransitionLoanStatus(loan.Status, domain.LoanStatusApproved) {
		return nil, store.ErrInvalidLoanState
	}

	totalPayable, emiAmount := computeRepaymentTerms(loan.Amount, loan.InterestRate, loan.TenureMonths)
	if err := s.repo.ApproveLoan(ctx, loanID, approver.ClerkUserID, totalPayable, emiAmount); err != nil {
		return nil, err
	}
	log.Printf("level=info component=loan_service msg=\"loan approved\" loan_id=%s total_payable=%d emi=%d", loanID, totalPayable, emiAmount)
	return s.repo.FindLoanByIDAnyOwner(ctx, loanID)
}

// Disburse moves an approved loan to disbursed: it builds the installment
// schedule and credits the borrower's chosen account through a
// loan_disbursement ledger entry, all in one atomic repository call.
func (s *LoanService) Disburse(ctx context.Context, loanID uuid.UUID, req domain.DisburseLoanRequest) (*domain.Loan, error) {
	loan, err := s.repo.FindLoanByIDAnyOwner(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransitionLoanStatus(loan.Status, domain.LoanStatusDisbursed) {
		return nil, store.ErrInvalidLoanState
	}
	// The disbursement account must belong to the borrower.
	if _, err := s.repo.FindAccountByID(ctx, req.AccountID, loan.UserID); err != nil {
		return nil, err
	}

	schedule := buildInstallmentSchedule(loan, time.Now().UTC())
	disbursement := &domain.Transaction{
		ID:          uuid.New(),
		UserID:      loan.UserID,
		AccountID:   req.AccountID,
		Amount:      loan.Amount,
		Type:        domain.TransactionTypeLoanDisbursement,
		Status:      domain.TransactionStatusCompleted,
		Description: "Loan disbursement",
		ReferenceID: loan.ID.String(),
	}

	newBalance, err := s.repo.DisburseLoan(ctx, loan, disbursement, schedule)
	if err != nil {
		return nil, err
	}

	s.banking.invalidateAccountViews(ctx, loan.UserID)
	s.banking.publishTransactionCompleted(ctx, disbursement, newBalance)

	return s.repo.FindLoanByIDAnyOwner(ctx, loanID)
}

// PayEMI pays the earliest pending installment of the caller's loan from the
// given account. The debit, the installment update, and the loan progress
// update commit as one unit; the loan closes when its last installment settles.
func (s *LoanService) PayEMI(ctx context.Context, ownerID, loanID uuid.UUID, req domain.PayEMIRequest) (*domain.PayEMIResult, error) {
	payment := &domain.Transaction{
		ID:          uuid.New(),
		UserID:      ownerID,
		AccountID:   req.AccountID,
		Type:        domain.TransactionTypeEMIPayment,
		Status:      domain.TransactionStatusCompleted,
		Description: "EMI payment",
		ReferenceID: uuid.NewString(),
	}

	result, err := s.repo.PayNextInstallment(ctx, ownerID, loanID, payment)
	if err != nil {
		return nil, err
	}

	s.banking.invalidateAccountViews(ctx, ownerID)
	s.banking.publishTransactionCompleted(ctx, result.Transaction, result.NewBalance)
	if result.Loan.Status == domain.LoanStatusClosed {
		log.Printf("level=info component=loan_service msg=\"loan closed\" loan_id=%s", loanID)
	}
	return result, nil
}

// computeRepaymentTerms derives total payable and the per-month EMI from the
// principal (cents), annual flat interest rate (percent), and tenure (months).
// The EMI is the floor of total/tenure: rounding up would overshoot the total
// and leave the final installment with a negative remainder to absorb.
func computeRepaymentTerms(principalCents int64, annualRatePercent float64, tenureMonths int) (totalPayable, emiAmount int64) {
	principal := decimal.NewFromInt(principalCents)
	rate := decimal.NewFromFloat(annualRatePercent).Div(decimal.NewFromInt(100))
	years := decimal.NewFromInt(int64(tenureMonths)).Div(decimal.NewFromInt(12))

	interest := principal.Mul(rate).Mul(years)
	total := principal.Add(interest).Round(0)

	totalPayable = total.IntPart()
	emiAmount = totalPayable / int64(tenureMonths)
	return totalPayable, emiAmount
}

// buildInstallmentSchedule materializes the EMI schedule for a loan approved
// with computeRepaymentTerms. Monthly due dates start one month after
// disbursement; the final installment absorbs rounding so the amounts sum to
// total payable exactly.
func buildInstallmentSchedule(loan *domain.Loan, disbursedAt time.Time) []domain.Installment {
	tenure := loan.TenureMonths
	schedule := make([]domain.Installment, 0, tenure)

	totalInterest := loan.TotalPayable - loan.Amount
	interestPerEMI := totalInterest / int64(tenure)

	var amountScheduled int64
	for i := 1; i <= tenure; i++ {
		amount := loan.EMIAmount
		interestPart := interestPerEMI
		if i == tenure {
			amount = loan.TotalPayable - amountScheduled
			interestPart = totalInterest - interestPerEMI*int64(tenure-1)
		}
		amountScheduled += amount

		schedule = append(schedule, domain.Installment{
			ID:              uuid.New(),
			LoanID:          loan.ID,
			UserID:          loan.UserID,
			EMINumber:       i,
			Amount:          amount,
			PrincipalAmount: amount - interestPart,
			InterestAmount:  interestPart,
			Status:          domain.InstallmentStatusPending,
			DueDate:         disbursedAt.AddDate(0, i, 0),
		})
	}
	return schedule
}
