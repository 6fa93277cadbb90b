/**
 * @description
 * HTTP handlers for the loan lifecycle: application, schedule listing, and EMI
 * payment. Approval and disbursement are administrator actions and live in
 * handlers_admin.go.
 */

package api

import (
	"log"
	"net/http"

	"github.com/vaultbank/banking-service/internal/app"
	"github.com/vaultbank/banking-service/internal/domain"
)

// LoanHandlers holds the services the loan endpoints use.
type LoanHandlers struct {
	banking *Handlers
	loans   *app.LoanService
}

// NewLoanHandlers creates a new instance of LoanHandlers.
func NewLoanHandlers(banking *Handlers, loans *app.LoanService) *LoanHandlers {
	return &LoanHandlers{banking: banking, loans: loans}
}

// ApplyLoanHandler creates a pending loan application for the caller.
func (h *LoanHandlers) ApplyLoanHandler(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.banking.caller(w, r)
	if !ok {
		return
	}

	var req domain.ApplyLoanRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	loan, err := h.loans.Apply(r.Context(), profile.ID, req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

// ListLoansHandler returns the caller's loans.
func (h *LoanHandlers) ListLoansHandler(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.banking.caller(w, r)
	if !ok {
		return
	}
	loans, err := h.loans.ListLoans(r.Context(), profile.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

// GetLoanHandler returns one of the caller's loans.
func (h *LoanHandlers) GetLoanHandler(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.banking.caller(w, r)
	if !ok {
		return
	}
	loanID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	loan, err := h.loans.GetLoan(r.Context(), loanID, profile.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

// ListInstallmentsHandler returns the EMI schedule of one of the caller's loans.
func (h *LoanHandlers) ListInstallmentsHandler(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.banking.caller(w, r)
	if !ok {
		return
	}
	loanID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	installments, err := h.loans.ListInstallments(r.Context(), loanID, profile.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, installments)
}

// PayEMIHandler pays the next pending installment of the caller's loan.
func (h *LoanHandlers) PayEMIHandler(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.banking.caller(w, r)
	if !ok {
		return
	}
	loanID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req domain.PayEMIRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.loans.PayEMI(r.Context(), profile.ID, loanID, req)
	if err != nil {
		log.Printf("level=warn component=api endpoint=pay_emi outcome=failed user_id=%s loan_id=%s err=%v", profile.ID, loanID, err)
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
