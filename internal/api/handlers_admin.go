/**
 * @description
 * HTTP handlers for the administrator console: profile listing, KYC and admin
 * flag mutation, account listing and status control, and loan approval and
 * disbursement. Every route in this file sits behind RequireAdmin.
 */

package api

import (
	"net/http"

	"github.com/vaultbank/banking-service/internal/app"
	"github.com/vaultbank/banking-service/internal/domain"
)

// AdminHandlers holds the services the administrator endpoints use.
type AdminHandlers struct {
	banking *Handlers
	loans   *app.LoanService
}

// NewAdminHandlers creates a new instance of AdminHandlers.
func NewAdminHandlers(banking *Handlers, loans *app.LoanService) *AdminHandlers {
	return &AdminHandlers{banking: banking, loans: loans}
}

// RequireAdmin gates a route subtree on the caller's administrator flag.
func (h *AdminHandlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profile, ok := h.banking.caller(w, r)
		if !ok {
			return
		}
		if !profile.IsAdmin {
			writeError(w, http.StatusForbidden, "Administrator privileges required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListProfilesHandler returns all profiles.
func (h *AdminHandlers) ListProfilesHandler(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.banking.service.AdminListProfiles(r.Context(), queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

// SetKYCStatusHandler updates a profile's KYC verification state.
func (h *AdminHandlers) SetKYCStatusHandler(w http.ResponseWriter, r *http.Request) {
	profileID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req domain.SetKYCStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	profile, err := h.banking.service.AdminSetKYCStatus(r.Context(), profileID, req.KYCStatus)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// SetAdminFlagHandler toggles a profile's administrator flag.
func (h *AdminHandlers) SetAdminFlagHandler(w http.ResponseWriter, r *http.Request) {
	profileID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req domain.SetAdminRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	profile, err := h.banking.service.AdminSetAdminFlag(r.Context(), profileID, req.IsAdmin)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// ListAccountsHandler returns accounts across all owners.
func (h *AdminHandlers) ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.banking.service.AdminListAccounts(r.Context(), queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// SetAccountStatusHandler toggles any account's status (administrator scope).
// It shares the service path with the owner-facing mutator; the admin scope
// comes from the caller's profile.
func (h *AdminHandlers) SetAccountStatusHandler(w http.ResponseWriter, r *http.Request) {
	h.banking.SetAccountStatusHandler(w, r)
}

// ListLoansHandler returns loans across all owners.
func (h *AdminHandlers) ListLoansHandler(w http.ResponseWriter, r *http.Request) {
	loans, err := h.loans.AdminListLoans(r.Context(), queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

// ApproveLoanHandler transitions a pending loan to approved.
func (h *AdminHandlers) ApproveLoanHandler(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.banking.caller(w, r)
	if !ok {
		return
	}
	loanID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	loan, err := h.loans.Approve(r.Context(), profile, loanID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

// DisburseLoanHandler transitions an approved loan to disbursed, crediting the
// borrower's chosen account.
func (h *AdminHandlers) DisburseLoanHandler(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req domain.DisburseLoanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	loan, err := h.loans.Disburse(r.Context(), loanID, req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}
