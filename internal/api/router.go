/**
 * @description
 * This file sets up the HTTP router for the banking service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes creates and returns the router for the banking service.
func Routes(h *Handlers, loans *LoanHandlers, admin *AdminHandlers, payments *PaymentHandlers, assistant *AssistantHandlers, auth AuthOptions) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require authentication.
	r.Route("/api", func(r chi.Router) {
		r.Use(ClerkAuthMiddleware(auth))

		// Profile endpoints
		r.Post("/profiles/sync", h.SyncProfileHandler)
		r.Get("/profiles/me", h.GetProfileHandler)

		// Account endpoints
		r.Post("/accounts", h.OpenAccountHandler)
		r.Get("/accounts", h.ListAccountsHandler)
		r.Get("/accounts/{id}", h.GetAccountHandler)
		r.Put("/accounts/{id}", h.UpdateAccountHandler)
		r.Put("/accounts/{id}/status", h.SetAccountStatusHandler)

		// Ledger endpoints
		r.Post("/transactions", h.CreateTransactionHandler)
		r.Get("/transactions", h.ListTransactionsHandler)
		r.Post("/transfers", h.TransferHandler)
		r.Get("/dashboard", h.DashboardHandler)

		// Loan endpoints
		r.Post("/loans", loans.ApplyLoanHandler)
		r.Get("/loans", loans.ListLoansHandler)
		r.Get("/loans/{id}", loans.GetLoanHandler)
		r.Get("/loans/{id}/installments", loans.ListInstallmentsHandler)
		r.Post("/loans/{id}/pay-emi", loans.PayEMIHandler)

		// Deposit funding endpoints
		r.Post("/payments/deposit-intent", payments.CreateDepositIntentHandler)
		r.Post("/payments/confirm", payments.ConfirmDepositHandler)

		// AI assistant proxy
		r.Post("/py/chat", assistant.ChatHandler)

		// Administrator endpoints
		r.Route("/admin", func(r chi.Router) {
			r.Use(admin.RequireAdmin)

			r.Get("/profiles", admin.ListProfilesHandler)
			r.Put("/profiles/{id}/kyc", admin.SetKYCStatusHandler)
			r.Put("/profiles/{id}/admin", admin.SetAdminFlagHandler)

			r.Get("/accounts", admin.ListAccountsHandler)
			r.Put("/accounts/{id}/status", admin.SetAccountStatusHandler)

			r.Get("/loans", admin.ListLoansHandler)
			r.Put("/loans/{id}/approve", admin.ApproveLoanHandler)
			r.Put("/loans/{id}/disburse", admin.DisburseLoanHandler)
		})
	})

	return r
}
