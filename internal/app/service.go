/**
 * @description
 * This file contains the core business logic for the banking service. The `Service`
 * struct orchestrates profile, account, and ledger operations, coordinating between
 * the database repository, the view cache, and the message broker.
 *
 * Key features:
 * - Implements the ledger operation: the atomic balance-update-plus-transaction-append.
 * - Implements the account status mutator with owner/administrator scoping.
 * - Invalidates dependent cached views after every committed mutation.
 * - Publishes transaction events to RabbitMQ for asynchronous consumers (best effort).
 *
 * @dependencies
 * - context, errors, fmt, log: Standard Go libraries.
 * - github.com/google/uuid: For UUID and reference id generation.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For event publishing.
 */

package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"

	"github.com/google/uuid"
	"github.com/vaultbank/banking-service/internal/domain"
	"github.com/vaultbank/banking-service/internal/store"
	"github.com/vaultbank/banking-service/pkg/rabbitmq"
)

var (
	ErrInvalidAmount          = errors.New("amount must be a positive integer in cents")
	ErrInvalidTransactionType = errors.New("unrecognized transaction type")
	ErrInvalidStatus          = errors.New("status must be 'active' or 'inactive'")
	ErrInvalidAccountType     = errors.New("account type must be 'savings' or 'checking'")
	ErrInvalidKYCStatus       = errors.New("kyc status must be 'pending', 'verified' or 'rejected'")
	ErrSameAccountTransfer    = errors.New("source and destination accounts must differ")
	ErrMissingEmail           = errors.New("email is required")
)

// Service provides the core business logic for profiles, accounts, and the ledger.
type Service struct {
	repo   store.Repository
	cache  ViewCache
	events rabbitmq.Publisher
}

// NewService creates a new banking service instance.
func NewService(repo store.Repository, cache ViewCache, events rabbitmq.Publisher) *Service {
	if cache == nil {
		cache = NoopViewCache{}
	}
	return &Service{repo: repo, cache: cache, events: events}
}

// EnsureProfile upserts the caller's profile on sign-in. The profile is keyed by
// the identity provider's subject id; contact fields are refreshed on every sync.
func (s *Service) EnsureProfile(ctx context.Context, clerkUserID string, req domain.SyncProfileRequest) (*domain.Profile, error) {
	if req.Email == "" {
		return nil, ErrMissingEmail
	}
	profile, err := s.repo.UpsertProfile(ctx, &domain.Profile{
		ClerkUserID: clerkUserID,
		Email:       req.Email,
		FullName:    req.FullName,
		Phone:       req.Phone,
		Address:     req.Address,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}
	return profile, nil
}

// ResolveProfile returns the caller's profile from the identity provider subject id.
func (s *Service) ResolveProfile(ctx context.Context, clerkUserID string) (*domain.Profile, error) {
	return s.repo.FindProfileByClerkUserID(ctx, clerkUserID)
}

// OpenAccount creates a new active account with a generated account number and
// zero balance.
func (s *Service) OpenAccount(ctx context.Context, ownerID uuid.UUID, req domain.OpenAccountRequest) (*domain.Account, error) {
	if !domain.IsValidAccountType(req.AccountType) {
		return nil, ErrInvalidAccountType
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	account, err := s.repo.CreateAccount(ctx, &domain.Account{
		ID:            uuid.New(),
		UserID:        ownerID,
		AccountNumber: generateAccountNumber(),
		AccountType:   req.AccountType,
		Balance:       0,
		Currency:      currency,
		Status:        domain.AccountStatusActive,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	s.invalidateAccountViews(ctx, ownerID)
	return account, nil
}

// ListAccounts returns the caller's accounts.
func (s *Service) ListAccounts(ctx context.Context, ownerID uuid.UUID) ([]domain.Account, error) {
	return s.repo.FindAccountsByUserID(ctx, ownerID)
}

// GetAccount returns one of the caller's accounts. Foreign accounts surface as
// store.ErrAccountNotFound.
func (s *Service) GetAccount(ctx context.Context, accountID, ownerID uuid.UUID) (*domain.Account, error) {
	return s.repo.FindAccountByID(ctx, accountID, ownerID)
}

// UpdateAccountType changes the account type of an owned account. Balance is not
// writable through any field-update path.
func (s *Service) UpdateAccountType(ctx context.Context, accountID, ownerID uuid.UUID, req domain.UpdateAccountRequest) (*domain.Account, error) {
	if !domain.IsValidAccountType(req.AccountType) {
		return nil, ErrInvalidAccountType
	}
	if err := s.repo.UpdateAccountType(ctx, accountID, ownerID, req.AccountType); err != nil {
		return nil, err
	}
	s.invalidateAccountViews(ctx, ownerID)
	return s.repo.FindAccountByID(ctx, accountID, ownerID)
}

// SetAccountStatus toggles an account between active and inactive.
// Administrators may target any account; other callers only their own, with
// foreign accounts surfacing as not-found. Setting the current status is a
// no-op that still succeeds.
func (s *Service) SetAccountStatus(ctx context.Context, caller *domain.Profile, accountID uuid.UUID, status string) (*domain.Account, error) {
	if !domain.IsValidAccountStatus(status) {
		return nil, ErrInvalidStatus
	}

	var scope *uuid.UUID
	if !caller.IsAdmin {
		ownerID := caller.ID
		scope = &ownerID
	}
	if err := s.repo.UpdateAccountStatus(ctx, accountID, scope, status); err != nil {
		return nil, err
	}

	account, err := s.repo.FindAccountByIDAnyOwner(ctx, accountID)
	if err != nil {
		return nil, err
	}
	s.invalidateAccountViews(ctx, account.UserID)
	return account, nil
}

// ApplyLedgerEntry validates and executes the atomic ledger operation against an
// owned account, then refreshes dependent views and emits a completion event.
func (s *Service) ApplyLedgerEntry(ctx context.Context, ownerID uuid.UUID, req domain.LedgerEntryRequest) (*domain.LedgerEntryResult, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !domain.IsValidTransactionType(req.Type) {
		return nil, ErrInvalidTransactionType
	}

	entry := &domain.Transaction{
		ID:          uuid.New(),
		UserID:      ownerID,
		AccountID:   req.AccountID,
		Amount:      req.Amount,
		Type:        req.Type,
		Status:      domain.TransactionStatusCompleted,
		Description: req.Description,
		ReferenceID: req.ReferenceID,
	}
	if entry.ReferenceID == "" {
		entry.ReferenceID = uuid.NewString()
	}

	newBalance, err := s.repo.ApplyLedgerEntry(ctx, ownerID, entry)
	if err != nil {
		return nil, err
	}

	s.invalidateAccountViews(ctx, ownerID)
	s.publishTransactionCompleted(ctx, entry, newBalance)

	return &domain.LedgerEntryResult{Transaction: entry, NewBalance: newBalance}, nil
}

// Transfer moves funds from one of the caller's accounts to any active account,
// producing paired transfer_out/transfer_in records that share a reference id.
func (s *Service) Transfer(ctx context.Context, ownerID uuid.UUID, req domain.TransferRequest) (*domain.TransferResult, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.SourceAccountID == req.DestinationAccountID {
		return nil, ErrSameAccountTransfer
	}

	reference := uuid.NewString()
	destID := req.DestinationAccountID
	srcID := req.SourceAccountID
	outgoing := &domain.Transaction{
		ID:                 uuid.New(),
		UserID:             ownerID,
		AccountID:          req.SourceAccountID,
		Amount:             req.Amount,
		Type:               domain.TransactionTypeTransferOut,
		Status:             domain.TransactionStatusCompleted,
		Description:        req.Description,
		ReferenceID:        reference,
		RecipientAccountID: &destID,
	}
	incoming := &domain.Transaction{
		ID:                 uuid.New(),
		AccountID:          req.DestinationAccountID,
		Amount:             req.Amount,
		Type:               domain.TransactionTypeTransferIn,
		Status:             domain.TransactionStatusCompleted,
		Description:        req.Description,
		ReferenceID:        reference,
		RecipientAccountID: &srcID,
	}

	result, err := s.repo.Transfer(ctx, ownerID, outgoing, incoming)
	if err != nil {
		return nil, err
	}

	s.invalidateAccountViews(ctx, ownerID)
	if result.Incoming != nil && result.Incoming.UserID != ownerID {
		s.invalidateAccountViews(ctx, result.Incoming.UserID)
	}
	s.publishTransactionCompleted(ctx, result.Outgoing, result.SourceNewBalance)

	return result, nil
}

// ListTransactions returns the caller's transaction history.
func (s *Service) ListTransactions(ctx context.Context, ownerID uuid.UUID, opts domain.TransactionListOptions) ([]domain.Transaction, error) {
	return s.repo.FindTransactionsByUserID(ctx, ownerID, opts)
}

// FindTransactionByReference looks up the caller's transaction by its
// reference id. External funding flows use it to detect replays.
func (s *Service) FindTransactionByReference(ctx context.Context, ownerID uuid.UUID, referenceID string) (*domain.Transaction, error) {
	return s.repo.FindTransactionByReferenceID(ctx, ownerID, referenceID)
}

// DashboardSummary assembles (and caches) the account/recent-activity view for
// the user dashboard.
func (s *Service) DashboardSummary(ctx context.Context, ownerID uuid.UUID) (*domain.DashboardSummary, error) {
	key := dashboardCacheKey(ownerID)
	var cached domain.DashboardSummary
	if s.cacheGetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	accounts, err := s.repo.FindAccountsByUserID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	transactions, err := s.repo.FindTransactionsByUserID(ctx, ownerID, domain.TransactionListOptions{Limit: 10})
	if err != nil {
		return nil, err
	}

	summary := &domain.DashboardSummary{
		Accounts:           accounts,
		RecentTransactions: transactions,
	}
	for _, a := range accounts {
		summary.TotalBalance += a.Balance
	}

	s.cacheSetJSON(ctx, key, summary)
	return summary, nil
}

// Admin operations. Authorization (the is_admin gate) happens at the API layer;
// these methods assume an administrator caller.

// AdminListProfiles returns all profiles for the admin console.
func (s *Service) AdminListProfiles(ctx context.Context, limit, offset int) ([]domain.Profile, error) {
	return s.repo.ListProfiles(ctx, limit, offset)
}

// AdminSetKYCStatus updates the KYC verification state of any profile.
func (s *Service) AdminSetKYCStatus(ctx context.Context, profileID uuid.UUID, kycStatus string) (*domain.Profile, error) {
	if !domain.IsValidKYCStatus(kycStatus) {
		return nil, ErrInvalidKYCStatus
	}
	if err := s.repo.SetProfileKYCStatus(ctx, profileID, kycStatus); err != nil {
		return nil, err
	}
	return s.repo.FindProfileByID(ctx, profileID)
}

// AdminSetAdminFlag toggles the administrator flag on any profile.
func (s *Service) AdminSetAdminFlag(ctx context.Context, profileID uuid.UUID, isAdmin bool) (*domain.Profile, error) {
	if err := s.repo.SetProfileAdmin(ctx, profileID, isAdmin); err != nil {
		return nil, err
	}
	return s.repo.FindProfileByID(ctx, profileID)
}

// AdminListAccounts returns accounts across all owners, served through the
// admin listing cache when available.
func (s *Service) AdminListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	// Only the unpaginated first page is cached; it is what the admin console renders.
	cacheable := limit <= 0 && offset <= 0
	if cacheable {
		var cached []domain.Account
		if s.cacheGetJSON(ctx, adminAccountsCacheKey, &cached) {
			return cached, nil
		}
	}
	accounts, err := s.repo.ListAccounts(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if cacheable {
		s.cacheSetJSON(ctx, adminAccountsCacheKey, accounts)
	}
	return accounts, nil
}

// invalidateAccountViews refreshes every cached read view that depends on the
// user's accounts or transactions.
func (s *Service) invalidateAccountViews(ctx context.Context, ownerID uuid.UUID) {
	s.cache.Invalidate(ctx, dashboardCacheKey(ownerID), adminAccountsCacheKey)
}

// publishTransactionCompleted emits the completion event. Publishing is best
// effort: a broker failure never fails a committed ledger operation.
func (s *Service) publishTransactionCompleted(ctx context.Context, tx *domain.Transaction, newBalance int64) {
	if s.events == nil {
		return
	}
	event := rabbitmq.TransactionCompletedEvent{
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		AccountID:     tx.AccountID,
		Amount:        tx.Amount,
		Type:          tx.Type,
		ReferenceID:   tx.ReferenceID,
		NewBalance:    newBalance,
		OccurredAt:    tx.CreatedAt,
	}
	if err := s.events.PublishTransactionCompletedEvent(ctx, event); err != nil {
		log.Printf("level=warn component=service msg=\"transaction event publish failed\" transaction_id=%s err=%v", tx.ID, err)
	}
}

// generateAccountNumber produces a random 12-digit account number.
func generateAccountNumber() string {
	max := big.NewInt(0).Exp(big.NewInt(10), big.NewInt(12), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		// crypto/rand failure is unrecoverable noise; fall back to a uuid-derived number.
		return fmt.Sprintf("%012d", uuid.New().ID())
	}
	return fmt.Sprintf("%012d", n)
}
