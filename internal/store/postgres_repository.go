/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface
 * for profiles, accounts, and the transaction ledger. Loan and installment queries
 * live in postgres_repository_loans.go.
 *
 * The ledger operation is implemented as a single database transaction that locks
 * the account row with SELECT ... FOR UPDATE, so concurrent entries against the
 * same account serialize at the row lock and no update is ever lost.
 *
 * @dependencies
 * - context, errors, fmt: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vaultbank/banking-service/internal/domain"
)

var (
	ErrProfileNotFound       = errors.New("profile not found")
	ErrAccountNotFound       = errors.New("account not found")
	ErrAccountInactive       = errors.New("account is inactive")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrDuplicateReference    = errors.New("reference id already used")
	ErrLoanNotFound          = errors.New("loan not found")
	ErrInvalidLoanState      = errors.New("loan is not in a valid state for this operation")
	ErrNoPendingInstallments = errors.New("loan has no pending installments")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const profileColumns = `id, clerk_user_id, email, full_name, COALESCE(phone, ''), COALESCE(address, ''), kyc_status, is_admin, created_at, updated_at`

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(&p.ID, &p.ClerkUserID, &p.Email, &p.FullName, &p.Phone, &p.Address, &p.KYCStatus, &p.IsAdmin, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindProfileByClerkUserID resolves a profile from the identity provider's subject id.
func (r *PostgresRepository) FindProfileByClerkUserID(ctx context.Context, clerkUserID string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE clerk_user_id = $1`
	return scanProfile(r.db.QueryRow(ctx, query, clerkUserID))
}

// FindProfileByID retrieves a profile by its internal UUID.
func (r *PostgresRepository) FindProfileByID(ctx context.Context, profileID uuid.UUID) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	return scanProfile(r.db.QueryRow(ctx, query, profileID))
}

// UpsertProfile inserts a profile on first sign-in or refreshes the mutable
// contact fields on subsequent syncs. KYC status and the admin flag are never
// touched here; those change only through the dedicated admin mutations.
func (r *PostgresRepository) UpsertProfile(ctx context.Context, profile *domain.Profile) (*domain.Profile, error) {
	query := `
		INSERT INTO profiles (id, clerk_user_id, email, full_name, phone, address, kyc_status, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, NOW(), NOW())
		ON CONFLICT (clerk_user_id) DO UPDATE
		SET email = EXCLUDED.email,
		    full_name = EXCLUDED.full_name,
		    phone = EXCLUDED.phone,
		    address = EXCLUDED.address,
		    updated_at = NOW()
		RETURNING ` + profileColumns
	return scanProfile(r.db.QueryRow(ctx, query,
		uuid.New(), profile.ClerkUserID, profile.Email, profile.FullName, profile.Phone, profile.Address, domain.KYCStatusPending))
}

// ListProfiles returns profiles ordered by creation time, newest first.
func (r *PostgresRepository) ListProfiles(ctx context.Context, limit, offset int) ([]domain.Profile, error) {
	limit, offset = clampPage(limit, offset)
	query := `SELECT ` + profileColumns + ` FROM profiles ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(&p.ID, &p.ClerkUserID, &p.Email, &p.FullName, &p.Phone, &p.Address, &p.KYCStatus, &p.IsAdmin, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// SetProfileKYCStatus updates the KYC verification state of a profile.
func (r *PostgresRepository) SetProfileKYCStatus(ctx context.Context, profileID uuid.UUID, kycStatus string) error {
	result, err := r.db.Exec(ctx, `UPDATE profiles SET kyc_status = $1, updated_at = NOW() WHERE id = $2`, kycStatus, profileID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// SetProfileAdmin toggles the administrator flag on a profile.
func (r *PostgresRepository) SetProfileAdmin(ctx context.Context, profileID uuid.UUID, isAdmin bool) error {
	result, err := r.db.Exec(ctx, `UPDATE profiles SET is_admin = $1, updated_at = NOW() WHERE id = $2`, isAdmin, profileID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

const accountColumns = `id, user_id, account_number, account_type, balance, currency, status, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.UserID, &a.AccountNumber, &a.AccountType, &a.Balance, &a.Currency, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

// CreateAccount inserts a new account row and returns the persisted record.
func (r *PostgresRepository) CreateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	query := `
		INSERT INTO accounts (id, user_id, account_number, account_type, balance, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING ` + accountColumns
	return scanAccount(r.db.QueryRow(ctx, query,
		account.ID, account.UserID, account.AccountNumber, account.AccountType, account.Balance, account.Currency, account.Status))
}

// FindAccountByID retrieves an account scoped to its owner. A foreign account is
// indistinguishable from an absent one.
func (r *PostgresRepository) FindAccountByID(ctx context.Context, accountID, ownerID uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 AND user_id = $2`
	return scanAccount(r.db.QueryRow(ctx, query, accountID, ownerID))
}

// FindAccountByIDAnyOwner retrieves an account without ownership scoping (administrator paths).
func (r *PostgresRepository) FindAccountByIDAnyOwner(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRow(ctx, query, accountID))
}

// FindAccountsByUserID retrieves all accounts owned by a user.
func (r *PostgresRepository) FindAccountsByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

// ListAccounts returns accounts across all owners (administrator listing).
func (r *PostgresRepository) ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	limit, offset = clampPage(limit, offset)
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func collectAccounts(rows pgx.Rows) ([]domain.Account, error) {
	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.AccountNumber, &a.AccountType, &a.Balance, &a.Currency, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// UpdateAccountType updates the account type field, owner-scoped.
func (r *PostgresRepository) UpdateAccountType(ctx context.Context, accountID, ownerID uuid.UUID, accountType string) error {
	query := `UPDATE accounts SET account_type = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3`
	result, err := r.db.Exec(ctx, query, accountType, accountID, ownerID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// UpdateAccountStatus sets the account status. A nil ownerID means administrator
// scope: any account may be targeted. The update is idempotent — setting the
// current status succeeds and leaves the record otherwise unchanged.
func (r *PostgresRepository) UpdateAccountStatus(ctx context.Context, accountID uuid.UUID, ownerID *uuid.UUID, status string) error {
	var result int64
	if ownerID == nil {
		res, err := r.db.Exec(ctx,
			`UPDATE accounts SET status = $1, updated_at = CASE WHEN status = $1 THEN updated_at ELSE NOW() END WHERE id = $2`,
			status, accountID)
		if err != nil {
			return err
		}
		result = res.RowsAffected()
	} else {
		res, err := r.db.Exec(ctx,
			`UPDATE accounts SET status = $1, updated_at = CASE WHEN status = $1 THEN updated_at ELSE NOW() END WHERE id = $2 AND user_id = $3`,
			status, accountID, *ownerID)
		if err != nil {
			return err
		}
		result = res.RowsAffected()
	}
	if result == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// ApplyLedgerEntry performs the atomic ledger operation: lock the account row,
// verify funds for debiting kinds, apply the signed delta, and append the
// immutable transaction record. Both writes commit or roll back together.
func (r *PostgresRepository) ApplyLedgerEntry(ctx context.Context, ownerID uuid.UUID, entry *domain.Transaction) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin ledger transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	newBalance, err := applyEntryInTx(ctx, tx, ownerID, entry)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit ledger transaction: %w", err)
	}
	return newBalance, nil
}

// applyEntryInTx runs the balance-update-plus-transaction-append pair inside an
// existing database transaction so composite operations (transfers, loan
// disbursement, EMI payment) can reuse the exact same write path.
func applyEntryInTx(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, entry *domain.Transaction) (int64, error) {
	var balance int64
	var status string
	// FOR UPDATE locks the row, serializing concurrent entries on this account.
	err := tx.QueryRow(ctx,
		`SELECT balance, status FROM accounts WHERE id = $1 AND user_id = $2 FOR UPDATE`,
		entry.AccountID, ownerID).Scan(&balance, &status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	if status != domain.AccountStatusActive {
		return 0, ErrAccountInactive
	}

	if domain.IsDebitType(entry.Type) && entry.Amount > balance {
		return 0, ErrInsufficientFunds
	}
	newBalance := balance + entry.SignedAmount()

	if _, err := tx.Exec(ctx,
		`UPDATE accounts SET balance = $1, updated_at = NOW() WHERE id = $2`,
		newBalance, entry.AccountID); err != nil {
		return 0, err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO transactions (id, user_id, account_id, amount, type, status, description, reference_id, recipient_account_id, recipient_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING created_at`,
		entry.ID, entry.UserID, entry.AccountID, entry.Amount, entry.Type, entry.Status,
		entry.Description, entry.ReferenceID, entry.RecipientAccountID, entry.RecipientUserID,
	).Scan(&entry.CreatedAt)
	if err != nil {
		// The unique index on (user_id, reference_id) keeps externally funded
		// deposits idempotent.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateReference
		}
		return 0, err
	}
	return newBalance, nil
}

// Transfer debits the source account and credits the destination account as one
// atomic unit. The rows are locked in deterministic id order to avoid deadlocks
// between opposing concurrent transfers.
func (r *PostgresRepository) Transfer(ctx context.Context, ownerID uuid.UUID, outgoing, incoming *domain.Transaction) (*domain.TransferResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transfer transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	first, second := outgoing.AccountID, incoming.AccountID
	if second.String() < first.String() {
		first, second = second, first
	}
	for _, id := range []uuid.UUID{first, second} {
		if _, err := tx.Exec(ctx, `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, id); err != nil {
			return nil, err
		}
	}

	// Destination must exist and be active; it may belong to anyone.
	var destOwner uuid.UUID
	var destStatus string
	err = tx.QueryRow(ctx, `SELECT user_id, status FROM accounts WHERE id = $1`, incoming.AccountID).Scan(&destOwner, &destStatus)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	if destStatus != domain.AccountStatusActive {
		return nil, ErrAccountInactive
	}
	incoming.UserID = destOwner
	recipient := destOwner
	outgoing.RecipientUserID = &recipient

	sourceBalance, err := applyEntryInTx(ctx, tx, ownerID, outgoing)
	if err != nil {
		return nil, err
	}
	if _, err := applyEntryInTx(ctx, tx, destOwner, incoming); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transfer transaction: %w", err)
	}
	return &domain.TransferResult{
		Outgoing:         outgoing,
		Incoming:         incoming,
		SourceNewBalance: sourceBalance,
	}, nil
}

const transactionColumns = `id, user_id, account_id, amount, type, status, COALESCE(description, ''), reference_id, recipient_account_id, recipient_user_id, created_at`

// FindTransactionsByUserID retrieves a user's transaction history, newest first,
// optionally filtered to one account.
func (r *PostgresRepository) FindTransactionsByUserID(ctx context.Context, userID uuid.UUID, opts domain.TransactionListOptions) ([]domain.Transaction, error) {
	limit, offset := clampPage(opts.Limit, opts.Offset)

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1`
	args := []interface{}{userID}
	if opts.AccountID != nil {
		query += ` AND account_id = $2`
		args = append(args, *opts.AccountID)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.AccountID, &t.Amount, &t.Type, &t.Status, &t.Description, &t.ReferenceID, &t.RecipientAccountID, &t.RecipientUserID, &t.CreatedAt); err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

// FindTransactionByReferenceID looks up a user's transaction by its reference id.
// Used to keep externally funded deposits idempotent.
func (r *PostgresRepository) FindTransactionByReferenceID(ctx context.Context, userID uuid.UUID, referenceID string) (*domain.Transaction, error) {
	var t domain.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1 AND reference_id = $2`
	err := r.db.QueryRow(ctx, query, userID, referenceID).Scan(
		&t.ID, &t.UserID, &t.AccountID, &t.Amount, &t.Type, &t.Status, &t.Description, &t.ReferenceID, &t.RecipientAccountID, &t.RecipientUserID, &t.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &t, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
