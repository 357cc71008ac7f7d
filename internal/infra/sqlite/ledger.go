package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/listforge/listforge/internal/domain"
)

// Compile-time check that DB satisfies the store contract.
var _ domain.LedgerStore = (*DB)(nil)

// ─── Account Operations ─────────────────────────────────────────────────────

// CreateAccount inserts a new account with balance 0.
func (db *DB) CreateAccount(ctx context.Context, username, passwordHash string) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO accounts (username, password_hash) VALUES (?, ?)
	`, username, passwordHash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.ErrDuplicateAccount
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// GetAccount retrieves an account by username.
func (db *DB) GetAccount(ctx context.Context, username string) (*domain.Account, error) {
	var a domain.Account
	var createdStr string
	err := db.db.QueryRowContext(ctx, `
		SELECT username, password_hash, balance, created_at
		FROM accounts WHERE username = ?
	`, username).Scan(&a.Username, &a.PasswordHash, &a.Balance, &createdStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	a.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdStr)
	return &a, nil
}

// ─── Balance Operations ─────────────────────────────────────────────────────

// DebitIfSufficient performs the atomic check-then-debit in one conditional
// update. Two concurrent debits can never both pass the check against a
// balance that only covers one of them: the second UPDATE matches zero rows.
func (db *DB) DebitIfSufficient(ctx context.Context, username string, cost int64, reference string) error {
	if cost < 0 {
		return fmt.Errorf("negative cost %d", cost)
	}
	if cost == 0 {
		return nil
	}

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin debit: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE accounts SET balance = balance - ?
		WHERE username = ? AND balance >= ?
	`, cost, username, cost)
	if err != nil {
		return fmt.Errorf("debit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit rows: %w", err)
	}
	if n == 0 {
		// Distinguish a missing account from a short balance.
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM accounts WHERE username = ?`, username).Scan(&exists); err != nil {
			return fmt.Errorf("debit check: %w", err)
		}
		if exists == 0 {
			return domain.ErrAccountNotFound
		}
		return domain.ErrInsufficientCredit
	}

	if err := appendEntry(ctx, tx, username, domain.TxCharge, -cost, reference); err != nil {
		return err
	}
	return tx.Commit()
}

// Credit increases the balance and records the audit entry in one
// transaction. Used for refunds; redemptions go through RedeemVoucher.
func (db *DB) Credit(ctx context.Context, username string, amount int64, txType domain.TransactionType, reference string) error {
	if amount <= 0 {
		return fmt.Errorf("non-positive credit amount %d", amount)
	}

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin credit: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE accounts SET balance = balance + ? WHERE username = ?
	`, amount, username)
	if err != nil {
		return fmt.Errorf("credit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAccountNotFound
	}

	if err := appendEntry(ctx, tx, username, txType, amount, reference); err != nil {
		return err
	}
	return tx.Commit()
}

// appendEntry writes a ledger row with the balance after the mutation.
// Must run inside the same transaction as the balance update.
func appendEntry(ctx context.Context, tx *sql.Tx, username string, txType domain.TransactionType, amount int64, reference string) error {
	var balance int64
	if err := tx.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE username = ?`, username).Scan(&balance); err != nil {
		return fmt.Errorf("ledger balance: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (account, type, amount, balance, reference)
		VALUES (?, ?, ?, ?, ?)
	`, username, string(txType), amount, balance, reference); err != nil {
		return fmt.Errorf("ledger entry: %w", err)
	}
	return nil
}

// ─── Voucher Operations ─────────────────────────────────────────────────────

// InsertVoucher mints a new unconsumed voucher.
func (db *DB) InsertVoucher(ctx context.Context, code string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("non-positive voucher amount %d", amount)
	}
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO vouchers (code, amount) VALUES (?, ?)
	`, code, amount)
	if err != nil {
		return fmt.Errorf("insert voucher: %w", err)
	}
	return nil
}

// RedeemVoucher consumes the voucher and credits the account as one atomic
// unit. The conditional UPDATE on consumed = 0 makes a second redemption of
// the same code deterministically fail, even under concurrent requests, and
// the surrounding transaction precludes a consumed-but-uncredited voucher.
func (db *DB) RedeemVoucher(ctx context.Context, username, code string) (int64, error) {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin redeem: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE vouchers
		SET consumed = 1, consumed_by = ?, consumed_at = datetime('now')
		WHERE code = ? AND consumed = 0
	`, username, code)
	if err != nil {
		return 0, fmt.Errorf("consume voucher: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, domain.ErrInvalidOrUsedVoucher
	}

	var amount int64
	if err := tx.QueryRowContext(ctx,
		`SELECT amount FROM vouchers WHERE code = ?`, code).Scan(&amount); err != nil {
		return 0, fmt.Errorf("voucher amount: %w", err)
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE accounts SET balance = balance + ? WHERE username = ?
	`, amount, username)
	if err != nil {
		return 0, fmt.Errorf("redeem credit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, domain.ErrAccountNotFound
	}

	if err := appendEntry(ctx, tx, username, domain.TxRedeem, amount, code); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit redeem: %w", err)
	}
	return amount, nil
}

// ListVouchers returns vouchers, optionally including consumed ones.
func (db *DB) ListVouchers(ctx context.Context, includeConsumed bool) ([]domain.Voucher, error) {
	q := `SELECT code, amount, consumed, consumed_by, consumed_at, created_at FROM vouchers`
	if !includeConsumed {
		q += ` WHERE consumed = 0`
	}
	q += ` ORDER BY created_at`

	rows, err := db.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list vouchers: %w", err)
	}
	defer rows.Close()

	var result []domain.Voucher
	for rows.Next() {
		var v domain.Voucher
		var consumedInt int
		var consumedBy, consumedAt sql.NullString
		var createdStr string
		if err := rows.Scan(&v.Code, &v.Amount, &consumedInt, &consumedBy, &consumedAt, &createdStr); err != nil {
			return nil, err
		}
		v.Consumed = consumedInt == 1
		v.ConsumedBy = consumedBy.String
		if consumedAt.Valid {
			t, _ := time.Parse("2006-01-02 15:04:05", consumedAt.String)
			v.ConsumedAt = &t
		}
		v.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdStr)
		result = append(result, v)
	}
	return result, rows.Err()
}

// ─── Audit Trail ────────────────────────────────────────────────────────────

// History returns the most recent ledger entries for an account.
func (db *DB) History(ctx context.Context, username string, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, account, type, amount, balance, reference, created_at
		FROM ledger_entries WHERE account = ?
		ORDER BY id DESC LIMIT ?
	`, username, limit)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()

	var result []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var typeStr, createdStr string
		if err := rows.Scan(&e.ID, &e.Account, &typeStr, &e.Amount, &e.Balance, &e.Reference, &createdStr); err != nil {
			return nil, err
		}
		e.Type = domain.TransactionType(typeStr)
		e.Timestamp, _ = time.Parse("2006-01-02 15:04:05", createdStr)
		result = append(result, e)
	}
	return result, rows.Err()
}
