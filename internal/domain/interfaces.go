package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// Generator abstracts the hosted generative model. The returned text has no
// guaranteed schema; callers must treat it as untrusted and parse defensively.
type Generator interface {
	// Generate sends a prompt, with an optional image, and returns the raw
	// model text. image may be nil for text-only prompts.
	Generate(ctx context.Context, prompt string, image []byte, imageMIME string) (string, error)
}

// LedgerStore abstracts durable account, voucher, and audit-trail storage.
// All balance mutations go through this interface; no other code path may
// read-modify-write a balance.
type LedgerStore interface {
	CreateAccount(ctx context.Context, username, passwordHash string) error
	GetAccount(ctx context.Context, username string) (*Account, error)

	// DebitIfSufficient atomically checks balance >= cost and debits in a
	// single conditional update. Returns ErrInsufficientCredit without
	// side effects when the balance cannot cover the cost.
	DebitIfSufficient(ctx context.Context, username string, cost int64, reference string) error

	// Credit unconditionally increases the balance and records an audit
	// entry of the given type in the same transaction.
	Credit(ctx context.Context, username string, amount int64, txType TransactionType, reference string) error

	// RedeemVoucher marks the voucher consumed and credits the account as a
	// single atomic unit. A consumed or unknown code yields
	// ErrInvalidOrUsedVoucher and no balance change.
	RedeemVoucher(ctx context.Context, username, code string) (int64, error)

	InsertVoucher(ctx context.Context, code string, amount int64) error
	ListVouchers(ctx context.Context, includeConsumed bool) ([]Voucher, error)
	History(ctx context.Context, username string, limit int) ([]LedgerEntry, error)
}
