// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of the service — it depends on nothing.
package domain

import "time"

// ─── Account & Credit Types ─────────────────────────────────────────────────

// Account is a registered user with an integer credit balance.
// Balance is non-negative at every externally observable instant; only the
// ledger store's atomic operations may mutate it.
type Account struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Balance      int64     `json:"balance"`
	CreatedAt    time.Time `json:"created_at"`
}

// Voucher is a single-use code redeemable for a fixed credit amount.
// Consumed transitions false→true at most once; once true, the amount can
// never be re-credited.
type Voucher struct {
	Code       string     `json:"code"`
	Amount     int64      `json:"amount"`
	Consumed   bool       `json:"consumed"`
	ConsumedBy string     `json:"consumed_by,omitempty"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TransactionType is the business reason for a balance mutation.
type TransactionType string

const (
	TxRedeem TransactionType = "REDEEM"
	TxCharge TransactionType = "CHARGE"
	TxRefund TransactionType = "REFUND"
)

// LedgerEntry is one row of the balance audit trail. Amount is signed:
// negative for charges, positive for redemptions and refunds. Balance is the
// account balance after the entry was applied.
type LedgerEntry struct {
	ID        int64           `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Account   string          `json:"account"`
	Type      TransactionType `json:"type"`
	Amount    int64           `json:"amount"`
	Balance   int64           `json:"balance"`
	Reference string          `json:"reference,omitempty"`
}
