package ledger

import "errors"

// Validation failures surfaced to callers as typed errors. They are
// recovered locally; none of them leaves a partial ledger entry behind.
var (
	// ErrInvalidAmount rejects non-positive operation amounts.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")

	// ErrInsufficientFunds rejects any entry that would take the derived
	// balance below zero.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrSameAccount rejects transfers where sender and recipient match.
	ErrSameAccount = errors.New("ledger: cannot transfer to the same account")

	// ErrRecipientNotFound rejects transfers to unknown accounts.
	ErrRecipientNotFound = errors.New("ledger: recipient account not found")

	// ErrNegativeTarget rejects administrative adjustments below zero.
	ErrNegativeTarget = errors.New("ledger: target balance must not be negative")

	// ErrStorageUnavailable wraps transient backend failures. The whole
	// atomic unit is safe to retry.
	ErrStorageUnavailable = errors.New("ledger: storage unavailable")
)
