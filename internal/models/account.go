package models

import "time"

// Account identifies a balance holder. There is no stored balance field:
// the balance is always derived from the account's ledger chain.
type Account struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
