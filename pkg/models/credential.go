package models

import "time"

// Credential stores the bcrypt hash of a wallet owner's transfer secret.
// The core trusts the caller's identity everywhere else; only fund transfers
// re-validate this secret.
type Credential struct {
	OwnerID    string    `json:"owner_id" gorm:"primaryKey"`
	SecretHash string    `json:"-"`
	UpdatedAt  time.Time `json:"updated_at"`
}
