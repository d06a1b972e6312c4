package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OwnerKind identifies who holds a wallet.
type OwnerKind string

const (
	OwnerUser   OwnerKind = "user"
	OwnerAdmin  OwnerKind = "admin"
	OwnerSystem OwnerKind = "system"
)

// Valid reports whether the kind is one of the known owner kinds.
func (k OwnerKind) Valid() bool {
	switch k {
	case OwnerUser, OwnerAdmin, OwnerSystem:
		return true
	}
	return false
}

// Wallet is a balance-bearing account. Balance never goes negative and is
// mutated only through an appended Transaction; TotalEarned and
// TotalWithdrawn are monotonically non-decreasing running aggregates.
type Wallet struct {
	ID             uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid"`
	OwnerKind      OwnerKind       `json:"owner_kind" gorm:"index:idx_wallet_owner,unique"`
	OwnerID        string          `json:"owner_id" gorm:"index:idx_wallet_owner,unique"`
	Balance        decimal.Decimal `json:"balance" gorm:"type:numeric(20,8)"`
	TotalEarned    decimal.Decimal `json:"total_earned" gorm:"type:numeric(20,8)"`
	TotalWithdrawn decimal.Decimal `json:"total_withdrawn" gorm:"type:numeric(20,8)"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
