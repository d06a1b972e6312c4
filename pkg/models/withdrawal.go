package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how an approved withdrawal is paid out.
type PaymentMethod string

const (
	PayMobileMoney PaymentMethod = "mobile_money"
	PayCard        PaymentMethod = "card"
)

func (m PaymentMethod) Valid() bool {
	return m == PayMobileMoney || m == PayCard
}

// WithdrawalStatus enumerates withdrawal request states.
type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalApproved  WithdrawalStatus = "approved"
	WithdrawalRejected  WithdrawalStatus = "rejected"
	WithdrawalCancelled WithdrawalStatus = "cancelled"
)

// Terminal reports whether no further transition is permitted.
func (s WithdrawalStatus) Terminal() bool {
	return s != WithdrawalPending
}

// PaymentDetails carries the method-specific payout fields: phone number for
// mobile money (OTP proof is consumed at submission), card fields otherwise.
// Stored as a JSON column.
type PaymentDetails struct {
	PhoneNumber string `json:"phone_number,omitempty"`
	OtpCode     string `json:"-"` // consumed at submission, never persisted
	CardNumber  string `json:"card_number,omitempty"`
	CardHolder  string `json:"card_holder,omitempty"`
	CardExpiry  string `json:"card_expiry,omitempty"`
}

func (d PaymentDetails) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *PaymentDetails) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		*d = PaymentDetails{}
		return nil
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type: %T", value)
	}
	return json.Unmarshal(bytes, d)
}

// WithdrawalRequest is a user-initiated, administrator-gated intent to debit
// a wallet. Approval produces exactly one debit Transaction; rejection and
// cancellation produce none.
type WithdrawalRequest struct {
	ID              uuid.UUID        `json:"id" gorm:"primaryKey;type:uuid"`
	WalletID        uuid.UUID        `json:"wallet_id" gorm:"type:uuid;index"`
	WalletOwnerKind OwnerKind        `json:"wallet_owner_kind"`
	OwnerID         string           `json:"owner_id" gorm:"index"`
	Amount          decimal.Decimal  `json:"amount" gorm:"type:numeric(20,8)"`
	PaymentMethod   PaymentMethod    `json:"payment_method"`
	PaymentDetails  PaymentDetails   `json:"payment_details" gorm:"type:text"`
	Status          WithdrawalStatus `json:"status" gorm:"index"`
	AdminNote       string           `json:"admin_note,omitempty"`
	CreatedAt       time.Time        `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time        `json:"updated_at"`
}
