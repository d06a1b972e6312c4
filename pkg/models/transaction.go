package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType enumerates balance-affecting event types.
type TransactionType string

const (
	TxWithdrawal TransactionType = "withdrawal"
	TxReception  TransactionType = "reception"
	TxTransfer   TransactionType = "transfer"
	TxCommission TransactionType = "commission"
	TxSales      TransactionType = "sales"
	TxBonus      TransactionType = "bonus"
	TxPurchase   TransactionType = "purchase"
)

// Debits reports whether the type reduces the wallet balance. The sign
// convention lives here, not in display logic: withdrawal, transfer and
// purchase debit; reception, commission, sales and bonus credit.
func (t TransactionType) Debits() bool {
	switch t {
	case TxWithdrawal, TxTransfer, TxPurchase:
		return true
	}
	return false
}

// Valid reports whether the type is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TxWithdrawal, TxReception, TxTransfer, TxCommission, TxSales, TxBonus, TxPurchase:
		return true
	}
	return false
}

// TransactionStatus enumerates transaction lifecycle states.
type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxApproved  TransactionStatus = "approved"
	TxRejected  TransactionStatus = "rejected"
	TxCancelled TransactionStatus = "cancelled"
	TxFailed    TransactionStatus = "failed"
)

// Terminal reports whether the status permits no further edits.
func (s TransactionStatus) Terminal() bool {
	return s != TxPending
}

// Metadata keys produced by the workflow and transfer services. Anything
// else stored in the map is free-form audit detail.
const (
	MetaWithdrawalRequestID = "withdrawal_request_id"
	MetaPaymentMethod       = "payment_method"
	MetaFeeAmount           = "fee_amount"
	MetaNetAmount           = "net_amount"
	MetaCounterpartWallet   = "counterpart_wallet_id"
	MetaCounterpartOwner    = "counterpart_owner_id"
	MetaDescription         = "description"
)

// Metadata is an open key/value map stored as a JSON column.
// Implements driver.Valuer and sql.Scanner for GORM/SQLite.
type Metadata map[string]string

func (m Metadata) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type: %T", value)
	}
	return json.Unmarshal(bytes, m)
}

// Transaction is an immutable, signed record of a balance-affecting event.
// Once Status is terminal only UpdatedAt may change.
type Transaction struct {
	ID        uuid.UUID         `json:"id" gorm:"primaryKey;type:uuid"`
	WalletID  uuid.UUID         `json:"wallet_id" gorm:"type:uuid;index"`
	Type      TransactionType   `json:"type" gorm:"index"`
	Amount    decimal.Decimal   `json:"amount" gorm:"type:numeric(20,8)"`
	Status    TransactionStatus `json:"status" gorm:"index"`
	Metadata  Metadata          `json:"metadata" gorm:"type:text"`
	CreatedAt time.Time         `json:"created_at" gorm:"index"`
	UpdatedAt time.Time         `json:"updated_at"`
}
