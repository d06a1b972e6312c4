package server

import (
	"github.com/shopspring/decimal"
)

// Request DTOs. Field validation happens at binding via validator tags;
// domain rules are enforced again by the services.

type sendOtpRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
}

type paymentDetailsRequest struct {
	PhoneNumber string `json:"phone_number"`
	OtpCode     string `json:"otp_code"`
	CardNumber  string `json:"card_number"`
	CardHolder  string `json:"card_holder"`
	CardExpiry  string `json:"card_expiry"`
}

type submitWithdrawalRequest struct {
	WalletID       string                `json:"wallet_id" binding:"required,uuid"`
	Amount         decimal.Decimal       `json:"amount" binding:"required"`
	PaymentMethod  string                `json:"payment_method" binding:"required,oneof=mobile_money card"`
	PaymentDetails paymentDetailsRequest `json:"payment_details"`
}

type adminNoteRequest struct {
	AdminNote string `json:"admin_note"`
}

type cancelWithdrawalRequest struct {
	OwnerID string `json:"owner_id" binding:"required"`
}

type transferRequest struct {
	SourceWalletID     string          `json:"source_wallet_id" binding:"required,uuid"`
	RecipientAccountID string          `json:"recipient_account_id" binding:"required"`
	Amount             decimal.Decimal `json:"amount" binding:"required"`
	Description        string          `json:"description" binding:"required"`
	Secret             string          `json:"secret" binding:"required"`
}

// pageData wraps a listing with its pagination envelope.
type pageData struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}
