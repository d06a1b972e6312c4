package models

import (
	"time"

	"github.com/google/uuid"
)

// OtpChallenge is a phone-bound one-time code. A code is single use: expired
// or consumed codes fail validation, and issuing a fresh code supersedes any
// unconsumed prior code for the same phone number.
type OtpChallenge struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	PhoneNumber string    `json:"phone_number" gorm:"index"`
	Code        string    `json:"-"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Consumed    bool      `json:"consumed"`
}

// Expired reports whether the challenge is past its expiry at the given time.
func (c *OtpChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
