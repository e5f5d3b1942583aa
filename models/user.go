package models

import "time"

// KYC verification states. Withdrawals require APPROVED.
const (
	KycNotSubmitted = "NOT_SUBMITTED"
	KycPending      = "PENDING"
	KycApproved     = "APPROVED"
	KycRejected     = "REJECTED"
)

// User is a wagering player account. Balance is the single source of
// truth for funds; every mutation is paired with a Transaction row.
type User struct {
	ID        string  `gorm:"primaryKey;type:uuid" json:"id"`
	Username  string  `gorm:"index;not null" json:"username"`
	Email     string  `gorm:"uniqueIndex" json:"email,omitempty"`
	Balance   float64 `gorm:"not null;default:0" json:"balance"`
	KycStatus string  `gorm:"type:varchar(16);default:'NOT_SUBMITTED'" json:"kyc_status"`

	// Lifetime stats, updated on settlement
	GamesPlayed int     `gorm:"default:0" json:"games_played"`
	MoneyEarned float64 `gorm:"default:0" json:"money_earned"`

	Timestamps
}

// Timestamps is embedded by models that want the standard pair.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
