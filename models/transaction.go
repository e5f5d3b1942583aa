package models

import "time"

// Transaction types
const (
	TxDeposit            = "DEPOSIT"
	TxWithdrawal         = "WITHDRAWAL"
	TxGameWin            = "GAME_WIN"
	TxGameLoss           = "GAME_LOSS"
	TxTieFee             = "TIE_FEE"
	TxTournamentWin      = "TOURNAMENT_WIN"
	TxPlatformCommission = "PLATFORM_COMMISSION"
)

// Transaction statuses
const (
	TxSuccess = "SUCCESS"
	TxPending = "PENDING"
	TxFailed  = "FAILED"
)

// Transaction is one immutable ledger entry. Amount is signed from the
// user's point of view: credits positive, debits negative. Commission
// entries have no user (UserID nil).
type Transaction struct {
	ID     string  `gorm:"primaryKey;type:uuid" json:"id"`
	UserID *string `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Type   string  `gorm:"type:varchar(32);not null;index" json:"type"`
	Status string  `gorm:"type:varchar(16);not null;default:'SUCCESS'" json:"status"`
	Amount float64 `gorm:"not null" json:"amount"`

	// Optional link back to the room, bracket match or tournament that
	// produced this entry.
	ReferenceID string `gorm:"index" json:"reference_id,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}
