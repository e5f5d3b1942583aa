package workers

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"game-match-system/models"
)

// WithdrawalProcessor drains PENDING withdrawal entries and marks them
// SUCCESS once the payout pipeline would have confirmed them. The
// balance was already debited when the withdrawal was requested, so
// this worker only advances ledger status.
type WithdrawalProcessor struct {
	DB       *gorm.DB
	Interval time.Duration
	// SettleDelay is how old a pending entry must be before it is
	// considered confirmed.
	SettleDelay time.Duration
}

func NewWithdrawalProcessor(db *gorm.DB) *WithdrawalProcessor {
	return &WithdrawalProcessor{
		DB:          db,
		Interval:    15 * time.Second,
		SettleDelay: 30 * time.Second,
	}
}

// Run polls until the context is cancelled.
func (w *WithdrawalProcessor) Run(ctx context.Context) {
	log.Println("🏦 Withdrawal processor started")
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("🏦 Withdrawal processor stopped")
			return
		case <-ticker.C:
			w.processBatch()
		}
	}
}

func (w *WithdrawalProcessor) processBatch() {
	cutoff := time.Now().Add(-w.SettleDelay)
	res := w.DB.Model(&models.Transaction{}).
		Where("type = ? AND status = ? AND created_at < ?",
			models.TxWithdrawal, models.TxPending, cutoff).
		Update("status", models.TxSuccess)
	if res.Error != nil {
		log.Printf("⚠️ withdrawal batch failed: %v", res.Error)
		return
	}
	if res.RowsAffected > 0 {
		log.Printf("🏦 confirmed %d withdrawals", res.RowsAffected)
	}
}
