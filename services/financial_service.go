package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"game-match-system/games"
	"game-match-system/models"
)

// DefaultCommissionRate is applied when no rate is configured.
const DefaultCommissionRate = 0.10

// FinancialService owns every balance mutation. Stakes are debited
// when a player commits to a game (escrow) and the ledger records the
// outcome at settlement, so the sum of pots, payouts and commission is
// always zero.
type FinancialService struct {
	DB             *gorm.DB
	CommissionRate float64
}

func NewFinancialService(db *gorm.DB, commissionRate float64) *FinancialService {
	if commissionRate <= 0 || commissionRate >= 1 {
		commissionRate = DefaultCommissionRate
	}
	return &FinancialService{DB: db, CommissionRate: commissionRate}
}

// lockForUpdate takes a row lock on dialects that support it. The
// sqlite driver used in tests has no FOR UPDATE.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func lockedUser(tx *gorm.DB, userID string) (*models.User, error) {
	var user models.User
	if err := lockForUpdate(tx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
		}
		return nil, err
	}
	return &user, nil
}

// GetUser loads one account.
func (s *FinancialService) GetUser(userID string) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
		}
		return nil, err
	}
	return &user, nil
}

// Deposit credits the account and records a SUCCESS ledger entry.
func (s *FinancialService) Deposit(userID string, amount float64) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	entry := &models.Transaction{
		ID:     uuid.NewString(),
		UserID: &userID,
		Type:   models.TxDeposit,
		Status: models.TxSuccess,
		Amount: amount,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		user, err := lockedUser(tx, userID)
		if err != nil {
			return err
		}
		if err := tx.Model(user).Update("balance", gorm.Expr("balance + ?", amount)).Error; err != nil {
			return err
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// RequestWithdrawal debits the account immediately and records a
// PENDING entry for the payout pipeline. Requires approved KYC and
// sufficient balance.
func (s *FinancialService) RequestWithdrawal(userID string, amount float64) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	entry := &models.Transaction{
		ID:     uuid.NewString(),
		UserID: &userID,
		Type:   models.TxWithdrawal,
		Status: models.TxPending,
		Amount: -amount,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		user, err := lockedUser(tx, userID)
		if err != nil {
			return err
		}
		if user.KycStatus != models.KycApproved {
			return ErrKycRequired
		}
		if user.Balance < amount {
			return ErrInsufficientFunds
		}
		if err := tx.Model(user).Update("balance", gorm.Expr("balance - ?", amount)).Error; err != nil {
			return err
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// History returns the user's ledger, newest first.
func (s *FinancialService) History(userID string, page, limit int) ([]models.Transaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var total int64
	q := s.DB.Model(&models.Transaction{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var entries []models.Transaction
	err := q.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&entries).Error
	return entries, total, err
}

// DebitStake escrows a wager. No ledger entry is written here; the
// outcome entries at settlement carry the full story. Bots hold no
// balance and are skipped.
func (s *FinancialService) DebitStake(userID string, amount float64) error {
	if games.IsBot(userID) {
		return nil
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		user, err := lockedUser(tx, userID)
		if err != nil {
			return err
		}
		if user.Balance < amount {
			return ErrInsufficientFunds
		}
		return tx.Model(user).Update("balance", gorm.Expr("balance - ?", amount)).Error
	})
}

// RefundStake returns an escrowed wager untouched, e.g. when a room is
// abandoned before the game starts.
func (s *FinancialService) RefundStake(userID string, amount float64) error {
	if games.IsBot(userID) {
		return nil
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		user, err := lockedUser(tx, userID)
		if err != nil {
			return err
		}
		return tx.Model(user).Update("balance", gorm.Expr("balance + ?", amount)).Error
	})
}

// SettleMatch pays out a decisive wagered game. Both stakes were
// escrowed up front, so the pot is 2*bet; the winner receives the pot
// minus commission and the ledger records win, loss and commission in
// one transaction.
func (s *FinancialService) SettleMatch(winnerID, loserID string, bet float64, refID string) error {
	pot := 2 * bet
	commission := pot * s.CommissionRate
	prize := pot - commission

	return s.DB.Transaction(func(tx *gorm.DB) error {
		winner, err := lockedUser(tx, winnerID)
		if err != nil {
			return err
		}
		loser, err := lockedUser(tx, loserID)
		if err != nil {
			return err
		}
		if err := tx.Model(winner).Updates(map[string]any{
			"balance":      gorm.Expr("balance + ?", prize),
			"money_earned": gorm.Expr("money_earned + ?", prize-bet),
			"games_played": gorm.Expr("games_played + 1"),
		}).Error; err != nil {
			return err
		}
		if err := tx.Model(loser).Update("games_played", gorm.Expr("games_played + 1")).Error; err != nil {
			return err
		}
		entries := []models.Transaction{
			{ID: uuid.NewString(), UserID: &winner.ID, Type: models.TxGameWin, Status: models.TxSuccess, Amount: prize, ReferenceID: refID},
			{ID: uuid.NewString(), UserID: &loser.ID, Type: models.TxGameLoss, Status: models.TxSuccess, Amount: -bet, ReferenceID: refID},
			{ID: uuid.NewString(), Type: models.TxPlatformCommission, Status: models.TxSuccess, Amount: commission, ReferenceID: refID},
		}
		if err := tx.Create(&entries).Error; err != nil {
			return err
		}
		log.Printf("💰 settled match ref=%s winner=%s prize=%.2f commission=%.2f", refID, winnerID, prize, commission)
		return nil
	})
}

// SettleDraw refunds both stakes minus the per-player tie fee.
func (s *FinancialService) SettleDraw(p1ID, p2ID string, bet float64, refID string) error {
	fee := bet * s.CommissionRate
	refund := bet - fee

	return s.DB.Transaction(func(tx *gorm.DB) error {
		var entries []models.Transaction
		for _, id := range []string{p1ID, p2ID} {
			user, err := lockedUser(tx, id)
			if err != nil {
				return err
			}
			if err := tx.Model(user).Updates(map[string]any{
				"balance":      gorm.Expr("balance + ?", refund),
				"games_played": gorm.Expr("games_played + 1"),
			}).Error; err != nil {
				return err
			}
			uid := id
			entries = append(entries, models.Transaction{
				ID: uuid.NewString(), UserID: &uid, Type: models.TxTieFee,
				Status: models.TxSuccess, Amount: -fee, ReferenceID: refID,
			})
		}
		entries = append(entries, models.Transaction{
			ID: uuid.NewString(), Type: models.TxPlatformCommission,
			Status: models.TxSuccess, Amount: 2 * fee, ReferenceID: refID,
		})
		return tx.Create(&entries).Error
	})
}

// SettleTournament pays the champion the prize pool minus commission.
// entryFee is only used for the net-earnings stat.
func (s *FinancialService) SettleTournament(winnerID string, prizePool, entryFee float64, refID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		return s.settleTournamentTx(tx, winnerID, prizePool, entryFee, refID)
	})
}

// settleTournamentTx runs the champion payout inside the caller's
// transaction, so a failed payout also rolls back whatever finishing
// writes accompany it.
func (s *FinancialService) settleTournamentTx(tx *gorm.DB, winnerID string, prizePool, entryFee float64, refID string) error {
	if games.IsBot(winnerID) {
		return nil
	}
	commission := prizePool * s.CommissionRate
	payout := prizePool - commission

	winner, err := lockedUser(tx, winnerID)
	if err != nil {
		return err
	}
	if err := tx.Model(winner).Updates(map[string]any{
		"balance":      gorm.Expr("balance + ?", payout),
		"money_earned": gorm.Expr("money_earned + ?", payout-entryFee),
	}).Error; err != nil {
		return err
	}
	entries := []models.Transaction{
		{ID: uuid.NewString(), UserID: &winner.ID, Type: models.TxTournamentWin, Status: models.TxSuccess, Amount: payout, ReferenceID: refID},
		{ID: uuid.NewString(), Type: models.TxPlatformCommission, Status: models.TxSuccess, Amount: commission, ReferenceID: refID},
	}
	if err := tx.Create(&entries).Error; err != nil {
		return err
	}
	log.Printf("🏆 settled tournament ref=%s winner=%s payout=%.2f", refID, winnerID, payout)
	return nil
}
