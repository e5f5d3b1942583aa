package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"game-match-system/models"
)

func TestDeposit(t *testing.T) {
	db := newTestDB(t)
	fin := NewFinancialService(db, 0.10)
	u := seedUser(t, db, "alice", 0, models.KycNotSubmitted)

	entry, err := fin.Deposit(u.ID, 250)
	require.NoError(t, err)
	assert.Equal(t, models.TxDeposit, entry.Type)
	assert.Equal(t, models.TxSuccess, entry.Status)
	assert.Equal(t, 250.0, entry.Amount)
	assert.Equal(t, 250.0, balanceOf(t, db, u.ID))

	_, err = fin.Deposit(u.ID, -5)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestWithdrawalRequiresKyc(t *testing.T) {
	db := newTestDB(t)
	fin := NewFinancialService(db, 0.10)
	u := seedUser(t, db, "alice", 100, models.KycPending)

	_, err := fin.RequestWithdrawal(u.ID, 50)
	assert.ErrorIs(t, err, ErrKycRequired)
	assert.Equal(t, 100.0, balanceOf(t, db, u.ID), "failed withdrawal must not touch the balance")
}

func TestWithdrawal(t *testing.T) {
	db := newTestDB(t)
	fin := NewFinancialService(db, 0.10)
	u := seedUser(t, db, "alice", 100, models.KycApproved)

	entry, err := fin.RequestWithdrawal(u.ID, 60)
	require.NoError(t, err)
	assert.Equal(t, models.TxPending, entry.Status)
	assert.Equal(t, -60.0, entry.Amount)
	assert.Equal(t, 40.0, balanceOf(t, db, u.ID))

	_, err = fin.RequestWithdrawal(u.ID, 60)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestDebitStake(t *testing.T) {
	db := newTestDB(t)
	fin := NewFinancialService(db, 0.10)
	u := seedUser(t, db, "alice", 30, models.KycNotSubmitted)

	require.NoError(t, fin.DebitStake(u.ID, 30))
	assert.Equal(t, 0.0, balanceOf(t, db, u.ID))
	assert.ErrorIs(t, fin.DebitStake(u.ID, 1), ErrInsufficientFunds)

	// bots hold no balance
	assert.NoError(t, fin.DebitStake("bot-42", 100))
}

func TestSettleMatch(t *testing.T) {
	db := newTestDB(t)
	fin := NewFinancialService(db, 0.10)
	winner := seedUser(t, db, "alice", 100, models.KycApproved)
	loser := seedUser(t, db, "bob", 100, models.KycApproved)

	// escrow 100 each, then settle a decisive result
	require.NoError(t, fin.DebitStake(winner.ID, 100))
	require.NoError(t, fin.DebitStake(loser.ID, 100))
	require.NoError(t, fin.SettleMatch(winner.ID, loser.ID, 100, "room-1"))

	assert.Equal(t, 180.0, balanceOf(t, db, winner.ID), "winner nets +80 on a 100 bet at 10%% commission")
	assert.Equal(t, 0.0, balanceOf(t, db, loser.ID))

	var win, loss, com models.Transaction
	require.NoError(t, db.First(&win, "type = ?", models.TxGameWin).Error)
	require.NoError(t, db.First(&loss, "type = ?", models.TxGameLoss).Error)
	require.NoError(t, db.First(&com, "type = ?", models.TxPlatformCommission).Error)
	assert.Equal(t, 180.0, win.Amount)
	assert.Equal(t, -100.0, loss.Amount)
	assert.Equal(t, 20.0, com.Amount)
	assert.Nil(t, com.UserID)

	// pot conservation: deltas from the pre-game balances sum to the
	// negated commission
	delta := (balanceOf(t, db, winner.ID) - 100) + (balanceOf(t, db, loser.ID) - 100)
	assert.InDelta(t, -com.Amount, delta, 1e-9)

	var u models.User
	require.NoError(t, db.First(&u, "id = ?", winner.ID).Error)
	assert.Equal(t, 1, u.GamesPlayed)
	assert.Equal(t, 80.0, u.MoneyEarned)
}

func TestSettleDraw(t *testing.T) {
	db := newTestDB(t)
	fin := NewFinancialService(db, 0.10)
	a := seedUser(t, db, "alice", 100, models.KycApproved)
	b := seedUser(t, db, "bob", 100, models.KycApproved)

	require.NoError(t, fin.DebitStake(a.ID, 50))
	require.NoError(t, fin.DebitStake(b.ID, 50))
	require.NoError(t, fin.SettleDraw(a.ID, b.ID, 50, "room-2"))

	// each player is down exactly the tie fee
	assert.Equal(t, 95.0, balanceOf(t, db, a.ID))
	assert.Equal(t, 95.0, balanceOf(t, db, b.ID))

	var fees []models.Transaction
	require.NoError(t, db.Find(&fees, "type = ?", models.TxTieFee).Error)
	require.Len(t, fees, 2)
	for _, f := range fees {
		assert.Equal(t, -5.0, f.Amount)
	}
	var com models.Transaction
	require.NoError(t, db.First(&com, "type = ?", models.TxPlatformCommission).Error)
	assert.Equal(t, 10.0, com.Amount)
}

func TestSettleTournament(t *testing.T) {
	db := newTestDB(t)
	fin := NewFinancialService(db, 0.10)
	champ := seedUser(t, db, "alice", 90, models.KycApproved) // already paid the 10 entry

	require.NoError(t, fin.SettleTournament(champ.ID, 40, 10, "t-1"))
	assert.Equal(t, 126.0, balanceOf(t, db, champ.ID))

	var win models.Transaction
	require.NoError(t, db.First(&win, "type = ?", models.TxTournamentWin).Error)
	assert.Equal(t, 36.0, win.Amount)

	var u models.User
	require.NoError(t, db.First(&u, "id = ?", champ.ID).Error)
	assert.Equal(t, 26.0, u.MoneyEarned)

	// a bot champion settles nothing
	require.NoError(t, fin.SettleTournament("bot-1", 40, 10, "t-2"))
	var count int64
	db.Model(&models.Transaction{}).Where("reference_id = ?", "t-2").Count(&count)
	assert.Zero(t, count)
}

func TestTransactionHistoryPagination(t *testing.T) {
	db := newTestDB(t)
	fin := NewFinancialService(db, 0.10)
	u := seedUser(t, db, "alice", 0, models.KycNotSubmitted)

	for i := 0; i < 25; i++ {
		_, err := fin.Deposit(u.ID, float64(i+1))
		require.NoError(t, err)
	}
	page1, total, err := fin.History(u.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 25, total)
	assert.Len(t, page1, 10)

	page3, _, err := fin.History(u.ID, 3, 10)
	require.NoError(t, err)
	assert.Len(t, page3, 5)
}
