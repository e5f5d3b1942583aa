package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"game-match-system/models"
)

// newTestDB opens a per-test in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Transaction{},
		&models.GameHistory{},
		&models.GameHistoryResult{},
		&models.Tournament{},
		&models.TournamentParticipant{},
		&models.BracketMatch{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string, balance float64, kyc string) *models.User {
	t.Helper()
	u := &models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     username + "@example.com",
		Balance:   balance,
		KycStatus: kyc,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func balanceOf(t *testing.T, db *gorm.DB, userID string) float64 {
	t.Helper()
	var u models.User
	require.NoError(t, db.First(&u, "id = ?", userID).Error)
	return u.Balance
}
