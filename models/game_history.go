package models

import "time"

// Per-player results in a finished game
const (
	ResultWin  = "win"
	ResultLoss = "loss"
	ResultDraw = "draw"
)

// GameHistory records one finished match for audit and player history.
// Bot participants are recorded with their synthetic IDs so human
// opponents still see the game in their history.
type GameHistory struct {
	ID       string  `gorm:"primaryKey;type:uuid" json:"id"`
	RoomID   string  `gorm:"index" json:"room_id"`
	GameType string  `gorm:"type:varchar(32);not null" json:"game_type"`
	Wager    float64 `json:"wager"`

	PlayedAt time.Time           `json:"played_at" gorm:"autoCreateTime;index"`
	Results  []GameHistoryResult `json:"results,omitempty" gorm:"foreignKey:HistoryID"`
}

// GameHistoryResult is one player's line in a GameHistory. Amount is
// the signed balance delta the game produced for that player (zero for
// bots and unsettled games).
type GameHistoryResult struct {
	ID        string  `gorm:"primaryKey;type:uuid" json:"id"`
	HistoryID string  `gorm:"not null;index" json:"history_id"`
	PlayerID  string  `gorm:"index;not null" json:"player_id"`
	Username  string  `json:"username"`
	Result    string  `gorm:"type:varchar(8);check:result IN ('win','loss','draw')" json:"result"`
	Amount    float64 `json:"amount"`
}
