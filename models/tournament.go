package models

import "time"

// Tournament statuses
const (
	TournamentPending  = "PENDING"
	TournamentActive   = "ACTIVE"
	TournamentFinished = "FINISHED"
)

// Bracket match statuses
const (
	MatchPending  = "pending"
	MatchActive   = "active"
	MatchFinished = "finished"
)

// Tournament is a single-elimination wagered bracket. Size is fixed at
// creation (4, 8 or 16); empty slots are filled with bots on start.
type Tournament struct {
	ID        string  `json:"id" gorm:"primaryKey;type:uuid"`
	Name      string  `json:"name" gorm:"not null"`
	Slug      string  `json:"slug" gorm:"uniqueIndex"`
	GameType  string  `json:"game_type" gorm:"type:varchar(32);not null"`
	Size      int     `json:"size" gorm:"not null"`
	EntryFee  float64 `json:"entry_fee" gorm:"not null"`
	PrizePool float64 `json:"prize_pool" gorm:"default:0"`
	Status    string  `json:"status" gorm:"type:varchar(16);default:'PENDING';index"`

	WinnerID   string     `json:"winner_id,omitempty"`
	WinnerName string     `json:"winner_name,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Relationships
	Participants []TournamentParticipant `json:"participants,omitempty" gorm:"foreignKey:TournamentID"`
	Matches      []BracketMatch          `json:"matches,omitempty" gorm:"foreignKey:TournamentID"`

	Timestamps
}

// TournamentParticipant is one bracket entrant, human or bot. Bots pay
// no entry fee and can win no prize.
type TournamentParticipant struct {
	ID           string    `json:"id" gorm:"primaryKey;type:uuid"`
	TournamentID string    `json:"tournament_id" gorm:"not null;index"`
	UserID       string    `json:"user_id" gorm:"not null;index"`
	Username     string    `json:"username"`
	IsBot        bool      `json:"is_bot" gorm:"default:false"`
	JoinedAt     time.Time `json:"joined_at" gorm:"autoCreateTime"`
}

// BracketMatch is one 1v1 pairing in the bracket. MatchKey is the
// stable address "round-<r>-match-<m>" used by clients and the live
// engine registry. Later-round rows are created with empty player
// slots and filled as winners propagate.
type BracketMatch struct {
	ID           string `json:"id" gorm:"primaryKey;type:uuid"`
	TournamentID string `json:"tournament_id" gorm:"not null;index"`
	MatchKey     string `json:"match_key" gorm:"not null;index"`
	RoundIndex   int    `json:"round_index" gorm:"not null"`
	MatchIndex   int    `json:"match_index" gorm:"not null"`
	Status       string `json:"status" gorm:"type:varchar(16);default:'pending'"`

	Player1ID   string `json:"player1_id,omitempty"`
	Player1Name string `json:"player1_name,omitempty"`
	Player2ID   string `json:"player2_id,omitempty"`
	Player2Name string `json:"player2_name,omitempty"`
	WinnerID    string `json:"winner_id,omitempty"`
	WinnerName  string `json:"winner_name,omitempty"`

	Timestamps
}
