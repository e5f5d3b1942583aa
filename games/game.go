package games

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

// Supported game types
const (
	TicTacToe  = "TicTacToe"
	Chess      = "Chess"
	Checkers   = "Checkers"
	Backgammon = "Backgammon"
)

var gameTypes = map[string]bool{
	TicTacToe:  true,
	Chess:      true,
	Checkers:   true,
	Backgammon: true,
}

// ValidGameType reports whether t names a playable game.
func ValidGameType(t string) bool { return gameTypes[t] }

var (
	ErrIllegalMove = errors.New("illegal move")
	ErrNotYourTurn = errors.New("not your turn")
	ErrGameOver    = errors.New("game already finished")
)

// Game statuses
const (
	StatusInProgress = "IN_PROGRESS"
	StatusFinished   = "FINISHED"
)

// Winner reasons
const (
	ReasonWin       = "win"
	ReasonCheckmate = "checkmate"
	ReasonDraw      = "draw"
	ReasonForfeit   = "forfeit"
)

// Player identifies one seat at the board.
type Player struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Winner is set once a game reaches a terminal state. On a draw,
// PlayerID is empty and Reason is "draw".
type Winner struct {
	PlayerID string `json:"playerId"`
	Reason   string `json:"reason"`
}

// State is the full serializable view of a game, broadcast to clients
// after every accepted move. Board and Meta shapes are game-specific.
type State struct {
	GameType        string         `json:"gameType"`
	Board           any            `json:"board"`
	Players         []Player       `json:"players"`
	CurrentPlayerID string         `json:"currentPlayerId"`
	Status          string         `json:"status"`
	Winner          *Winner        `json:"winner,omitempty"`
	Meta            map[string]any `json:"meta,omitempty"`
}

// Game is a live rule engine for one match. Implementations are not
// safe for concurrent use; callers serialize access.
type Game interface {
	// MakeMove validates and applies one move for playerID. The move
	// payload is game-specific JSON. On success the post-move state is
	// returned; on failure the state is unchanged and the error wraps
	// ErrIllegalMove, ErrNotYourTurn or ErrGameOver.
	MakeMove(playerID string, move json.RawMessage) (State, error)

	// State returns the current serializable state.
	State() State

	// IsBotTurn reports whether the player to move is a bot.
	IsBotTurn() bool

	// BotMove computes a move for the bot to move, encoded in the same
	// JSON shape MakeMove accepts. It never mutates the game.
	BotMove() (json.RawMessage, error)
}

// New builds a fresh engine for gameType. Seat sides (symbols, colors,
// opening roll) are randomized by each engine.
func New(gameType string, p1, p2 Player) (Game, error) {
	switch gameType {
	case TicTacToe:
		return NewTicTacToe(p1, p2), nil
	case Checkers:
		return NewCheckers(p1, p2), nil
	case Backgammon:
		return NewBackgammon(p1, p2), nil
	case Chess:
		return NewChess(p1, p2, NewChessEngine()), nil
	default:
		return nil, fmt.Errorf("unknown game type %q", gameType)
	}
}

const botIDPrefix = "bot-"

var botNames = []string{"Maverick", "Shadow", "Blitz", "Orion", "Rogue", "Atlas", "Nova", "Titan"}

// IsBot reports whether id belongs to a synthetic player.
func IsBot(id string) bool { return strings.HasPrefix(id, botIDPrefix) }

// NewBot mints a bot player with a fresh synthetic identity.
func NewBot() Player {
	n := botNames[rand.Intn(len(botNames))]
	return Player{
		ID:       fmt.Sprintf("%s%d", botIDPrefix, rand.Intn(1_000_000)),
		Username: fmt.Sprintf("%s%d", n, rand.Intn(1000)),
	}
}
