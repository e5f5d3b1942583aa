package games

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
)

// ChessEngine abstracts full chess rules behind a small surface so the
// match layer never re-implements them. Moves are UCI strings
// ("e2e4", "e7e8q").
type ChessEngine interface {
	LegalMoves() []string
	ApplyMove(uci string) error
	// Turn returns 'w' or 'b'.
	Turn() byte
	IsCheckmate() bool
	IsDraw() bool
	FEN() string
	History() []string
}

// ChessMove is the wire form of one move.
type ChessMove struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

func (m ChessMove) uci() string {
	return strings.ToLower(m.From + m.To + m.Promotion)
}

type chessGame struct {
	engine ChessEngine
	white  Player
	black  Player
	status string
	winner *Winner
}

// NewChess wires two players to a rules engine. Colors are assigned
// randomly; white moves first.
func NewChess(p1, p2 Player, engine ChessEngine) Game {
	g := &chessGame{engine: engine, status: StatusInProgress}
	if rand.Intn(2) == 0 {
		g.white, g.black = p1, p2
	} else {
		g.white, g.black = p2, p1
	}
	return g
}

func (g *chessGame) playerFor(color byte) Player {
	if color == 'w' {
		return g.white
	}
	return g.black
}

func (g *chessGame) colorFor(playerID string) (byte, bool) {
	switch playerID {
	case g.white.ID:
		return 'w', true
	case g.black.ID:
		return 'b', true
	}
	return 0, false
}

func (g *chessGame) MakeMove(playerID string, move json.RawMessage) (State, error) {
	if g.status == StatusFinished {
		return g.State(), ErrGameOver
	}
	color, ok := g.colorFor(playerID)
	if !ok {
		return g.State(), fmt.Errorf("%w: unknown player %s", ErrIllegalMove, playerID)
	}
	if color != g.engine.Turn() {
		return g.State(), ErrNotYourTurn
	}
	var m ChessMove
	if err := json.Unmarshal(move, &m); err != nil {
		return g.State(), fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	if err := g.engine.ApplyMove(m.uci()); err != nil {
		return g.State(), fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	switch {
	case g.engine.IsCheckmate():
		g.status = StatusFinished
		g.winner = &Winner{PlayerID: g.playerFor(color).ID, Reason: ReasonCheckmate}
	case g.engine.IsDraw():
		g.status = StatusFinished
		g.winner = &Winner{Reason: ReasonDraw}
	}
	return g.State(), nil
}

func (g *chessGame) State() State {
	return State{
		GameType:        Chess,
		Board:           g.engine.FEN(),
		Players:         []Player{g.white, g.black},
		CurrentPlayerID: g.playerFor(g.engine.Turn()).ID,
		Status:          g.status,
		Winner:          g.winner,
		Meta: map[string]any{
			"colors":  map[string]string{g.white.ID: "white", g.black.ID: "black"},
			"history": g.engine.History(),
		},
	}
}

func (g *chessGame) IsBotTurn() bool {
	return g.status == StatusInProgress && IsBot(g.playerFor(g.engine.Turn()).ID)
}

// BotMove picks a random legal move, promoting to queen when the move
// is a promotion.
func (g *chessGame) BotMove() (json.RawMessage, error) {
	if g.status == StatusFinished {
		return nil, ErrGameOver
	}
	moves := g.engine.LegalMoves()
	if len(moves) == 0 {
		return nil, fmt.Errorf("%w: no legal moves", ErrIllegalMove)
	}
	uci := moves[rand.Intn(len(moves))]
	m := ChessMove{From: uci[:2], To: uci[2:4]}
	if len(uci) > 4 {
		m.Promotion = "q"
	}
	return json.Marshal(m)
}
