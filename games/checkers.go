package games

import (
	"encoding/json"
	"fmt"
	"math/rand"
)

type ckPiece struct {
	color byte // 'w' or 'b'
	king  bool
}

// CheckersMove is one step or jump. Multi-jumps are submitted one jump
// at a time; the engine holds the turn open while a chain continues.
type CheckersMove struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type ckCandidate struct {
	from, to int
	captured int // board index of the jumped piece, -1 for plain moves
}

type checkers struct {
	board     [64]*ckPiece
	white     Player // moves up the board (towards row 0)
	black     Player
	current   byte
	chainFrom int // square a capture chain must continue from, -1 otherwise
	status    string
	winner    *Winner
}

// NewCheckers sets up the standard opening on the dark squares. Sides
// are assigned randomly; white moves first.
func NewCheckers(p1, p2 Player) Game {
	g := &checkers{current: 'w', chainFrom: -1, status: StatusInProgress}
	if rand.Intn(2) == 0 {
		g.white, g.black = p1, p2
	} else {
		g.white, g.black = p2, p1
	}
	for i := 0; i < 64; i++ {
		row, col := i/8, i%8
		if (row+col)%2 != 1 {
			continue
		}
		if row < 3 {
			g.board[i] = &ckPiece{color: 'b'}
		} else if row > 4 {
			g.board[i] = &ckPiece{color: 'w'}
		}
	}
	return g
}

func (g *checkers) playerFor(color byte) Player {
	if color == 'w' {
		return g.white
	}
	return g.black
}

func (g *checkers) colorFor(playerID string) (byte, bool) {
	switch playerID {
	case g.white.ID:
		return 'w', true
	case g.black.ID:
		return 'b', true
	}
	return 0, false
}

var ckDirs = [4][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}

// pieceMoves lists candidate moves for the piece at idx, captures and
// plain moves separately. Men step forward only but may jump in any
// direction; kings slide and jump along full diagonals.
func (g *checkers) pieceMoves(idx int) (captures, plain []ckCandidate) {
	p := g.board[idx]
	row, col := idx/8, idx%8
	forward := -1
	if p.color == 'b' {
		forward = 1
	}
	for _, d := range ckDirs {
		if !p.king {
			r, c := row+d[0], col+d[1]
			if r < 0 || r > 7 || c < 0 || c > 7 {
				continue
			}
			t := r*8 + c
			if g.board[t] == nil {
				if d[0] == forward {
					plain = append(plain, ckCandidate{from: idx, to: t, captured: -1})
				}
			} else if g.board[t].color != p.color {
				lr, lc := r+d[0], c+d[1]
				if lr >= 0 && lr <= 7 && lc >= 0 && lc <= 7 && g.board[lr*8+lc] == nil {
					captures = append(captures, ckCandidate{from: idx, to: lr*8 + lc, captured: t})
				}
			}
			continue
		}
		// flying king: walk the ray
		r, c := row+d[0], col+d[1]
		for r >= 0 && r <= 7 && c >= 0 && c <= 7 && g.board[r*8+c] == nil {
			plain = append(plain, ckCandidate{from: idx, to: r*8 + c, captured: -1})
			r, c = r+d[0], c+d[1]
		}
		if r < 0 || r > 7 || c < 0 || c > 7 || g.board[r*8+c].color == p.color {
			continue
		}
		jumped := r*8 + c
		r, c = r+d[0], c+d[1]
		for r >= 0 && r <= 7 && c >= 0 && c <= 7 && g.board[r*8+c] == nil {
			captures = append(captures, ckCandidate{from: idx, to: r*8 + c, captured: jumped})
			r, c = r+d[0], c+d[1]
		}
	}
	return captures, plain
}

// legalMoves applies the forced-capture rule: if any capture exists for
// the side to move, only captures are legal. While a chain is open only
// the chaining piece may move, and only by capturing.
func (g *checkers) legalMoves(color byte) []ckCandidate {
	if g.chainFrom >= 0 {
		caps, _ := g.pieceMoves(g.chainFrom)
		return caps
	}
	var captures, plain []ckCandidate
	for i := 0; i < 64; i++ {
		if g.board[i] == nil || g.board[i].color != color {
			continue
		}
		c, p := g.pieceMoves(i)
		captures = append(captures, c...)
		plain = append(plain, p...)
	}
	if len(captures) > 0 {
		return captures
	}
	return plain
}

func (g *checkers) MakeMove(playerID string, move json.RawMessage) (State, error) {
	if g.status == StatusFinished {
		return g.State(), ErrGameOver
	}
	color, ok := g.colorFor(playerID)
	if !ok {
		return g.State(), fmt.Errorf("%w: unknown player %s", ErrIllegalMove, playerID)
	}
	if color != g.current {
		return g.State(), ErrNotYourTurn
	}
	var m CheckersMove
	if err := json.Unmarshal(move, &m); err != nil {
		return g.State(), fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	var chosen *ckCandidate
	for _, c := range g.legalMoves(color) {
		if c.from == m.From && c.to == m.To {
			cc := c
			chosen = &cc
			break
		}
	}
	if chosen == nil {
		return g.State(), fmt.Errorf("%w: %d->%d", ErrIllegalMove, m.From, m.To)
	}

	g.apply(*chosen)
	return g.State(), nil
}

func (g *checkers) apply(c ckCandidate) {
	p := g.board[c.from]
	g.board[c.from] = nil
	g.board[c.to] = p
	if c.captured >= 0 {
		g.board[c.captured] = nil
	}
	// promotion happens immediately, even mid-chain
	row := c.to / 8
	if !p.king && ((p.color == 'w' && row == 0) || (p.color == 'b' && row == 7)) {
		p.king = true
	}

	if c.captured >= 0 {
		if caps, _ := g.pieceMoves(c.to); len(caps) > 0 {
			g.chainFrom = c.to
			return // same player continues the chain
		}
	}
	g.chainFrom = -1
	next := ckOpponent(g.current)
	if len(g.legalMovesFor(next)) == 0 {
		g.status = StatusFinished
		g.winner = &Winner{PlayerID: g.playerFor(g.current).ID, Reason: ReasonWin}
		return
	}
	g.current = next
}

// legalMovesFor ignores any open chain, for probing the opponent.
func (g *checkers) legalMovesFor(color byte) []ckCandidate {
	saved := g.chainFrom
	g.chainFrom = -1
	moves := g.legalMoves(color)
	g.chainFrom = saved
	return moves
}

func (g *checkers) State() State {
	board := make([]any, 64)
	for i, p := range g.board {
		if p == nil {
			continue
		}
		color := "white"
		if p.color == 'b' {
			color = "black"
		}
		board[i] = map[string]any{"color": color, "king": p.king}
	}
	moves := g.legalMoves(g.current)
	possible := make([]CheckersMove, 0, len(moves))
	mustCapture := false
	for _, c := range moves {
		possible = append(possible, CheckersMove{From: c.from, To: c.to})
		if c.captured >= 0 {
			mustCapture = true
		}
	}
	meta := map[string]any{
		"colors":        map[string]string{g.white.ID: "white", g.black.ID: "black"},
		"possibleMoves": possible,
		"mustCapture":   mustCapture,
	}
	if g.chainFrom >= 0 {
		meta["chainFrom"] = g.chainFrom
	}
	return State{
		GameType:        Checkers,
		Board:           board,
		Players:         []Player{g.white, g.black},
		CurrentPlayerID: g.playerFor(g.current).ID,
		Status:          g.status,
		Winner:          g.winner,
		Meta:            meta,
	}
}

func (g *checkers) IsBotTurn() bool {
	return g.status == StatusInProgress && IsBot(g.playerFor(g.current).ID)
}

// BotMove prefers captures, then promoting moves, then a random legal
// move. Forced captures already dominate when present.
func (g *checkers) BotMove() (json.RawMessage, error) {
	if g.status == StatusFinished {
		return nil, ErrGameOver
	}
	moves := g.legalMoves(g.current)
	if len(moves) == 0 {
		return nil, fmt.Errorf("%w: no legal moves", ErrIllegalMove)
	}
	var captures, promoting []ckCandidate
	for _, c := range moves {
		if c.captured >= 0 {
			captures = append(captures, c)
		}
		p := g.board[c.from]
		row := c.to / 8
		if p != nil && !p.king && ((p.color == 'w' && row == 0) || (p.color == 'b' && row == 7)) {
			promoting = append(promoting, c)
		}
	}
	pick := moves
	if len(captures) > 0 {
		pick = captures
	} else if len(promoting) > 0 {
		pick = promoting
	}
	c := pick[rand.Intn(len(pick))]
	return json.Marshal(CheckersMove{From: c.from, To: c.to})
}

func ckOpponent(color byte) byte {
	if color == 'w' {
		return 'b'
	}
	return 'w'
}
