package games

import (
	"encoding/json"
	"fmt"
	"math/rand"
)

var tttLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // columns
	{0, 4, 8}, {2, 4, 6}, // diagonals
}

type ticTacToe struct {
	board   [9]byte // 'X', 'O' or 0
	playerX Player
	playerO Player
	current byte
	status  string
	winner  *Winner
}

// NewTicTacToe pairs two players on an empty grid. Symbols are assigned
// randomly; X always moves first.
func NewTicTacToe(p1, p2 Player) Game {
	g := &ticTacToe{current: 'X', status: StatusInProgress}
	if rand.Intn(2) == 0 {
		g.playerX, g.playerO = p1, p2
	} else {
		g.playerX, g.playerO = p2, p1
	}
	return g
}

func (g *ticTacToe) playerFor(sym byte) Player {
	if sym == 'X' {
		return g.playerX
	}
	return g.playerO
}

func (g *ticTacToe) symbolFor(playerID string) (byte, bool) {
	switch playerID {
	case g.playerX.ID:
		return 'X', true
	case g.playerO.ID:
		return 'O', true
	}
	return 0, false
}

// MakeMove places the mover's symbol. The move payload is the cell
// index 0..8 as a JSON number.
func (g *ticTacToe) MakeMove(playerID string, move json.RawMessage) (State, error) {
	if g.status == StatusFinished {
		return g.State(), ErrGameOver
	}
	sym, ok := g.symbolFor(playerID)
	if !ok {
		return g.State(), fmt.Errorf("%w: unknown player %s", ErrIllegalMove, playerID)
	}
	if sym != g.current {
		return g.State(), ErrNotYourTurn
	}
	var cell int
	if err := json.Unmarshal(move, &cell); err != nil {
		return g.State(), fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	if cell < 0 || cell > 8 || g.board[cell] != 0 {
		return g.State(), fmt.Errorf("%w: cell %d not playable", ErrIllegalMove, cell)
	}

	g.board[cell] = sym
	if winnerSym := tttWinner(g.board); winnerSym != 0 {
		g.status = StatusFinished
		g.winner = &Winner{PlayerID: g.playerFor(winnerSym).ID, Reason: ReasonWin}
	} else if tttFull(g.board) {
		g.status = StatusFinished
		g.winner = &Winner{Reason: ReasonDraw}
	} else {
		g.current = tttOpponent(sym)
	}
	return g.State(), nil
}

func (g *ticTacToe) State() State {
	cells := make([]string, 9)
	for i, c := range g.board {
		if c != 0 {
			cells[i] = string(c)
		}
	}
	return State{
		GameType:        TicTacToe,
		Board:           cells,
		Players:         []Player{g.playerX, g.playerO},
		CurrentPlayerID: g.playerFor(g.current).ID,
		Status:          g.status,
		Winner:          g.winner,
		Meta: map[string]any{
			"symbols": map[string]string{g.playerX.ID: "X", g.playerO.ID: "O"},
		},
	}
}

func (g *ticTacToe) IsBotTurn() bool {
	return g.status == StatusInProgress && IsBot(g.playerFor(g.current).ID)
}

// BotMove plays perfectly via minimax, preferring faster wins and
// slower losses.
func (g *ticTacToe) BotMove() (json.RawMessage, error) {
	if g.status == StatusFinished {
		return nil, ErrGameOver
	}
	best, bestScore := -1, -1000
	board := g.board
	for i := 0; i < 9; i++ {
		if board[i] != 0 {
			continue
		}
		board[i] = g.current
		score := tttMinimax(board, tttOpponent(g.current), g.current, 1)
		board[i] = 0
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return nil, fmt.Errorf("%w: no empty cell", ErrIllegalMove)
	}
	return json.Marshal(best)
}

func tttMinimax(board [9]byte, toMove, me byte, depth int) int {
	if w := tttWinner(board); w != 0 {
		if w == me {
			return 10 - depth
		}
		return depth - 10
	}
	if tttFull(board) {
		return 0
	}
	best := -1000
	if toMove != me {
		best = 1000
	}
	for i := 0; i < 9; i++ {
		if board[i] != 0 {
			continue
		}
		board[i] = toMove
		score := tttMinimax(board, tttOpponent(toMove), me, depth+1)
		board[i] = 0
		if toMove == me && score > best {
			best = score
		}
		if toMove != me && score < best {
			best = score
		}
	}
	return best
}

func tttWinner(board [9]byte) byte {
	for _, l := range tttLines {
		if board[l[0]] != 0 && board[l[0]] == board[l[1]] && board[l[1]] == board[l[2]] {
			return board[l[0]]
		}
	}
	return 0
}

func tttFull(board [9]byte) bool {
	for _, c := range board {
		if c == 0 {
			return false
		}
	}
	return true
}

func tttOpponent(sym byte) byte {
	if sym == 'X' {
		return 'O'
	}
	return 'X'
}
