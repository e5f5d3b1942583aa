package games

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTTT(xID, oID string) *ticTacToe {
	return &ticTacToe{
		playerX: Player{ID: xID, Username: xID},
		playerO: Player{ID: oID, Username: oID},
		current: 'X',
		status:  StatusInProgress,
	}
}

func cell(n int) json.RawMessage {
	b, _ := json.Marshal(n)
	return b
}

func TestTicTacToeWin(t *testing.T) {
	g := newTTT("alice", "bob")

	for _, mv := range []struct {
		player string
		cell   int
	}{
		{"alice", 0}, {"bob", 3}, {"alice", 1}, {"bob", 4},
	} {
		_, err := g.MakeMove(mv.player, cell(mv.cell))
		require.NoError(t, err)
	}
	state, err := g.MakeMove("alice", cell(2))
	require.NoError(t, err)

	assert.Equal(t, StatusFinished, state.Status)
	require.NotNil(t, state.Winner)
	assert.Equal(t, "alice", state.Winner.PlayerID)
	assert.Equal(t, ReasonWin, state.Winner.Reason)

	_, err = g.MakeMove("bob", cell(5))
	assert.ErrorIs(t, err, ErrGameOver)
}

func TestTicTacToeDraw(t *testing.T) {
	g := newTTT("alice", "bob")

	// X O X / X O O / O X X
	moves := []struct {
		player string
		cell   int
	}{
		{"alice", 0}, {"bob", 1}, {"alice", 2},
		{"bob", 4}, {"alice", 3}, {"bob", 5},
		{"alice", 7}, {"bob", 6}, {"alice", 8},
	}
	var state State
	for _, mv := range moves {
		var err error
		state, err = g.MakeMove(mv.player, cell(mv.cell))
		require.NoError(t, err)
	}
	assert.Equal(t, StatusFinished, state.Status)
	require.NotNil(t, state.Winner)
	assert.Empty(t, state.Winner.PlayerID)
	assert.Equal(t, ReasonDraw, state.Winner.Reason)
}

func TestTicTacToeRejectsBadMoves(t *testing.T) {
	g := newTTT("alice", "bob")

	_, err := g.MakeMove("bob", cell(0))
	assert.ErrorIs(t, err, ErrNotYourTurn)

	_, err = g.MakeMove("alice", cell(9))
	assert.ErrorIs(t, err, ErrIllegalMove)

	_, err = g.MakeMove("carol", cell(0))
	assert.ErrorIs(t, err, ErrIllegalMove)

	_, err = g.MakeMove("alice", cell(4))
	require.NoError(t, err)
	_, err = g.MakeMove("bob", cell(4))
	assert.ErrorIs(t, err, ErrIllegalMove)
}

func TestTicTacToeBotBlocksThreat(t *testing.T) {
	g := newTTT("alice", "bot-1")
	// alice threatens 0-1-2; bot must block at 2
	g.board[0], g.board[1] = 'X', 'X'
	g.board[4] = 'O'
	g.current = 'O'

	require.True(t, g.IsBotTurn())
	mv, err := g.BotMove()
	require.NoError(t, err)
	var c int
	require.NoError(t, json.Unmarshal(mv, &c))
	assert.Equal(t, 2, c)
}

func TestTicTacToeBotTakesCenter(t *testing.T) {
	g := newTTT("alice", "bot-1")
	// against a corner opening only the center holds the draw
	g.board[0] = 'X'
	g.current = 'O'

	require.True(t, g.IsBotTurn())
	mv, err := g.BotMove()
	require.NoError(t, err)
	var c int
	require.NoError(t, json.Unmarshal(mv, &c))
	assert.Equal(t, 4, c)
}

func TestTicTacToeBotTakesWinOverBlock(t *testing.T) {
	g := newTTT("alice", "bot-1")
	// bot can win at 5; blocking at 2 would be a mistake
	g.board[0], g.board[1] = 'X', 'X'
	g.board[3], g.board[4] = 'O', 'O'
	g.current = 'O'

	mv, err := g.BotMove()
	require.NoError(t, err)
	var c int
	require.NoError(t, json.Unmarshal(mv, &c))
	assert.Equal(t, 5, c)

	state, err := g.MakeMove("bot-1", mv)
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, state.Status)
	assert.Equal(t, "bot-1", state.Winner.PlayerID)
}
