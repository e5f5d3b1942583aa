package games

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptyBackgammon(whiteID, blackID string) *backgammon {
	return &backgammon{
		white:   Player{ID: whiteID, Username: whiteID},
		black:   Player{ID: blackID, Username: blackID},
		current: 'w',
		status:  StatusInProgress,
	}
}

func bgSeq(moves ...BackgammonMove) json.RawMessage {
	b, _ := json.Marshal(moves)
	return b
}

func TestBackgammonOpening(t *testing.T) {
	g := NewBackgammon(Player{ID: "a"}, Player{ID: "b"}).(*backgammon)

	whiteTotal, blackTotal := 0, 0
	for _, p := range g.points {
		if p.owner == 'w' {
			whiteTotal += p.count
		}
		if p.owner == 'b' {
			blackTotal += p.count
		}
	}
	assert.Equal(t, 15, whiteTotal)
	assert.Equal(t, 15, blackTotal)
	assert.NotEqual(t, g.dice[0], g.dice[1], "opening roll-off never starts on doubles")
	assert.NotEmpty(t, g.sequences, "opening position always has legal sequences")
}

func TestBackgammonBarEntryFirst(t *testing.T) {
	g := emptyBackgammon("alice", "bob")
	g.barW = 1
	g.points[10] = bgPoint{owner: 'w', count: 2}
	g.points[2] = bgPoint{owner: 'b', count: 2} // entry with the 3 is blocked
	g.points[20] = bgPoint{owner: 'b', count: 2}
	g.movesLeft = []int{3, 5}
	g.dice = [2]int{3, 5}
	g.computeSequences()

	require.NotEmpty(t, g.sequences)
	for _, seq := range g.sequences {
		assert.Equal(t, bgBarWhite, seq[0].From, "the bar checker must enter before anything else moves")
		assert.Equal(t, 4, seq[0].To)
	}
}

func TestBackgammonMaximalDiceUse(t *testing.T) {
	g := emptyBackgammon("alice", "bob")
	// only the 3-then-2 order plays anything beyond one die; the lone
	// checker is stuck if the 2 is tried first
	g.points[0] = bgPoint{owner: 'w', count: 1}
	g.points[2] = bgPoint{owner: 'b', count: 2}
	g.points[5] = bgPoint{owner: 'b', count: 2}
	g.movesLeft = []int{2, 3}
	g.dice = [2]int{2, 3}
	g.computeSequences()

	require.Len(t, g.sequences, 1)
	assert.Equal(t, []BackgammonMove{{From: 0, To: 3}}, g.sequences[0])

	// a shorter submission than the maximum is rejected
	_, err := g.MakeMove("alice", bgSeq())
	assert.ErrorIs(t, err, ErrIllegalMove)
}

func TestBackgammonRejectsPartialSequence(t *testing.T) {
	g := emptyBackgammon("alice", "bob")
	g.points[0] = bgPoint{owner: 'w', count: 2}
	g.points[23] = bgPoint{owner: 'b', count: 2}
	g.movesLeft = []int{1, 2}
	g.dice = [2]int{1, 2}
	g.computeSequences()

	for _, seq := range g.sequences {
		require.Len(t, seq, 2)
	}
	_, err := g.MakeMove("alice", bgSeq(BackgammonMove{From: 0, To: 1}))
	assert.ErrorIs(t, err, ErrIllegalMove)
}

func TestBackgammonHitSendsBlotToBar(t *testing.T) {
	g := emptyBackgammon("alice", "bob")
	b := g.bgBoard
	b.points[0] = bgPoint{owner: 'w', count: 1}
	b.points[3] = bgPoint{owner: 'b', count: 1}

	after := b.apply('w', BackgammonMove{From: 0, To: 3})
	assert.Equal(t, 1, after.barB)
	assert.Equal(t, byte('w'), after.points[3].owner)
	assert.Equal(t, 1, after.points[3].count)
}

func TestBackgammonBearOffWithLargerDie(t *testing.T) {
	g := emptyBackgammon("alice", "bob")
	g.points[19] = bgPoint{owner: 'w', count: 1}
	g.offW = 14
	g.points[0] = bgPoint{owner: 'b', count: 2}
	g.movesLeft = []int{6, 5}
	g.dice = [2]int{6, 5}
	g.computeSequences()

	require.Len(t, g.sequences, 1)
	require.Len(t, g.sequences[0], 1)
	assert.Equal(t, bgOffWhite, g.sequences[0][0].To)

	state, err := g.MakeMove("alice", bgSeq(g.sequences[0][0]))
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, state.Status)
	require.NotNil(t, state.Winner)
	assert.Equal(t, "alice", state.Winner.PlayerID)
}

func TestBackgammonOvershootOnlyForRearmost(t *testing.T) {
	g := emptyBackgammon("alice", "bob")
	g.points[18] = bgPoint{owner: 'w', count: 1}
	g.points[21] = bgPoint{owner: 'w', count: 1}
	g.offW = 13

	moves := g.bgBoard.singles('w', 5)
	for _, m := range moves {
		if m.To == bgOffWhite {
			assert.Equal(t, 21, m.From, "only exact bear-off allowed while a rearmost checker remains")
		}
	}
	// 18+5 = 23 is a plain move, 21+5 overshoots but 18 is still behind
	var offFroms []int
	for _, m := range moves {
		if m.To == bgOffWhite {
			offFroms = append(offFroms, m.From)
		}
	}
	assert.Empty(t, offFroms)
}

func TestBackgammonBotPlaysMaximalSequence(t *testing.T) {
	g := NewBackgammon(Player{ID: "bot-7"}, Player{ID: "b"}).(*backgammon)
	g.white = Player{ID: "bot-7", Username: "bot"}
	g.black = Player{ID: "human", Username: "human"}
	if g.current == 'b' {
		g.current = 'w'
		g.computeSequences()
	}

	mv, err := g.BotMove()
	require.NoError(t, err)
	var seq []BackgammonMove
	require.NoError(t, json.Unmarshal(mv, &seq))

	want := len(g.sequences[0])
	assert.Equal(t, want, len(seq))
	_, err = g.MakeMove("bot-7", mv)
	assert.NoError(t, err)
}
