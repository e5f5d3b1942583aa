package games

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
)

// Board encoding: points 0..23. White travels towards 23, black towards
// 0. Sentinel squares mirror that direction:
const (
	bgBarWhite = -1
	bgBarBlack = 24
	bgOffWhite = 24
	bgOffBlack = -1
)

// BackgammonMove is one checker displacement. A turn is submitted as an
// ordered slice of these and must consume the dice maximally.
type BackgammonMove struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type bgPoint struct {
	owner byte // 'w', 'b' or 0
	count int
}

// bgBoard has value semantics so sequence search can fork cheaply.
type bgBoard struct {
	points     [24]bgPoint
	barW, barB int
	offW, offB int
}

type backgammon struct {
	bgBoard
	white, black Player
	current      byte
	dice         [2]int
	movesLeft    []int
	sequences    [][]BackgammonMove // legal maximal sequences for current roll
	status       string
	winner       *Winner
}

// NewBackgammon sets the standard start position, assigns sides
// randomly and resolves the opening roll-off: both players roll one
// die, ties reroll, and the higher roller moves first using the
// roll-off dice.
func NewBackgammon(p1, p2 Player) Game {
	g := &backgammon{status: StatusInProgress}
	if rand.Intn(2) == 0 {
		g.white, g.black = p1, p2
	} else {
		g.white, g.black = p2, p1
	}
	place := func(idx, count int, owner byte) {
		g.points[idx] = bgPoint{owner: owner, count: count}
	}
	place(0, 2, 'w')
	place(11, 5, 'w')
	place(16, 3, 'w')
	place(18, 5, 'w')
	place(23, 2, 'b')
	place(12, 5, 'b')
	place(7, 3, 'b')
	place(5, 5, 'b')

	a, b := rollDie(), rollDie()
	for a == b {
		a, b = rollDie(), rollDie()
	}
	g.current = 'w'
	if b > a {
		g.current = 'b'
	}
	g.dice = [2]int{a, b}
	g.movesLeft = []int{a, b}
	g.computeSequences()
	return g
}

func rollDie() int { return rand.Intn(6) + 1 }

func (g *backgammon) playerFor(color byte) Player {
	if color == 'w' {
		return g.white
	}
	return g.black
}

func (g *backgammon) colorFor(playerID string) (byte, bool) {
	switch playerID {
	case g.white.ID:
		return 'w', true
	case g.black.ID:
		return 'b', true
	}
	return 0, false
}

// landable reports whether color may land on point idx: open, own, or a
// lone opposing blot.
func (b bgBoard) landable(color byte, idx int) bool {
	p := b.points[idx]
	return p.owner == 0 || p.owner == color || p.count == 1
}

func (b bgBoard) allHome(color byte) bool {
	if color == 'w' {
		if b.barW > 0 {
			return false
		}
		for i := 0; i < 18; i++ {
			if b.points[i].owner == 'w' && b.points[i].count > 0 {
				return false
			}
		}
		return true
	}
	if b.barB > 0 {
		return false
	}
	for i := 6; i < 24; i++ {
		if b.points[i].owner == 'b' && b.points[i].count > 0 {
			return false
		}
	}
	return true
}

// singles enumerates every legal single-die move for color with die.
// Bar checkers must enter before anything else may move.
func (b bgBoard) singles(color byte, die int) []BackgammonMove {
	var out []BackgammonMove
	if color == 'w' {
		if b.barW > 0 {
			to := die - 1
			if b.landable('w', to) {
				out = append(out, BackgammonMove{From: bgBarWhite, To: to})
			}
			return out
		}
		for from := 0; from < 24; from++ {
			if b.points[from].owner != 'w' || b.points[from].count == 0 {
				continue
			}
			to := from + die
			if to < 24 {
				if b.landable('w', to) {
					out = append(out, BackgammonMove{From: from, To: to})
				}
				continue
			}
			if !b.allHome('w') {
				continue
			}
			if to == 24 {
				out = append(out, BackgammonMove{From: from, To: bgOffWhite})
				continue
			}
			// overshoot: only the rearmost checker may bear off
			rearmost := true
			for i := 18; i < from; i++ {
				if b.points[i].owner == 'w' && b.points[i].count > 0 {
					rearmost = false
					break
				}
			}
			if rearmost {
				out = append(out, BackgammonMove{From: from, To: bgOffWhite})
			}
		}
		return out
	}

	if b.barB > 0 {
		to := 24 - die
		if b.landable('b', to) {
			out = append(out, BackgammonMove{From: bgBarBlack, To: to})
		}
		return out
	}
	for from := 23; from >= 0; from-- {
		if b.points[from].owner != 'b' || b.points[from].count == 0 {
			continue
		}
		to := from - die
		if to >= 0 {
			if b.landable('b', to) {
				out = append(out, BackgammonMove{From: from, To: to})
			}
			continue
		}
		if !b.allHome('b') {
			continue
		}
		if to == -1 {
			out = append(out, BackgammonMove{From: from, To: bgOffBlack})
			continue
		}
		rearmost := true
		for i := 5; i > from; i-- {
			if b.points[i].owner == 'b' && b.points[i].count > 0 {
				rearmost = false
				break
			}
		}
		if rearmost {
			out = append(out, BackgammonMove{From: from, To: bgOffBlack})
		}
	}
	return out
}

// apply plays one single move on a copy and returns it. Blots are sent
// to the bar.
func (b bgBoard) apply(color byte, m BackgammonMove) bgBoard {
	// lift
	switch {
	case m.From == bgBarWhite && color == 'w':
		b.barW--
	case m.From == bgBarBlack && color == 'b':
		b.barB--
	default:
		b.points[m.From].count--
		if b.points[m.From].count == 0 {
			b.points[m.From].owner = 0
		}
	}
	// bear off
	if (color == 'w' && m.To == bgOffWhite) || (color == 'b' && m.To == bgOffBlack) {
		if color == 'w' {
			b.offW++
		} else {
			b.offB++
		}
		return b
	}
	// hit
	p := b.points[m.To]
	if p.owner != 0 && p.owner != color {
		if p.owner == 'w' {
			b.barW++
		} else {
			b.barB++
		}
		b.points[m.To] = bgPoint{}
	}
	b.points[m.To].owner = color
	b.points[m.To].count++
	return b
}

// computeSequences regenerates the legal maximal sequences for the
// current roll. Both die orderings are searched; only sequences that
// use the most dice possible are kept.
func (g *backgammon) computeSequences() {
	orderings := [][]int{append([]int(nil), g.movesLeft...)}
	if len(g.movesLeft) == 2 && g.movesLeft[0] != g.movesLeft[1] {
		orderings = append(orderings, []int{g.movesLeft[1], g.movesLeft[0]})
	}
	var all [][]BackgammonMove
	var dfs func(b bgBoard, dice []int, prefix []BackgammonMove)
	dfs = func(b bgBoard, dice []int, prefix []BackgammonMove) {
		if len(dice) == 0 {
			all = append(all, append([]BackgammonMove(nil), prefix...))
			return
		}
		moves := b.singles(g.current, dice[0])
		if len(moves) == 0 {
			all = append(all, append([]BackgammonMove(nil), prefix...))
			return
		}
		for _, m := range moves {
			dfs(b.apply(g.current, m), dice[1:], append(prefix, m))
		}
	}
	for _, ord := range orderings {
		dfs(g.bgBoard, ord, nil)
	}

	longest := 0
	for _, s := range all {
		if len(s) > longest {
			longest = len(s)
		}
	}
	seen := map[string]bool{}
	g.sequences = nil
	for _, s := range all {
		if len(s) != longest || longest == 0 {
			continue
		}
		key := bgKey(s)
		if !seen[key] {
			seen[key] = true
			g.sequences = append(g.sequences, s)
		}
	}
}

func bgKey(s []BackgammonMove) string {
	var sb strings.Builder
	for _, m := range s {
		fmt.Fprintf(&sb, "%d>%d;", m.From, m.To)
	}
	return sb.String()
}

// MakeMove consumes a whole turn: an ordered sequence that must match
// one of the precomputed maximal sequences exactly. An empty sequence
// is accepted only when the roll is dead.
func (g *backgammon) MakeMove(playerID string, move json.RawMessage) (State, error) {
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
	var seq []BackgammonMove
	if err := json.Unmarshal(move, &seq); err != nil {
		return g.State(), fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	if len(g.sequences) == 0 {
		if len(seq) != 0 {
			return g.State(), fmt.Errorf("%w: no moves available, expected pass", ErrIllegalMove)
		}
		g.endTurn()
		return g.State(), nil
	}
	match := false
	key := bgKey(seq)
	for _, s := range g.sequences {
		if bgKey(s) == key {
			match = true
			break
		}
	}
	if !match {
		return g.State(), fmt.Errorf("%w: sequence does not use the dice maximally", ErrIllegalMove)
	}
	for _, m := range seq {
		g.bgBoard = g.bgBoard.apply(color, m)
	}
	if (color == 'w' && g.offW == 15) || (color == 'b' && g.offB == 15) {
		g.status = StatusFinished
		g.winner = &Winner{PlayerID: g.playerFor(color).ID, Reason: ReasonWin}
		g.sequences = nil
		g.movesLeft = nil
		return g.State(), nil
	}
	g.endTurn()
	return g.State(), nil
}

// endTurn flips the turn and rolls for the next player. Dead rolls pass
// automatically, bounded to avoid spinning on a blocked board.
func (g *backgammon) endTurn() {
	for i := 0; i < 50; i++ {
		g.current = bgOpponent(g.current)
		a, b := rollDie(), rollDie()
		g.dice = [2]int{a, b}
		if a == b {
			g.movesLeft = []int{a, a, a, a}
		} else {
			g.movesLeft = []int{a, b}
		}
		g.computeSequences()
		if len(g.sequences) > 0 {
			return
		}
	}
}

func (g *backgammon) State() State {
	board := make([]any, 24)
	for i, p := range g.points {
		if p.count == 0 {
			continue
		}
		color := "white"
		if p.owner == 'b' {
			color = "black"
		}
		board[i] = map[string]any{"color": color, "count": p.count}
	}
	seqs := g.sequences
	if seqs == nil {
		seqs = [][]BackgammonMove{}
	}
	return State{
		GameType:        Backgammon,
		Board:           board,
		Players:         []Player{g.white, g.black},
		CurrentPlayerID: g.playerFor(g.current).ID,
		Status:          g.status,
		Winner:          g.winner,
		Meta: map[string]any{
			"colors":            map[string]string{g.white.ID: "white", g.black.ID: "black"},
			"dice":              g.dice,
			"movesLeft":         g.movesLeft,
			"bar":               map[string]int{"white": g.barW, "black": g.barB},
			"off":               map[string]int{"white": g.offW, "black": g.offB},
			"possibleSequences": seqs,
		},
	}
}

func (g *backgammon) IsBotTurn() bool {
	return g.status == StatusInProgress && IsBot(g.playerFor(g.current).ID)
}

// BotMove plays a random maximal sequence.
func (g *backgammon) BotMove() (json.RawMessage, error) {
	if g.status == StatusFinished {
		return nil, ErrGameOver
	}
	if len(g.sequences) == 0 {
		return json.Marshal([]BackgammonMove{})
	}
	return json.Marshal(g.sequences[rand.Intn(len(g.sequences))])
}

func bgOpponent(color byte) byte {
	if color == 'w' {
		return 'b'
	}
	return 'w'
}
