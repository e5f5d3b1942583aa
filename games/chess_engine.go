package games

import (
	"github.com/notnil/chess"
)

// notnilEngine adapts github.com/notnil/chess to ChessEngine.
type notnilEngine struct {
	game *chess.Game
}

// NewChessEngine returns a full-rules chess engine at the start
// position.
func NewChessEngine() ChessEngine {
	return &notnilEngine{game: chess.NewGame()}
}

func (e *notnilEngine) LegalMoves() []string {
	valid := e.game.ValidMoves()
	out := make([]string, 0, len(valid))
	for _, m := range valid {
		out = append(out, m.String())
	}
	return out
}

func (e *notnilEngine) ApplyMove(uci string) error {
	mv, err := chess.UCINotation{}.Decode(e.game.Position(), uci)
	if err != nil {
		return err
	}
	return e.game.Move(mv)
}

func (e *notnilEngine) Turn() byte {
	if e.game.Position().Turn() == chess.White {
		return 'w'
	}
	return 'b'
}

func (e *notnilEngine) IsCheckmate() bool {
	return e.game.Method() == chess.Checkmate
}

func (e *notnilEngine) IsDraw() bool {
	return e.game.Outcome() == chess.Draw
}

func (e *notnilEngine) FEN() string {
	return e.game.FEN()
}

func (e *notnilEngine) History() []string {
	out := make([]string, 0, len(e.game.Moves()))
	for _, m := range e.game.Moves() {
		out = append(out, m.String())
	}
	return out
}
