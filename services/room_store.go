package services

import (
	"sync"
	"time"

	"game-match-system/games"
)

// Room is one live match container. Rooms are purely in-memory; the
// durable record of a finished game is its GameHistory row and ledger
// entries.
type Room struct {
	ID       string
	GameType string
	Bet      float64

	Host  *games.Player
	Guest *games.Player
	Game  games.Game

	// Settled flips exactly once, when the terminal state has been
	// paid out and recorded.
	Settled    bool
	CreatedAt  time.Time
	FinishedAt *time.Time

	matchTimer *time.Timer
	rematch    *rematchOffer
}

type rematchOffer struct {
	from  games.Player
	timer *time.Timer
}

func (r *Room) opponentOf(playerID string) *games.Player {
	if r.Host != nil && r.Host.ID != playerID {
		return r.Host
	}
	if r.Guest != nil && r.Guest.ID != playerID {
		return r.Guest
	}
	return nil
}

func (r *Room) has(playerID string) bool {
	return (r.Host != nil && r.Host.ID == playerID) ||
		(r.Guest != nil && r.Guest.ID == playerID)
}

// cancelTimers stops any pending matchmaking or rematch timer. Callers
// hold the store lock.
func (r *Room) cancelTimers() {
	if r.matchTimer != nil {
		r.matchTimer.Stop()
		r.matchTimer = nil
	}
	if r.rematch != nil {
		r.rematch.timer.Stop()
		r.rematch = nil
	}
}

// RoomStore holds all live rooms behind one mutex. Every compound
// operation in RoomService runs under it, which keeps room lifecycle
// transitions (join vs. bot-match timer, move vs. disconnect) serial.
type RoomStore struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

func NewRoomStore() *RoomStore {
	return &RoomStore{rooms: make(map[string]*Room)}
}

func (st *RoomStore) get(id string) *Room { return st.rooms[id] }

func (st *RoomStore) put(r *Room) { st.rooms[r.ID] = r }

func (st *RoomStore) remove(id string) {
	if r := st.rooms[id]; r != nil {
		r.cancelTimers()
		delete(st.rooms, id)
	}
}

// Len reports the number of live rooms.
func (st *RoomStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.rooms)
}
