// Package events fans live game events out to connected clients.
package events

// Envelope is the wire frame for every pushed event.
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Event names pushed to clients.
const (
	GameStart          = "game:start"
	GameUpdate         = "game:update"
	GameEnd            = "game:end"
	RematchOffer       = "rematch:offer"
	RematchExpired     = "rematch:expired"
	RoomClosed         = "room:closed"
	TournamentStart    = "tournament:start"
	TournamentUpdate   = "tournament:update"
	TournamentRematch  = "tournament:rematch"
	TournamentFinished = "tournament:finished"
)

// Emitter is the push side used by the services. Delivery is best
// effort; a slow or dead client never blocks game progress.
type Emitter interface {
	ToUser(userID, event string, payload any)
	ToRoom(roomID, event string, payload any)
	JoinRoom(roomID, userID string)
	LeaveRoom(roomID, userID string)
	DropRoom(roomID string)
}
