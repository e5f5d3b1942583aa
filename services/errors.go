package services

import "errors"

// Sentinel errors the handlers translate to HTTP statuses.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrKycRequired       = errors.New("kyc approval required")
	ErrRoomFull          = errors.New("room already has two players")
	ErrGameNotStarted    = errors.New("game has not started")
	ErrGameInProgress    = errors.New("game still in progress")
	ErrRematchPending    = errors.New("rematch offer already pending")
	ErrNoRematchOffer    = errors.New("no rematch offer pending")
	ErrAlreadyJoined     = errors.New("already joined")
	ErrTournamentFull    = errors.New("tournament is full")
	ErrTournamentState   = errors.New("tournament is not in the required state")
	ErrNotParticipant    = errors.New("not a participant of this match")
)
