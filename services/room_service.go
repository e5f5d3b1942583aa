package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"game-match-system/events"
	"game-match-system/games"
	"game-match-system/models"
)

// Matchmaking defaults, overridable through config.
const (
	DefaultMatchmakingTimeout = 10 * time.Second
	DefaultRematchWindow      = 5 * time.Second
)

// maxBotTurns bounds a bot-vs-bot move chain inside one call.
const maxBotTurns = 256

// RoomSummary is the lobby view of a room awaiting an opponent.
type RoomSummary struct {
	ID        string    `json:"id"`
	GameType  string    `json:"game_type"`
	Bet       float64   `json:"bet"`
	HostName  string    `json:"host_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RoomService runs the casual wagered match lifecycle: create, match
// (human or bot on timeout), play, settle, rematch. All room state
// lives in the store; the DB only sees money and history.
type RoomService struct {
	DB        *gorm.DB
	Financial *FinancialService
	Emitter   events.Emitter
	Store     *RoomStore

	MatchmakingTimeout time.Duration
	RematchWindow      time.Duration
}

func NewRoomService(db *gorm.DB, fin *FinancialService, em events.Emitter) *RoomService {
	return &RoomService{
		DB:                 db,
		Financial:          fin,
		Emitter:            em,
		Store:              NewRoomStore(),
		MatchmakingTimeout: DefaultMatchmakingTimeout,
		RematchWindow:      DefaultRematchWindow,
	}
}

// CreateRoom escrows the host's stake and opens a room. If nobody
// joins before the matchmaking timeout, a bot fills the seat.
func (s *RoomService) CreateRoom(host games.Player, gameType string, bet float64) (*Room, error) {
	if !games.ValidGameType(gameType) {
		return nil, fmt.Errorf("%w: game type %q", ErrNotFound, gameType)
	}
	if bet <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := s.Financial.DebitStake(host.ID, bet); err != nil {
		return nil, err
	}

	s.Store.mu.Lock()
	defer s.Store.mu.Unlock()
	room := &Room{
		ID:        uuid.NewString(),
		GameType:  gameType,
		Bet:       bet,
		Host:      &host,
		CreatedAt: time.Now(),
	}
	roomID := room.ID
	room.matchTimer = time.AfterFunc(s.MatchmakingTimeout, func() {
		s.matchWithBot(roomID)
	})
	s.Store.put(room)
	s.Emitter.JoinRoom(room.ID, host.ID)
	log.Printf("🎮 room created id=%s game=%s bet=%.2f host=%s", room.ID, gameType, bet, host.Username)
	return room, nil
}

// CreateOpenRoom opens a hostless lobby room with no stake escrowed
// yet. The first player to join takes the host seat and arms the
// matchmaking timer.
func (s *RoomService) CreateOpenRoom(gameType string, bet float64) (*Room, error) {
	if !games.ValidGameType(gameType) {
		return nil, fmt.Errorf("%w: game type %q", ErrNotFound, gameType)
	}
	if bet <= 0 {
		return nil, ErrInvalidAmount
	}
	s.Store.mu.Lock()
	defer s.Store.mu.Unlock()
	room := &Room{
		ID:        uuid.NewString(),
		GameType:  gameType,
		Bet:       bet,
		CreatedAt: time.Now(),
	}
	s.Store.put(room)
	log.Printf("🎮 open room created id=%s game=%s bet=%.2f", room.ID, gameType, bet)
	return room, nil
}

// ListRooms returns rooms still waiting for an opponent.
func (s *RoomService) ListRooms() []RoomSummary {
	s.Store.mu.Lock()
	defer s.Store.mu.Unlock()
	out := []RoomSummary{}
	for _, r := range s.Store.rooms {
		if r.Game != nil {
			continue
		}
		sum := RoomSummary{ID: r.ID, GameType: r.GameType, Bet: r.Bet, CreatedAt: r.CreatedAt}
		if r.Host != nil {
			sum.HostName = r.Host.Username
		}
		out = append(out, sum)
	}
	return out
}

// GetState returns the live state of a room's game.
func (s *RoomService) GetState(roomID string) (games.State, error) {
	s.Store.mu.Lock()
	defer s.Store.mu.Unlock()
	room := s.Store.get(roomID)
	if room == nil {
		return games.State{}, fmt.Errorf("%w: room %s", ErrNotFound, roomID)
	}
	if room.Game == nil {
		return games.State{}, ErrGameNotStarted
	}
	return room.Game.State(), nil
}

// JoinRoom escrows the joiner's stake and seats them: into the host
// seat of a hostless open room (returning a nil state while the room
// waits), otherwise as the guest, which starts the game.
func (s *RoomService) JoinRoom(roomID string, guest games.Player) (*games.State, error) {
	s.Store.mu.Lock()
	room := s.Store.get(roomID)
	if room == nil {
		s.Store.mu.Unlock()
		return nil, fmt.Errorf("%w: room %s", ErrNotFound, roomID)
	}
	if room.Game != nil || room.Guest != nil {
		s.Store.mu.Unlock()
		return nil, ErrRoomFull
	}
	if room.Host != nil && room.Host.ID == guest.ID {
		s.Store.mu.Unlock()
		return nil, ErrAlreadyJoined
	}
	bet := room.Bet
	s.Store.mu.Unlock()

	// escrow outside the store lock; the room may be bot-matched in
	// the meantime, so re-check before seating
	if err := s.Financial.DebitStake(guest.ID, bet); err != nil {
		return nil, err
	}

	s.Store.mu.Lock()
	defer s.Store.mu.Unlock()
	room = s.Store.get(roomID)
	if room == nil || room.Game != nil || room.Guest != nil ||
		(room.Host != nil && room.Host.ID == guest.ID) {
		if err := s.Financial.RefundStake(guest.ID, bet); err != nil {
			log.Printf("⚠️ refund after lost seat failed user=%s: %v", guest.ID, err)
		}
		return nil, ErrRoomFull
	}
	if room.Host == nil {
		host := guest
		room.Host = &host
		room.matchTimer = time.AfterFunc(s.MatchmakingTimeout, func() {
			s.matchWithBot(roomID)
		})
		s.Emitter.JoinRoom(room.ID, guest.ID)
		log.Printf("🎮 open room claimed id=%s host=%s", room.ID, guest.Username)
		return nil, nil
	}
	state, err := s.startGame(room, guest)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// startGame seats the guest and spins up the engine; store lock held.
func (s *RoomService) startGame(room *Room, guest games.Player) (games.State, error) {
	room.cancelTimers()
	room.Guest = &guest
	game, err := games.New(room.GameType, *room.Host, guest)
	if err != nil {
		return games.State{}, err
	}
	room.Game = game
	room.Settled = false
	room.FinishedAt = nil
	s.Emitter.JoinRoom(room.ID, guest.ID)
	state := game.State()
	s.Emitter.ToRoom(room.ID, events.GameStart, state)
	log.Printf("🎮 game started room=%s %s vs %s", room.ID, room.Host.Username, guest.Username)
	return s.driveBots(room, state)
}

// matchWithBot fires on matchmaking timeout. The room may have been
// joined or closed while the timer was in flight.
func (s *RoomService) matchWithBot(roomID string) {
	s.Store.mu.Lock()
	defer s.Store.mu.Unlock()
	room := s.Store.get(roomID)
	if room == nil || room.Game != nil || room.Host == nil {
		return
	}
	bot := games.NewBot()
	if _, err := s.startGame(room, bot); err != nil {
		log.Printf("⚠️ bot match failed room=%s: %v", roomID, err)
	}
}

// MakeMove applies one move for the player, then lets any bot
// opponent reply until it is a human's turn or the game ends.
func (s *RoomService) MakeMove(roomID, playerID string, move json.RawMessage) (games.State, error) {
	s.Store.mu.Lock()
	defer s.Store.mu.Unlock()
	room := s.Store.get(roomID)
	if room == nil {
		return games.State{}, fmt.Errorf("%w: room %s", ErrNotFound, roomID)
	}
	if room.Game == nil {
		return games.State{}, ErrGameNotStarted
	}
	if !room.has(playerID) {
		return games.State{}, ErrNotParticipant
	}
	state, err := room.Game.MakeMove(playerID, move)
	if err != nil {
		return state, err
	}
	// terminal states are only announced by finishGame, after the
	// settlement committed
	if state.Status != games.StatusFinished {
		s.Emitter.ToRoom(room.ID, events.GameUpdate, state)
	}
	return s.driveBots(room, state)
}

// driveBots plays bot turns synchronously until a human is to move or
// the game finishes; store lock held.
func (s *RoomService) driveBots(room *Room, state games.State) (games.State, error) {
	for i := 0; state.Status == games.StatusInProgress && room.Game.IsBotTurn(); i++ {
		if i >= maxBotTurns {
			return state, fmt.Errorf("bot turn limit reached in room %s", room.ID)
		}
		mv, err := room.Game.BotMove()
		if err != nil {
			return state, err
		}
		state, err = room.Game.MakeMove(state.CurrentPlayerID, mv)
		if err != nil {
			return state, err
		}
		if state.Status != games.StatusFinished {
			s.Emitter.ToRoom(room.ID, events.GameUpdate, state)
		}
	}
	if state.Status == games.StatusFinished {
		if err := s.finishGame(room, state); err != nil {
			return state, err
		}
	}
	return state, nil
}

// finishGame settles and records a terminal state exactly once.
// Settlement only moves money between two human players; games with a
// bot are recorded for the human's history but settle nothing.
func (s *RoomService) finishGame(room *Room, state games.State) error {
	if room.Settled {
		return nil
	}
	winner := state.Winner
	if winner == nil {
		return fmt.Errorf("finished game without winner info in room %s", room.ID)
	}
	p1, p2 := *room.Host, *room.Guest
	humanMatch := !games.IsBot(p1.ID) && !games.IsBot(p2.ID)
	prize := 2 * room.Bet * (1 - s.Financial.CommissionRate)
	fee := room.Bet * s.Financial.CommissionRate

	if humanMatch {
		if winner.PlayerID == "" {
			if err := s.Financial.SettleDraw(p1.ID, p2.ID, room.Bet, room.ID); err != nil {
				return fmt.Errorf("draw settlement failed: %w", err)
			}
		} else {
			opp := room.opponentOf(winner.PlayerID)
			if err := s.Financial.SettleMatch(winner.PlayerID, opp.ID, room.Bet, room.ID); err != nil {
				return fmt.Errorf("settlement failed: %w", err)
			}
		}
	}

	history := models.GameHistory{
		ID:       uuid.NewString(),
		RoomID:   room.ID,
		GameType: room.GameType,
		Wager:    room.Bet,
	}
	for _, p := range []games.Player{p1, p2} {
		res := models.GameHistoryResult{
			ID:       uuid.NewString(),
			PlayerID: p.ID,
			Username: p.Username,
		}
		switch {
		case winner.PlayerID == "":
			res.Result = models.ResultDraw
			if humanMatch {
				res.Amount = -fee
			}
		case winner.PlayerID == p.ID:
			res.Result = models.ResultWin
			if humanMatch {
				res.Amount = prize - room.Bet
			}
		default:
			res.Result = models.ResultLoss
			if humanMatch {
				res.Amount = -room.Bet
			}
		}
		history.Results = append(history.Results, res)
	}
	if err := s.DB.Create(&history).Error; err != nil {
		log.Printf("⚠️ history write failed room=%s: %v", room.ID, err)
	}

	room.Settled = true
	now := time.Now()
	room.FinishedAt = &now
	s.Emitter.ToRoom(room.ID, events.GameEnd, state)
	return nil
}

// OfferRematch opens a rematch window after a finished game. If the
// opponent does not accept in time the room closes.
func (s *RoomService) OfferRematch(roomID, playerID string) error {
	s.Store.mu.Lock()
	defer s.Store.mu.Unlock()
	room := s.Store.get(roomID)
	if room == nil {
		return fmt.Errorf("%w: room %s", ErrNotFound, roomID)
	}
	if room.Game == nil || !room.Settled {
		return ErrGameInProgress
	}
	if !room.has(playerID) {
		return ErrNotParticipant
	}
	if room.rematch != nil {
		return ErrRematchPending
	}
	offerer := *room.Host
	if room.Guest != nil && room.Guest.ID == playerID {
		offerer = *room.Guest
	}
	room.rematch = &rematchOffer{
		from: offerer,
		timer: time.AfterFunc(s.RematchWindow, func() {
			s.expireRematch(roomID)
		}),
	}
	s.Emitter.ToRoom(roomID, events.RematchOffer, map[string]any{"roomId": roomID, "from": offerer})
	return nil
}

func (s *RoomService) expireRematch(roomID string) {
	s.Store.mu.Lock()
	defer s.Store.mu.Unlock()
	room := s.Store.get(roomID)
	if room == nil || room.rematch == nil {
		return
	}
	room.rematch = nil
	s.Emitter.ToRoom(roomID, events.RematchExpired, map[string]any{"roomId": roomID})
	s.closeRoom(roomID)
	log.Printf("⏰ rematch window expired, room closed id=%s", roomID)
}

// AcceptRematch re-escrows both stakes and starts a fresh game with
// the same pairing and wager.
func (s *RoomService) AcceptRematch(roomID, playerID string) (games.State, error) {
	s.Store.mu.Lock()
	room := s.Store.get(roomID)
	if room == nil {
		s.Store.mu.Unlock()
		return games.State{}, fmt.Errorf("%w: room %s", ErrNotFound, roomID)
	}
	if room.rematch == nil {
		s.Store.mu.Unlock()
		return games.State{}, ErrNoRematchOffer
	}
	if !room.has(playerID) || room.rematch.from.ID == playerID {
		s.Store.mu.Unlock()
		return games.State{}, ErrNotParticipant
	}
	host, guest, bet := *room.Host, *room.Guest, room.Bet
	s.Store.mu.Unlock()

	if err := s.Financial.DebitStake(host.ID, bet); err != nil {
		return games.State{}, err
	}
	if err := s.Financial.DebitStake(guest.ID, bet); err != nil {
		// give the first stake back so nobody is left short
		if rerr := s.Financial.RefundStake(host.ID, bet); rerr != nil {
			log.Printf("⚠️ rematch refund failed user=%s: %v", host.ID, rerr)
		}
		return games.State{}, err
	}

	s.Store.mu.Lock()
	defer s.Store.mu.Unlock()
	room = s.Store.get(roomID)
	if room == nil || room.rematch == nil {
		for _, id := range []string{host.ID, guest.ID} {
			if rerr := s.Financial.RefundStake(id, bet); rerr != nil {
				log.Printf("⚠️ rematch refund failed user=%s: %v", id, rerr)
			}
		}
		return games.State{}, ErrNoRematchOffer
	}
	room.cancelTimers()
	game, err := games.New(room.GameType, host, guest)
	if err != nil {
		return games.State{}, err
	}
	room.Game = game
	room.Settled = false
	room.FinishedAt = nil
	state := game.State()
	s.Emitter.ToRoom(room.ID, events.GameStart, state)
	log.Printf("🔁 rematch started room=%s", room.ID)
	return s.driveBots(room, state)
}

// LeaveRoom pulls the player out of one room: a waiting room refunds
// and closes, a live game forfeits to the opponent, a finished room
// just closes.
func (s *RoomService) LeaveRoom(roomID, playerID string) error {
	s.Store.mu.Lock()
	defer s.Store.mu.Unlock()
	room := s.Store.get(roomID)
	if room == nil {
		return fmt.Errorf("%w: room %s", ErrNotFound, roomID)
	}
	if !room.has(playerID) {
		return ErrNotParticipant
	}
	s.resolveLeave(room, playerID)
	return nil
}

// HandleDisconnect resolves every room the player occupies: waiting
// rooms refund and close, live games forfeit to the opponent, finished
// rooms just close.
func (s *RoomService) HandleDisconnect(playerID string) {
	s.Store.mu.Lock()
	defer s.Store.mu.Unlock()
	for _, room := range s.Store.rooms {
		if room.has(playerID) {
			s.resolveLeave(room, playerID)
		}
	}
}

// resolveLeave applies the leave/disconnect rules to one room; store
// lock held.
func (s *RoomService) resolveLeave(room *Room, playerID string) {
	switch {
	case room.Game == nil:
		if err := s.Financial.RefundStake(playerID, room.Bet); err != nil {
			log.Printf("⚠️ leave refund failed user=%s: %v", playerID, err)
		}
		s.closeRoom(room.ID)
	case !room.Settled:
		s.forfeit(room, playerID)
	default:
		s.closeRoom(room.ID)
	}
}

// closeRoom notifies and drops one room; store lock held.
func (s *RoomService) closeRoom(roomID string) {
	s.Emitter.ToRoom(roomID, events.RoomClosed, map[string]any{"roomId": roomID})
	s.Emitter.DropRoom(roomID)
	s.Store.remove(roomID)
}

// forfeit ends a live game in the remaining player's favor; store lock
// held.
func (s *RoomService) forfeit(room *Room, leaverID string) {
	opp := room.opponentOf(leaverID)
	if opp == nil {
		s.Store.remove(room.ID)
		return
	}
	state := room.Game.State()
	state.Status = games.StatusFinished
	state.Winner = &games.Winner{PlayerID: opp.ID, Reason: games.ReasonForfeit}
	if err := s.finishGame(room, state); err != nil {
		log.Printf("⚠️ forfeit settlement failed room=%s: %v", room.ID, err)
		return
	}
	s.closeRoom(room.ID)
	log.Printf("🏳️ forfeit room=%s leaver=%s", room.ID, leaverID)
}

// Sweep closes finished rooms past ttl and abandoned waiting rooms
// past maxAge, refunding waiting hosts. Returns the number closed.
func (s *RoomService) Sweep(maxAge, ttl time.Duration) int {
	s.Store.mu.Lock()
	defer s.Store.mu.Unlock()
	now := time.Now()
	removed := 0
	for id, room := range s.Store.rooms {
		switch {
		case room.FinishedAt != nil && now.Sub(*room.FinishedAt) > ttl:
		case room.Game == nil && now.Sub(room.CreatedAt) > maxAge:
			if room.Host != nil {
				if err := s.Financial.RefundStake(room.Host.ID, room.Bet); err != nil {
					log.Printf("⚠️ sweep refund failed user=%s: %v", room.Host.ID, err)
				}
			}
		default:
			continue
		}
		s.closeRoom(id)
		removed++
	}
	return removed
}

// HistoryFor returns the player's finished games, newest first.
func (s *RoomService) HistoryFor(playerID string, page, limit int) ([]models.GameHistory, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	sub := s.DB.Model(&models.GameHistoryResult{}).
		Select("history_id").
		Where("player_id = ?", playerID)
	q := s.DB.Model(&models.GameHistory{}).Where("id IN (?)", sub)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.GameHistory
	err := q.Preload("Results").
		Order("played_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&out).Error
	return out, total, err
}

// IsIllegalMove reports whether err came from move validation rather
// than infrastructure.
func IsIllegalMove(err error) bool {
	return errors.Is(err, games.ErrIllegalMove) ||
		errors.Is(err, games.ErrNotYourTurn) ||
		errors.Is(err, games.ErrGameOver)
}
