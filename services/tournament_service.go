package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"game-match-system/events"
	"game-match-system/games"
	"game-match-system/models"
)

// DefaultRegistrationWindow is how long a tournament stays open after
// its first entrant before the bracket starts, bots filling any empty
// seats.
const DefaultRegistrationWindow = 15 * time.Second

var validSizes = map[int]bool{4: true, 8: true, 16: true}

// TournamentService runs single-elimination wagered brackets. Bracket
// rows are durable; live engines stay in memory and are addressed by
// tournament id plus match key ("round-0-match-1").
type TournamentService struct {
	DB                 *gorm.DB
	Financial          *FinancialService
	Emitter            events.Emitter
	RegistrationWindow time.Duration

	mu      sync.Mutex
	engines map[string]games.Game
	timers  map[string]*time.Timer
}

func NewTournamentService(db *gorm.DB, fin *FinancialService, em events.Emitter) *TournamentService {
	return &TournamentService{
		DB:                 db,
		Financial:          fin,
		Emitter:            em,
		RegistrationWindow: DefaultRegistrationWindow,
		engines:            make(map[string]games.Game),
		timers:             make(map[string]*time.Timer),
	}
}

func engineKey(tournamentID, matchKey string) string {
	return tournamentID + "/" + matchKey
}

func matchKeyFor(round, index int) string {
	return fmt.Sprintf("round-%d-match-%d", round, index)
}

// matchesInRound is the bracket width at the given round.
func matchesInRound(size, round int) int { return size >> (round + 1) }

// CreateTournament opens registration for a bracket of 4, 8 or 16.
func (s *TournamentService) CreateTournament(name, gameType string, size int, entryFee float64) (*models.Tournament, error) {
	if !games.ValidGameType(gameType) {
		return nil, fmt.Errorf("%w: game type %q", ErrNotFound, gameType)
	}
	if !validSizes[size] {
		return nil, fmt.Errorf("%w: size must be 4, 8 or 16", ErrTournamentState)
	}
	if entryFee <= 0 {
		return nil, ErrInvalidAmount
	}
	id := uuid.NewString()
	t := &models.Tournament{
		ID:       id,
		Name:     name,
		Slug:     fmt.Sprintf("%s-%s", slug.Make(name), id[:8]),
		GameType: gameType,
		Size:     size,
		EntryFee: entryFee,
		Status:   models.TournamentPending,
	}
	if err := s.DB.Create(t).Error; err != nil {
		return nil, err
	}
	log.Printf("🏟️ tournament created id=%s name=%q size=%d fee=%.2f", t.ID, name, size, entryFee)
	return t, nil
}

// ListTournaments returns tournaments, optionally filtered by status.
func (s *TournamentService) ListTournaments(status string) ([]models.Tournament, error) {
	q := s.DB.Preload("Participants").Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.Tournament
	err := q.Find(&out).Error
	return out, err
}

// GetTournament loads one tournament with its participants and bracket
// by id or slug.
func (s *TournamentService) GetTournament(idOrSlug string) (*models.Tournament, error) {
	var t models.Tournament
	err := s.DB.Preload("Participants").
		Preload("Matches", func(db *gorm.DB) *gorm.DB {
			return db.Order("round_index, match_index")
		}).
		Where("id = ? OR slug = ?", idOrSlug, idOrSlug).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: tournament %s", ErrNotFound, idOrSlug)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// JoinTournament escrows the entry fee and registers the player. The
// first entrant arms the registration timer; when it fires the bracket
// starts with bots in any empty seats.
func (s *TournamentService) JoinTournament(tournamentID string, player games.Player) (*models.Tournament, error) {
	var first bool
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var t models.Tournament
		if err := lockForUpdate(tx).Preload("Participants").First(&t, "id = ?", tournamentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: tournament %s", ErrNotFound, tournamentID)
			}
			return err
		}
		if t.Status != models.TournamentPending {
			return ErrTournamentState
		}
		for _, p := range t.Participants {
			if p.UserID == player.ID {
				return ErrAlreadyJoined
			}
		}
		if len(t.Participants) >= t.Size {
			return ErrTournamentFull
		}
		user, err := lockedUser(tx, player.ID)
		if err != nil {
			return err
		}
		if user.Balance < t.EntryFee {
			return ErrInsufficientFunds
		}
		if err := tx.Model(user).Update("balance", gorm.Expr("balance - ?", t.EntryFee)).Error; err != nil {
			return err
		}
		first = len(t.Participants) == 0
		return tx.Create(&models.TournamentParticipant{
			ID:           uuid.NewString(),
			TournamentID: t.ID,
			UserID:       player.ID,
			Username:     player.Username,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	s.Emitter.JoinRoom(tournamentID, player.ID)
	if first {
		s.mu.Lock()
		s.timers[tournamentID] = time.AfterFunc(s.RegistrationWindow, func() {
			if _, err := s.StartTournament(tournamentID); err != nil {
				log.Printf("⚠️ auto start failed tournament=%s: %v", tournamentID, err)
			}
		})
		s.mu.Unlock()
	}
	return s.GetTournament(tournamentID)
}

// StartTournament closes registration, fills empty seats with bots,
// shuffles the field into the round 0 bracket and starts every match.
func (s *TournamentService) StartTournament(tournamentID string) (*models.Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer := s.timers[tournamentID]; timer != nil {
		timer.Stop()
		delete(s.timers, tournamentID)
	}

	var field []models.TournamentParticipant
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var t models.Tournament
		if err := lockForUpdate(tx).Preload("Participants").First(&t, "id = ?", tournamentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: tournament %s", ErrNotFound, tournamentID)
			}
			return err
		}
		if t.Status != models.TournamentPending {
			return ErrTournamentState
		}
		if len(t.Participants) == 0 {
			return fmt.Errorf("%w: no entrants", ErrTournamentState)
		}
		field = append(field, t.Participants...)
		for len(field) < t.Size {
			bot := games.NewBot()
			p := models.TournamentParticipant{
				ID:           uuid.NewString(),
				TournamentID: t.ID,
				UserID:       bot.ID,
				Username:     bot.Username,
				IsBot:        true,
			}
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			field = append(field, p)
		}
		rand.Shuffle(len(field), func(i, j int) { field[i], field[j] = field[j], field[i] })

		for i := 0; i < t.Size/2; i++ {
			p1, p2 := field[2*i], field[2*i+1]
			m := models.BracketMatch{
				ID:           uuid.NewString(),
				TournamentID: t.ID,
				MatchKey:     matchKeyFor(0, i),
				RoundIndex:   0,
				MatchIndex:   i,
				Status:       models.MatchPending,
				Player1ID:    p1.UserID,
				Player1Name:  p1.Username,
				Player2ID:    p2.UserID,
				Player2Name:  p2.Username,
			}
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
		}
		now := time.Now()
		return tx.Model(&t).Updates(map[string]any{
			"status":     models.TournamentActive,
			"started_at": now,
			"prize_pool": float64(t.Size) * t.EntryFee,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	t, err := s.getLocked(tournamentID)
	if err != nil {
		return nil, err
	}
	s.Emitter.ToRoom(tournamentID, events.TournamentStart, t)
	log.Printf("🏟️ tournament started id=%s entrants=%d", tournamentID, len(field))
	for _, m := range t.Matches {
		if m.RoundIndex == 0 {
			s.startMatch(t, m)
		}
	}
	return s.getLocked(tournamentID)
}

// getLocked reloads the tournament while s.mu is held.
func (s *TournamentService) getLocked(tournamentID string) (*models.Tournament, error) {
	var t models.Tournament
	err := s.DB.Preload("Participants").
		Preload("Matches", func(db *gorm.DB) *gorm.DB {
			return db.Order("round_index, match_index")
		}).
		First(&t, "id = ?", tournamentID).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// startMatch activates one bracket match whose both slots are filled.
// Bot-vs-bot pairings resolve by coin flip instead of simulating a
// game; s.mu held.
func (s *TournamentService) startMatch(t *models.Tournament, m models.BracketMatch) {
	if m.Player1ID == "" || m.Player2ID == "" {
		return
	}
	if games.IsBot(m.Player1ID) && games.IsBot(m.Player2ID) {
		winID, winName := m.Player1ID, m.Player1Name
		if rand.Intn(2) == 1 {
			winID, winName = m.Player2ID, m.Player2Name
		}
		if err := s.resolveMatch(t.ID, m.MatchKey, winID, winName); err != nil {
			log.Printf("⚠️ bot match resolution failed t=%s m=%s: %v", t.ID, m.MatchKey, err)
		}
		return
	}
	p1 := games.Player{ID: m.Player1ID, Username: m.Player1Name}
	p2 := games.Player{ID: m.Player2ID, Username: m.Player2Name}
	game, err := games.New(t.GameType, p1, p2)
	if err != nil {
		log.Printf("⚠️ engine start failed t=%s m=%s: %v", t.ID, m.MatchKey, err)
		return
	}
	s.engines[engineKey(t.ID, m.MatchKey)] = game
	if err := s.DB.Model(&models.BracketMatch{}).
		Where("tournament_id = ? AND match_key = ?", t.ID, m.MatchKey).
		Update("status", models.MatchActive).Error; err != nil {
		log.Printf("⚠️ match activate failed t=%s m=%s: %v", t.ID, m.MatchKey, err)
	}
	if _, err := s.driveMatchBots(t.ID, m.MatchKey, game, game.State()); err != nil {
		log.Printf("⚠️ match drive failed t=%s m=%s: %v", t.ID, m.MatchKey, err)
	}
}

// GetMatchState returns the live state of a bracket match.
func (s *TournamentService) GetMatchState(tournamentID, matchKey string) (games.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game := s.engines[engineKey(tournamentID, matchKey)]
	if game == nil {
		return games.State{}, fmt.Errorf("%w: no live match %s", ErrNotFound, matchKey)
	}
	return game.State(), nil
}

// MakeMatchMove applies one move in a live bracket match, lets bots
// reply, and advances the bracket on a decisive result. Draws restart
// the match with a fresh engine.
func (s *TournamentService) MakeMatchMove(tournamentID, matchKey, playerID string, move json.RawMessage) (games.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game := s.engines[engineKey(tournamentID, matchKey)]
	if game == nil {
		return games.State{}, fmt.Errorf("%w: no live match %s", ErrNotFound, matchKey)
	}
	participant := false
	for _, p := range game.State().Players {
		if p.ID == playerID {
			participant = true
		}
	}
	if !participant {
		return games.State{}, ErrNotParticipant
	}
	state, err := game.MakeMove(playerID, move)
	if err != nil {
		return state, err
	}
	// terminal states are only announced once the resolution committed
	if state.Status != games.StatusFinished {
		s.Emitter.ToRoom(tournamentID, events.TournamentUpdate, map[string]any{
			"matchKey": matchKey,
			"state":    state,
		})
	}
	return s.driveMatchBots(tournamentID, matchKey, game, state)
}

// driveMatchBots mirrors the casual-room bot chain for bracket
// matches, then resolves terminal states; s.mu held. The terminal
// state is broadcast only after the bracket advance (and, at the
// final, the payout) committed.
func (s *TournamentService) driveMatchBots(tournamentID, matchKey string, game games.Game, state games.State) (games.State, error) {
	for i := 0; state.Status == games.StatusInProgress && game.IsBotTurn() && i < maxBotTurns; i++ {
		mv, err := game.BotMove()
		if err != nil {
			return state, err
		}
		next, err := game.MakeMove(state.CurrentPlayerID, mv)
		if err != nil {
			return state, err
		}
		state = next
		if state.Status != games.StatusFinished {
			s.Emitter.ToRoom(tournamentID, events.TournamentUpdate, map[string]any{
				"matchKey": matchKey,
				"state":    state,
			})
		}
	}
	if state.Status != games.StatusFinished {
		return state, nil
	}
	if state.Winner != nil && state.Winner.PlayerID == "" {
		// drawn bracket matches replay until decisive
		s.restartMatch(tournamentID, matchKey, state.Players)
		return state, nil
	}
	winName := ""
	for _, p := range state.Players {
		if state.Winner != nil && p.ID == state.Winner.PlayerID {
			winName = p.Username
		}
	}
	if err := s.resolveMatch(tournamentID, matchKey, state.Winner.PlayerID, winName); err != nil {
		return state, fmt.Errorf("bracket advance failed: %w", err)
	}
	s.Emitter.ToRoom(tournamentID, events.TournamentUpdate, map[string]any{
		"matchKey": matchKey,
		"state":    state,
	})
	return state, nil
}

// restartMatch spins a fresh engine for the same pairing; s.mu held.
func (s *TournamentService) restartMatch(tournamentID, matchKey string, players []games.Player) {
	t, err := s.getLocked(tournamentID)
	if err != nil || len(players) != 2 {
		log.Printf("⚠️ rematch failed t=%s m=%s: %v", tournamentID, matchKey, err)
		return
	}
	game, err := games.New(t.GameType, players[0], players[1])
	if err != nil {
		log.Printf("⚠️ rematch failed t=%s m=%s: %v", tournamentID, matchKey, err)
		return
	}
	s.engines[engineKey(tournamentID, matchKey)] = game
	state := game.State()
	s.Emitter.ToRoom(tournamentID, events.TournamentRematch, map[string]any{
		"matchKey": matchKey,
		"state":    state,
	})
	if _, err := s.driveMatchBots(tournamentID, matchKey, game, state); err != nil {
		log.Printf("⚠️ match drive failed t=%s m=%s: %v", tournamentID, matchKey, err)
	}
}

// resolveMatch records a decisive result, propagates the winner to the
// next round (creating its rows lazily) and finishes the tournament at
// the final, paying the champion in the same transaction; s.mu held.
// On error the engine is kept so the resolution can be retried.
func (s *TournamentService) resolveMatch(tournamentID, matchKey, winnerID, winnerName string) error {
	var finished, already bool
	var nextKey string
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var t models.Tournament
		if err := lockForUpdate(tx).First(&t, "id = ?", tournamentID).Error; err != nil {
			return err
		}
		var m models.BracketMatch
		if err := tx.First(&m, "tournament_id = ? AND match_key = ?", tournamentID, matchKey).Error; err != nil {
			return err
		}
		if m.Status == models.MatchFinished {
			already = true
			return nil
		}
		if err := tx.Model(&m).Updates(map[string]any{
			"status":      models.MatchFinished,
			"winner_id":   winnerID,
			"winner_name": winnerName,
		}).Error; err != nil {
			return err
		}

		if matchesInRound(t.Size, m.RoundIndex) == 1 {
			finished = true
			now := time.Now()
			if err := tx.Model(&t).Updates(map[string]any{
				"status":      models.TournamentFinished,
				"winner_id":   winnerID,
				"winner_name": winnerName,
				"finished_at": now,
			}).Error; err != nil {
				return err
			}
			// a failed payout must roll the championship back too
			return s.Financial.settleTournamentTx(tx, winnerID, t.PrizePool, t.EntryFee, tournamentID)
		}

		nextRound := m.RoundIndex + 1
		var count int64
		if err := tx.Model(&models.BracketMatch{}).
			Where("tournament_id = ? AND round_index = ?", tournamentID, nextRound).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			for i := 0; i < matchesInRound(t.Size, nextRound); i++ {
				row := models.BracketMatch{
					ID:           uuid.NewString(),
					TournamentID: tournamentID,
					MatchKey:     matchKeyFor(nextRound, i),
					RoundIndex:   nextRound,
					MatchIndex:   i,
					Status:       models.MatchPending,
				}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			}
		}
		nextKey = matchKeyFor(nextRound, m.MatchIndex/2)
		var next models.BracketMatch
		if err := tx.First(&next, "tournament_id = ? AND match_key = ?", tournamentID, nextKey).Error; err != nil {
			return err
		}
		slot := map[string]any{"player1_id": winnerID, "player1_name": winnerName}
		if m.MatchIndex%2 == 1 {
			slot = map[string]any{"player2_id": winnerID, "player2_name": winnerName}
		}
		return tx.Model(&next).Updates(slot).Error
	})
	if err != nil {
		return err
	}
	delete(s.engines, engineKey(tournamentID, matchKey))
	if already {
		return nil
	}

	if finished {
		s.Emitter.ToRoom(tournamentID, events.TournamentFinished, map[string]any{
			"tournamentId": tournamentID,
			"winnerId":     winnerID,
			"winnerName":   winnerName,
		})
		log.Printf("🏆 tournament finished id=%s winner=%s", tournamentID, winnerName)
		return nil
	}

	// start the next-round match once both slots are known
	t, err := s.getLocked(tournamentID)
	if err != nil {
		return err
	}
	for _, m := range t.Matches {
		if m.MatchKey == nextKey && m.Player1ID != "" && m.Player2ID != "" && m.Status == models.MatchPending {
			s.startMatch(t, m)
		}
	}
	return nil
}

// ForfeitMatch hands a live bracket match to the opponent, e.g. when a
// player disconnects mid-game.
func (s *TournamentService) ForfeitMatch(tournamentID, matchKey, leaverID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	game := s.engines[engineKey(tournamentID, matchKey)]
	if game == nil {
		return fmt.Errorf("%w: no live match %s", ErrNotFound, matchKey)
	}
	var opp *games.Player
	found := false
	for _, p := range game.State().Players {
		if p.ID == leaverID {
			found = true
		} else {
			pp := p
			opp = &pp
		}
	}
	if !found || opp == nil {
		return ErrNotParticipant
	}
	return s.resolveMatch(tournamentID, matchKey, opp.ID, opp.Username)
}

// HandleDisconnect forfeits every live bracket match the player is in.
func (s *TournamentService) HandleDisconnect(playerID string) {
	s.mu.Lock()
	type hit struct{ tID, key string }
	var hits []hit
	for key, game := range s.engines {
		for _, p := range game.State().Players {
			if p.ID != playerID {
				continue
			}
			for i := 0; i < len(key); i++ {
				if key[i] == '/' {
					hits = append(hits, hit{key[:i], key[i+1:]})
					break
				}
			}
		}
	}
	s.mu.Unlock()
	for _, h := range hits {
		if err := s.ForfeitMatch(h.tID, h.key, playerID); err != nil {
			log.Printf("⚠️ disconnect forfeit failed t=%s m=%s: %v", h.tID, h.key, err)
		}
	}
}

// Subscribe adds the user to the tournament's event room.
func (s *TournamentService) Subscribe(tournamentID, userID string) {
	s.Emitter.JoinRoom(tournamentID, userID)
}

// SweepPending starts pending tournaments whose registration window
// lapsed; runs from the scheduler as a backstop for lost timers.
func (s *TournamentService) SweepPending() {
	cutoff := time.Now().Add(-s.RegistrationWindow)
	var ids []string
	err := s.DB.Model(&models.Tournament{}).
		Where("status = ?", models.TournamentPending).
		Where("id IN (?)", s.DB.Model(&models.TournamentParticipant{}).
			Select("tournament_id").
			Where("joined_at < ?", cutoff)).
		Pluck("id", &ids).Error
	if err != nil {
		log.Printf("⚠️ pending sweep query failed: %v", err)
		return
	}
	for _, id := range ids {
		if _, err := s.StartTournament(id); err != nil && !errors.Is(err, ErrTournamentState) {
			log.Printf("⚠️ pending sweep start failed tournament=%s: %v", id, err)
		}
	}
}
