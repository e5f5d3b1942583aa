package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"game-match-system/events"
	"game-match-system/games"
	"game-match-system/models"
)

func newTournamentFixture(t *testing.T) (*TournamentService, *events.Recorder) {
	db := newTestDB(t)
	fin := NewFinancialService(db, 0.10)
	rec := events.NewRecorder()
	svc := NewTournamentService(db, fin, rec)
	svc.RegistrationWindow = time.Hour // tests start brackets by hand
	return svc, rec
}

// playOutBracketMatch drives a live tic tac toe bracket match to a win
// for whoever holds the opening turn.
func playOutBracketMatch(t *testing.T, svc *TournamentService, tournamentID, matchKey string) (winnerID string) {
	t.Helper()
	state, err := svc.GetMatchState(tournamentID, matchKey)
	require.NoError(t, err)
	first := state.CurrentPlayerID
	var second string
	for _, p := range state.Players {
		if p.ID != first {
			second = p.ID
		}
	}
	script := []struct {
		player string
		cell   int
	}{
		{first, 0}, {second, 3}, {first, 1}, {second, 4}, {first, 2},
	}
	for _, mv := range script {
		state, err = svc.MakeMatchMove(tournamentID, matchKey, mv.player, rawCell(mv.cell))
		require.NoError(t, err)
	}
	require.Equal(t, games.StatusFinished, state.Status)
	require.Equal(t, first, state.Winner.PlayerID)
	return first
}

func TestCreateTournamentValidation(t *testing.T) {
	svc, _ := newTournamentFixture(t)

	_, err := svc.CreateTournament("odd bracket", games.TicTacToe, 6, 10)
	assert.ErrorIs(t, err, ErrTournamentState)
	_, err = svc.CreateTournament("free lunch", games.TicTacToe, 4, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.CreateTournament("what game", "Snakes", 4, 10)
	assert.ErrorIs(t, err, ErrNotFound)

	tour, err := svc.CreateTournament("Friday Night Cup", games.TicTacToe, 4, 10)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentPending, tour.Status)
	assert.Contains(t, tour.Slug, "friday-night-cup-")
}

func TestJoinTournamentRules(t *testing.T) {
	svc, _ := newTournamentFixture(t)
	alice := seedUser(t, svc.DB, "alice", 100, models.KycApproved)
	poor := seedUser(t, svc.DB, "poor", 5, models.KycApproved)

	tour, err := svc.CreateTournament("Cup", games.TicTacToe, 4, 10)
	require.NoError(t, err)

	_, err = svc.JoinTournament(tour.ID, asPlayer(alice))
	require.NoError(t, err)
	assert.Equal(t, 90.0, balanceOf(t, svc.DB, alice.ID))

	_, err = svc.JoinTournament(tour.ID, asPlayer(alice))
	assert.ErrorIs(t, err, ErrAlreadyJoined)
	assert.Equal(t, 90.0, balanceOf(t, svc.DB, alice.ID))

	_, err = svc.JoinTournament(tour.ID, asPlayer(poor))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, 5.0, balanceOf(t, svc.DB, poor.ID))

	_, err = svc.StartTournament(tour.ID)
	require.NoError(t, err)
	late := seedUser(t, svc.DB, "late", 100, models.KycApproved)
	_, err = svc.JoinTournament(tour.ID, asPlayer(late))
	assert.ErrorIs(t, err, ErrTournamentState)
}

func TestFullBracketSettlesChampion(t *testing.T) {
	svc, rec := newTournamentFixture(t)
	tour, err := svc.CreateTournament("Cup", games.TicTacToe, 4, 10)
	require.NoError(t, err)
	for _, n := range []string{"alice", "bob", "carol", "dave"} {
		u := seedUser(t, svc.DB, n, 100, models.KycApproved)
		_, err := svc.JoinTournament(tour.ID, asPlayer(u))
		require.NoError(t, err)
	}

	started, err := svc.StartTournament(tour.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentActive, started.Status)
	assert.Equal(t, 40.0, started.PrizePool)
	require.Len(t, started.Matches, 2)
	for _, m := range started.Matches {
		assert.Equal(t, models.MatchActive, m.Status)
	}
	require.NotEmpty(t, rec.Named(events.TournamentStart))

	playOutBracketMatch(t, svc, tour.ID, matchKeyFor(0, 0))
	playOutBracketMatch(t, svc, tour.ID, matchKeyFor(0, 1))

	// both winners propagated into the final, which is now live
	mid, err := svc.GetTournament(tour.ID)
	require.NoError(t, err)
	require.Len(t, mid.Matches, 3)
	var final models.BracketMatch
	for _, m := range mid.Matches {
		if m.RoundIndex == 1 {
			final = m
		}
	}
	assert.Equal(t, models.MatchActive, final.Status)
	assert.NotEmpty(t, final.Player1ID)
	assert.NotEmpty(t, final.Player2ID)

	champion := playOutBracketMatch(t, svc, tour.ID, matchKeyFor(1, 0))

	done, err := svc.GetTournament(tour.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentFinished, done.Status)
	assert.Equal(t, champion, done.WinnerID)

	// pool 40, commission 4: the champion holds 90 + 36
	assert.Equal(t, 126.0, balanceOf(t, svc.DB, champion))
	var champ models.User
	require.NoError(t, svc.DB.First(&champ, "id = ?", champion).Error)
	assert.Equal(t, 26.0, champ.MoneyEarned)

	var win, commission models.Transaction
	require.NoError(t, svc.DB.First(&win, "reference_id = ? AND type = ?", tour.ID, models.TxTournamentWin).Error)
	assert.Equal(t, 36.0, win.Amount)
	require.NoError(t, svc.DB.First(&commission, "reference_id = ? AND type = ?", tour.ID, models.TxPlatformCommission).Error)
	assert.Equal(t, 4.0, commission.Amount)
	assert.Nil(t, commission.UserID)
	require.NotEmpty(t, rec.Named(events.TournamentFinished))

	// the final's engine is gone once resolved
	_, err = svc.GetMatchState(tour.ID, matchKeyFor(1, 0))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFailedChampionPayoutRollsBackFinish(t *testing.T) {
	svc, rec := newTournamentFixture(t)
	tour, err := svc.CreateTournament("Cup", games.TicTacToe, 4, 10)
	require.NoError(t, err)
	for _, n := range []string{"alice", "bob", "carol", "dave"} {
		u := seedUser(t, svc.DB, n, 100, models.KycApproved)
		_, err := svc.JoinTournament(tour.ID, asPlayer(u))
		require.NoError(t, err)
	}
	_, err = svc.StartTournament(tour.ID)
	require.NoError(t, err)

	playOutBracketMatch(t, svc, tour.ID, matchKeyFor(0, 0))
	playOutBracketMatch(t, svc, tour.ID, matchKeyFor(0, 1))

	finalKey := matchKeyFor(1, 0)
	state, err := svc.GetMatchState(tour.ID, finalKey)
	require.NoError(t, err)
	first := state.CurrentPlayerID
	var second string
	for _, p := range state.Players {
		if p.ID != first {
			second = p.ID
		}
	}
	script := []struct {
		player string
		cell   int
	}{
		{first, 0}, {second, 3}, {first, 1}, {second, 4},
	}
	for _, mv := range script {
		_, err = svc.MakeMatchMove(tour.ID, finalKey, mv.player, rawCell(mv.cell))
		require.NoError(t, err)
	}

	// the would-be champion's account vanishes before the winning move,
	// so the payout transaction cannot commit
	require.NoError(t, svc.DB.Delete(&models.User{}, "id = ?", first).Error)
	_, err = svc.MakeMatchMove(tour.ID, finalKey, first, rawCell(2))
	require.Error(t, err)

	// the championship rolled back with the payout
	reloaded, err := svc.GetTournament(tour.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentActive, reloaded.Status)
	assert.Empty(t, reloaded.WinnerID)
	for _, m := range reloaded.Matches {
		if m.MatchKey == finalKey {
			assert.Equal(t, models.MatchActive, m.Status)
			assert.Empty(t, m.WinnerID)
		}
	}
	var win models.Transaction
	err = svc.DB.First(&win, "reference_id = ? AND type = ?", tour.ID, models.TxTournamentWin).Error
	assert.Error(t, err)

	// nothing announced the unresolved final
	assert.Empty(t, rec.Named(events.TournamentFinished))
	for _, e := range rec.Named(events.TournamentUpdate) {
		payload, ok := e.Payload.(map[string]any)
		require.True(t, ok)
		if payload["matchKey"] != finalKey {
			continue
		}
		st, ok := payload["state"].(games.State)
		require.True(t, ok)
		assert.NotEqual(t, games.StatusFinished, st.Status)
	}

	// the engine survives, so the match can still be resolved later
	_, err = svc.GetMatchState(tour.ID, finalKey)
	assert.NoError(t, err)
}

func TestStartFillsEmptySeatsWithBots(t *testing.T) {
	svc, _ := newTournamentFixture(t)
	alice := seedUser(t, svc.DB, "alice", 100, models.KycApproved)

	tour, err := svc.CreateTournament("Cup", games.TicTacToe, 4, 10)
	require.NoError(t, err)
	_, err = svc.JoinTournament(tour.ID, asPlayer(alice))
	require.NoError(t, err)

	started, err := svc.StartTournament(tour.ID)
	require.NoError(t, err)

	require.Len(t, started.Participants, 4)
	bots := 0
	for _, p := range started.Participants {
		if p.IsBot {
			bots++
		}
	}
	assert.Equal(t, 3, bots)

	// one round 0 match pairs bots and resolves by coin flip; alice's
	// match stays live waiting on her move
	var finished, active int
	var aliceKey string
	for _, m := range started.Matches {
		if m.RoundIndex != 0 {
			continue
		}
		switch m.Status {
		case models.MatchFinished:
			finished++
			assert.NotEmpty(t, m.WinnerID)
		case models.MatchActive:
			active++
			aliceKey = m.MatchKey
		}
	}
	assert.Equal(t, 1, finished)
	assert.Equal(t, 1, active)

	state, err := svc.GetMatchState(tour.ID, aliceKey)
	require.NoError(t, err)
	assert.Equal(t, games.StatusInProgress, state.Status)

	stranger := seedUser(t, svc.DB, "stranger", 100, models.KycApproved)
	_, err = svc.MakeMatchMove(tour.ID, aliceKey, stranger.ID, rawCell(0))
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestForfeitAdvancesOpponent(t *testing.T) {
	svc, _ := newTournamentFixture(t)
	tour, err := svc.CreateTournament("Cup", games.TicTacToe, 4, 10)
	require.NoError(t, err)
	for _, n := range []string{"alice", "bob", "carol", "dave"} {
		u := seedUser(t, svc.DB, n, 100, models.KycApproved)
		_, err := svc.JoinTournament(tour.ID, asPlayer(u))
		require.NoError(t, err)
	}
	_, err = svc.StartTournament(tour.ID)
	require.NoError(t, err)

	key := matchKeyFor(0, 0)
	state, err := svc.GetMatchState(tour.ID, key)
	require.NoError(t, err)
	leaver := state.Players[0].ID
	survivor := state.Players[1].ID

	require.NoError(t, svc.ForfeitMatch(tour.ID, key, leaver))

	reloaded, err := svc.GetTournament(tour.ID)
	require.NoError(t, err)
	for _, m := range reloaded.Matches {
		if m.MatchKey == key {
			assert.Equal(t, models.MatchFinished, m.Status)
			assert.Equal(t, survivor, m.WinnerID)
		}
	}
	_, err = svc.GetMatchState(tour.ID, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDisconnectForfeitsBracketMatches(t *testing.T) {
	svc, _ := newTournamentFixture(t)
	tour, err := svc.CreateTournament("Cup", games.TicTacToe, 4, 10)
	require.NoError(t, err)
	var alice *models.User
	for _, n := range []string{"alice", "bob", "carol", "dave"} {
		u := seedUser(t, svc.DB, n, 100, models.KycApproved)
		if n == "alice" {
			alice = u
		}
		_, err := svc.JoinTournament(tour.ID, asPlayer(u))
		require.NoError(t, err)
	}
	_, err = svc.StartTournament(tour.ID)
	require.NoError(t, err)

	svc.HandleDisconnect(alice.ID)

	reloaded, err := svc.GetTournament(tour.ID)
	require.NoError(t, err)
	for _, m := range reloaded.Matches {
		if m.RoundIndex != 0 {
			continue
		}
		if m.Player1ID == alice.ID || m.Player2ID == alice.ID {
			assert.Equal(t, models.MatchFinished, m.Status)
			assert.NotEqual(t, alice.ID, m.WinnerID)
		}
	}
}
