// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Room retention defaults for the background sweep.
const (
	staleRoomAge    = 30 * time.Minute
	finishedRoomTTL = 5 * time.Minute
)

// StartMaintenanceScheduler runs the periodic cleanup jobs: closing
// stale or long-finished rooms and starting pending tournaments whose
// registration window lapsed without a timer firing (e.g. after a
// restart).
func StartMaintenanceScheduler(rooms *RoomService, tournaments *TournamentService) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: sweep dead rooms
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			if n := rooms.Sweep(staleRoomAge, finishedRoomTTL); n > 0 {
				log.Printf("🧹 [Scheduler] closed %d stale rooms", n)
			}
		}),
	)

	// Every 15 seconds: start overdue pending tournaments
	_, _ = sched.NewJob(
		gocron.DurationJob(15*time.Second),
		gocron.NewTask(func() {
			tournaments.SweepPending()
		}),
	)
}
