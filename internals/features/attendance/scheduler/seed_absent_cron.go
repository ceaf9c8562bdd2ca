// internals/features/attendance/scheduler/seed_absent_cron.go
package scheduler

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type DaySeeder interface {
	SeedToday(ctx context.Context) (int64, error)
}

// StartSeedAbsent schedules the daily ABSENT seeding on the school clock.
// An empty schedule disables it and returns nil. The caller stops the
// returned cron on shutdown.
func StartSeedAbsent(seeder DaySeeder, schedule string, loc *time.Location) (*cron.Cron, error) {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		log.Println("[SEED-CRON] CRON_SEED_ABSENT empty, daily seeding disabled")
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
		defer cancel()
		if _, err := seeder.SeedToday(ctx); err != nil {
			log.Printf("[SEED-CRON] seeding failed: %v", err)
		}
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[SEED-CRON] started schedule=%q tz=%s", schedule, loc)
	c.Start()
	return c, nil
}
