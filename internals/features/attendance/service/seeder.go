package service

import (
	"context"
	"log"
	"time"

	rosterModel "scoda_backend/internals/features/roster/model"
	rosterService "scoda_backend/internals/features/roster/service"
	"scoda_backend/internals/helpers/clock"
	"scoda_backend/internals/helpers/dbtime"

	"github.com/google/uuid"
)

type EnrollmentLister interface {
	ActiveEnrollments(ctx context.Context, f rosterService.EnrollmentFilter) ([]rosterModel.EnrollmentModel, error)
}

// AbsentSeeder pre-populates ABSENT for every active enrollment at the start
// of a school day. Existing statuses are left alone.
type AbsentSeeder struct {
	Store    *StateStore
	Roster   EnrollmentLister
	Clock    clock.Clock
	Location *time.Location
}

func NewAbsentSeeder(store *StateStore, roster EnrollmentLister, clk clock.Clock, loc *time.Location) *AbsentSeeder {
	if clk == nil {
		clk = clock.Real()
	}
	if loc == nil {
		loc = dbtime.DefaultLocation()
	}
	return &AbsentSeeder{Store: store, Roster: roster, Clock: clk, Location: loc}
}

// SeedAbsent returns how many ABSENT rows were created for day.
// schoolID nil covers every school.
func (s *AbsentSeeder) SeedAbsent(ctx context.Context, day time.Time, schoolID *uuid.UUID) (int64, error) {
	enrs, err := s.Roster.ActiveEnrollments(ctx, rosterService.EnrollmentFilter{SchoolID: schoolID})
	if err != nil {
		return 0, err
	}
	keys := make([]EnrollmentKey, 0, len(enrs))
	for _, e := range enrs {
		keys = append(keys, EnrollmentKey{StudentID: e.EnrollmentStudentID, EnrollmentID: e.EnrollmentID})
	}
	n, err := s.Store.InsertAbsent(ctx, day, keys)
	if err != nil {
		return 0, err
	}
	log.Printf("[SEED] absent day=%s enrollments=%d created=%d", dbtime.NormalizeDay(day).Format(dbtime.DayLayout), len(keys), n)
	return n, nil
}

// SeedToday seeds the current day on the school calendar.
func (s *AbsentSeeder) SeedToday(ctx context.Context) (int64, error) {
	return s.SeedAbsent(ctx, dbtime.DayOf(s.Clock.Now(), s.Location), nil)
}
