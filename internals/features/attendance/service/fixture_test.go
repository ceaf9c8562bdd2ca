package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"scoda_backend/internals/features/attendance/model"
	"scoda_backend/internals/features/notifications/batcher"
	rosterModel "scoda_backend/internals/features/roster/model"
	rosterService "scoda_backend/internals/features/roster/service"
	"scoda_backend/internals/helpers/clock"
	"scoda_backend/internals/helpers/dbtime"
	"scoda_backend/internals/helpers/testdb"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Santiago without DST, so tests do not depend on tzdata.
var schoolLoc = time.FixedZone("CLT", -3*3600)

type recordingNotifier struct {
	mu     sync.Mutex
	events []batcher.PickupEvent
	actors []uuid.UUID
}

func (n *recordingNotifier) Submit(actor uuid.UUID, ev batcher.PickupEvent) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.actors = append(n.actors, actor)
	n.events = append(n.events, ev)
	return true
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type recordingAudit struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (a *recordingAudit) Rejected(_ context.Context, ev AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
}

func (a *recordingAudit) kinds() []AuditKind {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]AuditKind, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.Kind)
	}
	return out
}

type fixture struct {
	db       *gorm.DB
	svc      *TransitionService
	roster   *rosterService.Service
	notifier *recordingNotifier
	audit    *recordingAudit
	clock    *clock.FakeClock

	schoolID   uuid.UUID
	course     rosterModel.CourseModel
	student    rosterModel.StudentModel
	enrollment rosterModel.EnrollmentModel
	guardian   rosterModel.PersonModel
	actor      uuid.UUID
}

// 2026-03-02 14:30 school time.
var fixtureNow = time.Date(2026, 3, 2, 14, 30, 0, 0, schoolLoc)

func newFixture(t *testing.T, allowSupersede bool) *fixture {
	t.Helper()
	db := testdb.Open(t, append(rosterModel.All(), model.All()...)...)

	f := &fixture{
		db:       db,
		roster:   rosterService.New(db, 3),
		notifier: &recordingNotifier{},
		audit:    &recordingAudit{},
		clock:    clock.Fake(fixtureNow),
		schoolID: uuid.New(),
		actor:    uuid.New(),
	}

	end := dbtime.MustParse("15:00")
	f.course = rosterModel.CourseModel{CourseSchoolID: f.schoolID, CourseName: "2° Básico B", CourseEndTime: &end}
	mustCreate(t, db, &f.course)
	f.student, f.enrollment = f.enroll(t, "Martín")

	f.guardian = rosterModel.PersonModel{PersonFirstName: "Paula", PersonLastName: "Soto"}
	mustCreate(t, db, &f.guardian)
	if _, err := f.roster.AddEdge(context.Background(), nil, rosterService.AddEdgeInput{
		StudentID: f.student.StudentID,
		PersonID:  f.guardian.PersonID,
		Kind:      rosterModel.RelationshipGuardian,
	}); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	f.svc = NewTransitionService(Deps{
		DB:             db,
		Roster:         f.roster,
		Notifier:       f.notifier,
		Audit:          f.audit,
		Clock:          f.clock,
		Location:       schoolLoc,
		AllowSupersede: allowSupersede,
	})
	return f
}

func (f *fixture) enroll(t *testing.T, name string) (rosterModel.StudentModel, rosterModel.EnrollmentModel) {
	t.Helper()
	p := rosterModel.PersonModel{PersonFirstName: name}
	mustCreate(t, f.db, &p)
	st := rosterModel.StudentModel{StudentPersonID: p.PersonID, StudentSchoolID: f.schoolID}
	mustCreate(t, f.db, &st)
	enr := rosterModel.EnrollmentModel{
		EnrollmentStudentID: st.StudentID,
		EnrollmentCourseID:  f.course.CourseID,
		EnrollmentSchoolID:  f.schoolID,
		EnrollmentIsActive:  true,
	}
	mustCreate(t, f.db, &enr)
	return st, enr
}

func (f *fixture) input(status string) RecordInput {
	return RecordInput{
		StudentID:    f.student.StudentID,
		EnrollmentID: f.enrollment.EnrollmentID,
		Status:       status,
		Actor:        f.actor,
	}
}

func (f *fixture) today() time.Time { return dbtime.DayOf(fixtureNow, schoolLoc) }

func (f *fixture) countRecords(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&model.AttendanceRecordModel{}).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func (f *fixture) countHistory(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&model.AttendanceHistoryModel{}).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func mustCreate(t *testing.T, db *gorm.DB, v any) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}
