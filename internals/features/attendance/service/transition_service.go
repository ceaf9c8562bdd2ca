package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"scoda_backend/internals/features/attendance/model"
	"scoda_backend/internals/features/notifications/batcher"
	rosterModel "scoda_backend/internals/features/roster/model"
	rosterService "scoda_backend/internals/features/roster/service"
	"scoda_backend/internals/helpers/clock"
	"scoda_backend/internals/helpers/dbtime"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roster is the read side of the roster the transition needs.
type Roster interface {
	IsAuthorized(ctx context.Context, studentID, personID uuid.UUID) (bool, error)
	GetEnrollment(ctx context.Context, enrollmentID uuid.UUID) (*rosterModel.EnrollmentModel, error)
	GetPerson(ctx context.Context, personID uuid.UUID) (*rosterModel.PersonModel, error)
	PersonByUserID(ctx context.Context, userID uuid.UUID) (*rosterModel.PersonModel, error)
	ActiveEnrollments(ctx context.Context, f rosterService.EnrollmentFilter) ([]rosterModel.EnrollmentModel, error)
}

// Notifier takes pickup events off the request path. Submit must not block.
type Notifier interface {
	Submit(actor uuid.UUID, ev batcher.PickupEvent) bool
}

type TransitionService struct {
	DB       *gorm.DB
	Store    *StateStore
	Ledger   *HistoryLedger
	Roster   Roster
	Notifier Notifier
	Audit    AuditSink
	Clock    clock.Clock
	Location *time.Location
}

type Deps struct {
	DB             *gorm.DB
	Roster         Roster
	Notifier       Notifier
	Audit          AuditSink
	Clock          clock.Clock
	Location       *time.Location
	AllowSupersede bool
}

func NewTransitionService(d Deps) *TransitionService {
	if d.Audit == nil {
		d.Audit = LogAuditSink{}
	}
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	if d.Location == nil {
		d.Location = dbtime.DefaultLocation()
	}
	return &TransitionService{
		DB:       d.DB,
		Store:    NewStateStore(d.DB, d.AllowSupersede),
		Ledger:   NewHistoryLedger(d.DB),
		Roster:   d.Roster,
		Notifier: d.Notifier,
		Audit:    d.Audit,
		Clock:    d.Clock,
		Location: d.Location,
	}
}

type RecordInput struct {
	StudentID    uuid.UUID
	EnrollmentID uuid.UUID
	// zero means today on the school's calendar
	Day         time.Time
	Status      string
	Actor       uuid.UUID
	Observation string
	PickedUpBy  *uuid.UUID
	EvidenceRef *string
	// when set, the enrollment must belong to this course
	CourseID *uuid.UUID
}

// RecordStatus sets the day's status for one enrollment. The state write is
// synchronous; the guardian notice is handed to the notifier after commit.
//
// Errors: ErrInvalidStatus, ErrInvalidInput and ErrUnknownEnrollment for bad
// input; ErrNotAuthorized and *AlreadyRecordedError as business rejections;
// anything else is a persistence failure.
func (s *TransitionService) RecordStatus(ctx context.Context, in RecordInput) (*model.AttendanceRecordModel, error) {
	status, ok := model.ParseStatus(in.Status)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, in.Status)
	}
	if in.StudentID == uuid.Nil || in.EnrollmentID == uuid.Nil || in.Actor == uuid.Nil {
		return nil, fmt.Errorf("%w: student, enrollment and actor are required", ErrInvalidInput)
	}

	now := s.Clock.Now()
	day := in.Day
	if day.IsZero() {
		day = dbtime.DayOf(now, s.Location)
	}
	day = dbtime.NormalizeDay(day)

	enr, err := s.Roster.GetEnrollment(ctx, in.EnrollmentID)
	if errors.Is(err, rosterService.ErrEnrollmentNotFound) {
		return nil, ErrUnknownEnrollment
	}
	if err != nil {
		return nil, err
	}
	if enr.EnrollmentStudentID != in.StudentID || !enr.EnrollmentIsActive {
		return nil, ErrUnknownEnrollment
	}
	if in.CourseID != nil && enr.EnrollmentCourseID != *in.CourseID {
		return nil, ErrUnknownEnrollment
	}

	pickedUpBy := in.PickedUpBy
	if status != model.StatusPickedUp {
		pickedUpBy = nil
	}
	if pickedUpBy != nil {
		allowed, err := s.Roster.IsAuthorized(ctx, in.StudentID, *pickedUpBy)
		if err != nil {
			return nil, err
		}
		if !allowed {
			s.Audit.Rejected(ctx, AuditEvent{
				Kind:         AuditNotAuthorized,
				Actor:        in.Actor,
				StudentID:    in.StudentID,
				EnrollmentID: in.EnrollmentID,
				Day:          day,
				Attempted:    status,
				PickedUpBy:   pickedUpBy,
			})
			return nil, ErrNotAuthorized
		}
	}

	actor := in.Actor
	rec := &model.AttendanceRecordModel{
		AttendanceRecordStudentID:    in.StudentID,
		AttendanceRecordEnrollmentID: in.EnrollmentID,
		AttendanceRecordDay:          day,
		AttendanceRecordStatus:       status,
		AttendanceRecordRegisteredBy: &actor,
		AttendanceRecordPickedUpBy:   pickedUpBy,
		AttendanceRecordObservation:  strings.TrimSpace(in.Observation),
		AttendanceRecordEvidenceRef:  in.EvidenceRef,
	}
	if status == model.StatusPickedUp {
		rec.AttendanceRecordEarlyDismissal = IsEarlyDismissal(enr.EndTime(), now, s.Location)
	}

	var out Outcome
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.Store.TryCreate(ctx, tx, rec)
		if err != nil {
			return err
		}
		out = o
		if o.Kind == OutcomeConflict {
			return nil
		}
		s.appendHistory(ctx, tx, o.Record, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if out.Kind == OutcomeConflict {
		s.Audit.Rejected(ctx, AuditEvent{
			Kind:         AuditAlreadyRecorded,
			Actor:        in.Actor,
			StudentID:    in.StudentID,
			EnrollmentID: in.EnrollmentID,
			Day:          day,
			Attempted:    status,
			Existing:     out.Record.AttendanceRecordStatus,
		})
		return nil, &AlreadyRecordedError{Existing: out.Record}
	}
	if out.Kind == OutcomeSuperseded {
		log.Printf("[ATTENDANCE] student=%s day=%s %s -> %s by %s",
			in.StudentID, day.Format(dbtime.DayLayout), out.Previous, status, in.Actor)
	}

	if status == model.StatusPickedUp {
		s.notify(ctx, in.Actor, out.Record, enr, now)
	}
	return out.Record, nil
}

// appendHistory runs in a savepoint so a failed insert never aborts the
// surrounding transaction.
func (s *TransitionService) appendHistory(ctx context.Context, tx *gorm.DB, rec *model.AttendanceRecordModel, at time.Time) {
	entry := model.HistoryFromRecord(rec, at)
	err := tx.Transaction(func(sp *gorm.DB) error {
		inserted, err := s.Ledger.Append(ctx, sp, entry)
		if err != nil {
			return err
		}
		if !inserted {
			log.Printf("[ATTENDANCE] history already has student=%s day=%s status=%s",
				rec.AttendanceRecordStudentID, rec.AttendanceRecordDay.Format(dbtime.DayLayout), rec.AttendanceRecordStatus)
		}
		return nil
	})
	if err != nil {
		log.Printf("[ATTENDANCE] history append failed for record %s: %v", rec.AttendanceRecordID, err)
	}
}

func (s *TransitionService) notify(ctx context.Context, actor uuid.UUID, rec *model.AttendanceRecordModel, enr *rosterModel.EnrollmentModel, at time.Time) {
	if s.Notifier == nil {
		return
	}
	ev := batcher.PickupEvent{
		RecordID:       rec.AttendanceRecordID,
		StudentID:      rec.AttendanceRecordStudentID,
		Day:            rec.AttendanceRecordDay,
		RegisteredAt:   at.In(s.Location),
		RegisteredBy:   actor,
		PickedUpBy:     rec.AttendanceRecordPickedUpBy,
		EarlyDismissal: rec.AttendanceRecordEarlyDismissal,
		Observation:    rec.AttendanceRecordObservation,
	}
	if enr.Student != nil && enr.Student.Person != nil {
		ev.StudentName = enr.Student.Person.FullName()
	}
	if enr.Course != nil {
		ev.CourseName = enr.Course.CourseName
	}
	if ev.PickedUpBy != nil {
		if p, err := s.Roster.GetPerson(ctx, *ev.PickedUpBy); err == nil {
			ev.PickedUpByName = p.FullName()
		} else {
			log.Printf("[ATTENDANCE] pickup person %s lookup: %v", *ev.PickedUpBy, err)
		}
	}
	if p, err := s.Roster.PersonByUserID(ctx, actor); err == nil {
		ev.RegisteredByName = p.FullName()
	} else if !errors.Is(err, rosterService.ErrPersonNotFound) {
		log.Printf("[ATTENDANCE] registrar %s lookup: %v", actor, err)
	}
	if !s.Notifier.Submit(actor, ev) {
		log.Printf("[ATTENDANCE] pickup notice for record %s not queued", rec.AttendanceRecordID)
	}
}

/* =========================================================
   BATCH (course / van bulk registration)
========================================================= */

type BatchItem struct {
	StudentID    uuid.UUID
	EnrollmentID uuid.UUID
	// empty falls back to BatchInput.Status
	Status      string
	Observation string
	PickedUpBy  *uuid.UUID
}

type BatchInput struct {
	Actor       uuid.UUID
	Day         time.Time
	Status      string
	Observation string
	// with no Items, every active enrollment of the course is included
	CourseID *uuid.UUID
	Items    []BatchItem
}

type BatchResult struct {
	StudentID    uuid.UUID
	EnrollmentID uuid.UUID
	Record       *model.AttendanceRecordModel
	Err          error
}

// RecordBatch runs RecordStatus for each item in order. A rejected item does
// not stop the rest; only a failure to expand the course aborts.
func (s *TransitionService) RecordBatch(ctx context.Context, in BatchInput) ([]BatchResult, error) {
	items := in.Items
	if len(items) == 0 {
		if in.CourseID == nil {
			return nil, fmt.Errorf("%w: items or course_id required", ErrInvalidInput)
		}
		enrs, err := s.Roster.ActiveEnrollments(ctx, rosterService.EnrollmentFilter{CourseID: in.CourseID})
		if err != nil {
			return nil, err
		}
		for _, e := range enrs {
			items = append(items, BatchItem{StudentID: e.EnrollmentStudentID, EnrollmentID: e.EnrollmentID})
		}
	}

	results := make([]BatchResult, 0, len(items))
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			results = append(results, BatchResult{StudentID: it.StudentID, EnrollmentID: it.EnrollmentID, Err: err})
			continue
		}
		status := it.Status
		if strings.TrimSpace(status) == "" {
			status = in.Status
		}
		obs := it.Observation
		if obs == "" {
			obs = in.Observation
		}
		rec, err := s.RecordStatus(ctx, RecordInput{
			StudentID:    it.StudentID,
			EnrollmentID: it.EnrollmentID,
			Day:          in.Day,
			Status:       status,
			Actor:        in.Actor,
			Observation:  obs,
			PickedUpBy:   it.PickedUpBy,
			CourseID:     in.CourseID,
		})
		results = append(results, BatchResult{StudentID: it.StudentID, EnrollmentID: it.EnrollmentID, Record: rec, Err: err})
	}
	return results, nil
}
