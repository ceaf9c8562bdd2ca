package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scoda_backend/internals/features/attendance/model"
	"scoda_backend/internals/helpers/dbtime"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OutcomeKind int

const (
	OutcomeCreated OutcomeKind = iota
	OutcomeConflict
	OutcomeSuperseded
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCreated:
		return "created"
	case OutcomeSuperseded:
		return "superseded"
	default:
		return "conflict"
	}
}

// Outcome of TryCreate. Record is the stored row after the call: the new
// row when created or superseded, the untouched winner on conflict.
type Outcome struct {
	Kind     OutcomeKind
	Record   *model.AttendanceRecordModel
	Previous model.Status
}

var recordKey = []clause.Column{
	{Name: "attendance_record_student_id"},
	{Name: "attendance_record_enrollment_id"},
	{Name: "attendance_record_day"},
}

// StateStore owns attendance_records. One row per (student, enrollment, day);
// the first write wins unless AllowSupersede lets a provisional status
// (ABSENT, PRESENT) give way to a higher-ranked one.
type StateStore struct {
	DB             *gorm.DB
	AllowSupersede bool
}

func NewStateStore(db *gorm.DB, allowSupersede bool) *StateStore {
	return &StateStore{DB: db, AllowSupersede: allowSupersede}
}

func (s *StateStore) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return s.DB.WithContext(ctx)
}

// TryCreate inserts rec unless its key already exists. tx may be nil.
func (s *StateStore) TryCreate(ctx context.Context, tx *gorm.DB, rec *model.AttendanceRecordModel) (Outcome, error) {
	if !rec.AttendanceRecordStatus.Valid() {
		return Outcome{}, ErrInvalidStatus
	}
	db := s.conn(ctx, tx)
	rec.AttendanceRecordDay = dbtime.NormalizeDay(rec.AttendanceRecordDay)

	res := db.Clauses(clause.OnConflict{Columns: recordKey, DoNothing: true}).Create(rec)
	if res.Error != nil {
		return Outcome{}, fmt.Errorf("insert attendance record: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return Outcome{Kind: OutcomeCreated, Record: rec}, nil
	}

	existing, err := s.findByKey(db, rec.AttendanceRecordStudentID, rec.AttendanceRecordEnrollmentID, rec.AttendanceRecordDay)
	if err != nil {
		return Outcome{}, err
	}
	if !s.AllowSupersede || !model.CanSupersede(existing.AttendanceRecordStatus, rec.AttendanceRecordStatus) {
		return Outcome{Kind: OutcomeConflict, Record: existing}, nil
	}
	return s.supersede(db, existing, rec)
}

// supersede replaces existing only if nobody changed it since it was read.
func (s *StateStore) supersede(db *gorm.DB, existing, rec *model.AttendanceRecordModel) (Outcome, error) {
	res := db.Model(&model.AttendanceRecordModel{}).
		Where("attendance_record_id = ? AND attendance_record_status = ?", existing.AttendanceRecordID, existing.AttendanceRecordStatus).
		Updates(map[string]any{
			"attendance_record_status":          rec.AttendanceRecordStatus,
			"attendance_record_registered_by":   rec.AttendanceRecordRegisteredBy,
			"attendance_record_picked_up_by":    rec.AttendanceRecordPickedUpBy,
			"attendance_record_observation":     rec.AttendanceRecordObservation,
			"attendance_record_evidence_ref":    rec.AttendanceRecordEvidenceRef,
			"attendance_record_early_dismissal": rec.AttendanceRecordEarlyDismissal,
		})
	if res.Error != nil {
		return Outcome{}, fmt.Errorf("supersede attendance record: %w", res.Error)
	}

	current, err := s.findByKey(db, existing.AttendanceRecordStudentID, existing.AttendanceRecordEnrollmentID, existing.AttendanceRecordDay)
	if err != nil {
		return Outcome{}, err
	}
	if res.RowsAffected == 0 {
		// lost the race: someone else moved the row first
		return Outcome{Kind: OutcomeConflict, Record: current}, nil
	}
	*rec = *current
	return Outcome{Kind: OutcomeSuperseded, Record: rec, Previous: existing.AttendanceRecordStatus}, nil
}

func (s *StateStore) findByKey(db *gorm.DB, studentID, enrollmentID uuid.UUID, day time.Time) (*model.AttendanceRecordModel, error) {
	var m model.AttendanceRecordModel
	err := db.
		Where("attendance_record_student_id = ? AND attendance_record_enrollment_id = ? AND attendance_record_day = ?",
			studentID, enrollmentID, day).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("attendance record vanished after conflict: %w", err)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Get returns the stored row for a key, or nil when the day has no status yet.
func (s *StateStore) Get(ctx context.Context, studentID, enrollmentID uuid.UUID, day time.Time) (*model.AttendanceRecordModel, error) {
	var m model.AttendanceRecordModel
	err := s.DB.WithContext(ctx).
		Where("attendance_record_student_id = ? AND attendance_record_enrollment_id = ? AND attendance_record_day = ?",
			studentID, enrollmentID, dbtime.NormalizeDay(day)).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

/* =========================================================
   READ SIDE
========================================================= */

type ListFilter struct {
	EnrollmentIDs []uuid.UUID
	CourseID      *uuid.UUID
	StudentID     *uuid.UUID
	Limit         int
	Offset        int
}

func (s *StateStore) filtered(ctx context.Context, f ListFilter) *gorm.DB {
	q := s.DB.WithContext(ctx).Model(&model.AttendanceRecordModel{})
	if len(f.EnrollmentIDs) > 0 {
		q = q.Where("attendance_record_enrollment_id IN ?", f.EnrollmentIDs)
	}
	if f.CourseID != nil {
		q = q.Where("attendance_record_enrollment_id IN (?)",
			s.DB.Table("enrollments").Select("enrollment_id").Where("enrollment_course_id = ?", *f.CourseID))
	}
	if f.StudentID != nil {
		q = q.Where("attendance_record_student_id = ?", *f.StudentID)
	}
	return q
}

func (s *StateStore) page(q *gorm.DB, f ListFilter) ([]model.AttendanceRecordModel, int64, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	var out []model.AttendanceRecordModel
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListByDayAndStatus is the absentee/pickup list of a day. status nil means all.
func (s *StateStore) ListByDayAndStatus(ctx context.Context, day time.Time, status *model.Status, f ListFilter) ([]model.AttendanceRecordModel, int64, error) {
	q := s.filtered(ctx, f).Where("attendance_record_day = ?", dbtime.NormalizeDay(day))
	if status != nil {
		q = q.Where("attendance_record_status = ?", *status)
	}
	return s.page(q.Order("attendance_record_created_at ASC"), f)
}

// ListRange covers from..to inclusive.
func (s *StateStore) ListRange(ctx context.Context, from, to time.Time, status *model.Status, f ListFilter) ([]model.AttendanceRecordModel, int64, error) {
	q := s.filtered(ctx, f).
		Where("attendance_record_day >= ? AND attendance_record_day <= ?", dbtime.NormalizeDay(from), dbtime.NormalizeDay(to))
	if status != nil {
		q = q.Where("attendance_record_status = ?", *status)
	}
	return s.page(q.Order("attendance_record_day ASC, attendance_record_created_at ASC"), f)
}

/* =========================================================
   SEEDING
========================================================= */

// InsertAbsent creates ABSENT rows for the given enrollments on day,
// skipping keys that already have a status. Returns how many were created.
func (s *StateStore) InsertAbsent(ctx context.Context, day time.Time, keys []EnrollmentKey) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	day = dbtime.NormalizeDay(day)
	rows := make([]model.AttendanceRecordModel, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, model.AttendanceRecordModel{
			AttendanceRecordStudentID:    k.StudentID,
			AttendanceRecordEnrollmentID: k.EnrollmentID,
			AttendanceRecordDay:          day,
			AttendanceRecordStatus:       model.StatusAbsent,
		})
	}
	res := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: recordKey, DoNothing: true}).
		CreateInBatches(&rows, 200)
	if res.Error != nil {
		return 0, fmt.Errorf("seed absent: %w", res.Error)
	}
	return res.RowsAffected, nil
}

type EnrollmentKey struct {
	StudentID    uuid.UUID
	EnrollmentID uuid.UUID
}
