package service

import (
	"context"
	"time"

	"scoda_backend/internals/features/attendance/model"
	"scoda_backend/internals/helpers/dbtime"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var historyKey = []clause.Column{
	{Name: "attendance_history_student_id"},
	{Name: "attendance_history_day"},
	{Name: "attendance_history_status"},
}

// HistoryLedger is the append-only transition log.
type HistoryLedger struct {
	DB *gorm.DB
}

func NewHistoryLedger(db *gorm.DB) *HistoryLedger { return &HistoryLedger{DB: db} }

// Append writes entry unless (student, day, status) is already logged.
// It reports whether a row was inserted; a duplicate is not an error.
func (l *HistoryLedger) Append(ctx context.Context, tx *gorm.DB, entry *model.AttendanceHistoryModel) (bool, error) {
	db := l.DB
	if tx != nil {
		db = tx
	}
	entry.AttendanceHistoryDay = dbtime.NormalizeDay(entry.AttendanceHistoryDay)
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: historyKey, DoNothing: true}).
		Create(entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ForStudentDay returns a student's transitions of one day, oldest first.
func (l *HistoryLedger) ForStudentDay(ctx context.Context, studentID uuid.UUID, day time.Time) ([]model.AttendanceHistoryModel, error) {
	var out []model.AttendanceHistoryModel
	err := l.DB.WithContext(ctx).
		Where("attendance_history_student_id = ? AND attendance_history_day = ?", studentID, dbtime.NormalizeDay(day)).
		Order("attendance_history_changed_at ASC").
		Find(&out).Error
	return out, err
}

// ByActorSince is the lookback used to see what one staff member registered
// inside a batching window.
func (l *HistoryLedger) ByActorSince(ctx context.Context, actor uuid.UUID, since time.Time, status *model.Status) ([]model.AttendanceHistoryModel, error) {
	q := l.DB.WithContext(ctx).
		Where("attendance_history_registered_by = ? AND attendance_history_changed_at >= ?", actor, since)
	if status != nil {
		q = q.Where("attendance_history_status = ?", *status)
	}
	var out []model.AttendanceHistoryModel
	err := q.Order("attendance_history_changed_at ASC").Find(&out).Error
	return out, err
}
