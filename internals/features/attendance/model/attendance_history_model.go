// internals/features/attendance/model/attendance_history_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttendanceHistoryModel is insert-only. A status is logged at most once per
// student per day.
type AttendanceHistoryModel struct {
	AttendanceHistoryID uuid.UUID `gorm:"type:uuid;primaryKey;column:attendance_history_id" json:"attendance_history_id"`

	AttendanceHistoryRecordID     uuid.UUID `gorm:"type:uuid;not null;index:idx_attendance_history_record;column:attendance_history_record_id" json:"attendance_history_record_id"`
	AttendanceHistoryStudentID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_attendance_history_key,priority:1;column:attendance_history_student_id" json:"attendance_history_student_id"`
	AttendanceHistoryEnrollmentID uuid.UUID `gorm:"type:uuid;not null;column:attendance_history_enrollment_id" json:"attendance_history_enrollment_id"`
	AttendanceHistoryDay          time.Time `gorm:"type:date;not null;uniqueIndex:uq_attendance_history_key,priority:2;column:attendance_history_day" json:"attendance_history_day"`
	AttendanceHistoryStatus       Status    `gorm:"type:varchar(16);not null;uniqueIndex:uq_attendance_history_key,priority:3;column:attendance_history_status" json:"attendance_history_status"`

	AttendanceHistoryObservation  string     `gorm:"type:text;not null;default:'';column:attendance_history_observation" json:"attendance_history_observation"`
	AttendanceHistoryRegisteredBy *uuid.UUID `gorm:"type:uuid;index:idx_attendance_history_actor_changed,priority:1;column:attendance_history_registered_by" json:"attendance_history_registered_by,omitempty"`
	AttendanceHistoryPickedUpBy   *uuid.UUID `gorm:"type:uuid;column:attendance_history_picked_up_by" json:"attendance_history_picked_up_by,omitempty"`

	AttendanceHistoryChangedAt time.Time `gorm:"not null;index:idx_attendance_history_actor_changed,priority:2;column:attendance_history_changed_at" json:"attendance_history_changed_at"`
}

func (AttendanceHistoryModel) TableName() string { return "attendance_history" }

func (m *AttendanceHistoryModel) BeforeCreate(*gorm.DB) error {
	if m.AttendanceHistoryID == uuid.Nil {
		m.AttendanceHistoryID = uuid.New()
	}
	if m.AttendanceHistoryChangedAt.IsZero() {
		m.AttendanceHistoryChangedAt = time.Now()
	}
	return nil
}

// HistoryFromRecord copies the transition fields of a stored record.
func HistoryFromRecord(r *AttendanceRecordModel, at time.Time) *AttendanceHistoryModel {
	return &AttendanceHistoryModel{
		AttendanceHistoryRecordID:     r.AttendanceRecordID,
		AttendanceHistoryStudentID:    r.AttendanceRecordStudentID,
		AttendanceHistoryEnrollmentID: r.AttendanceRecordEnrollmentID,
		AttendanceHistoryDay:          r.AttendanceRecordDay,
		AttendanceHistoryStatus:       r.AttendanceRecordStatus,
		AttendanceHistoryObservation:  r.AttendanceRecordObservation,
		AttendanceHistoryRegisteredBy: r.AttendanceRecordRegisteredBy,
		AttendanceHistoryPickedUpBy:   r.AttendanceRecordPickedUpBy,
		AttendanceHistoryChangedAt:    at,
	}
}

func All() []any {
	return []any{&AttendanceRecordModel{}, &AttendanceHistoryModel{}}
}
