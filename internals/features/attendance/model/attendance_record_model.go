// internals/features/attendance/model/attendance_record_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttendanceRecordModel is the authoritative status of one enrollment on one
// day. The (student, enrollment, day) triple is unique; rows are never deleted.
type AttendanceRecordModel struct {
	AttendanceRecordID uuid.UUID `gorm:"type:uuid;primaryKey;column:attendance_record_id" json:"attendance_record_id"`

	AttendanceRecordStudentID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_attendance_record_key,priority:1;column:attendance_record_student_id" json:"attendance_record_student_id"`
	AttendanceRecordEnrollmentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_attendance_record_key,priority:2;index:idx_attendance_record_enrollment;column:attendance_record_enrollment_id" json:"attendance_record_enrollment_id"`
	AttendanceRecordDay          time.Time `gorm:"type:date;not null;uniqueIndex:uq_attendance_record_key,priority:3;index:idx_attendance_record_day_status,priority:1;column:attendance_record_day" json:"attendance_record_day"`

	AttendanceRecordStatus Status `gorm:"type:varchar(16);not null;index:idx_attendance_record_day_status,priority:2;column:attendance_record_status" json:"attendance_record_status"`

	// nil for rows created by the daily ABSENT seeding
	AttendanceRecordRegisteredBy *uuid.UUID `gorm:"type:uuid;column:attendance_record_registered_by" json:"attendance_record_registered_by,omitempty"`
	// only set for PICKED_UP
	AttendanceRecordPickedUpBy *uuid.UUID `gorm:"type:uuid;column:attendance_record_picked_up_by" json:"attendance_record_picked_up_by,omitempty"`

	AttendanceRecordObservation    string  `gorm:"type:text;not null;default:'';column:attendance_record_observation" json:"attendance_record_observation"`
	AttendanceRecordEvidenceRef    *string `gorm:"type:text;column:attendance_record_evidence_ref" json:"attendance_record_evidence_ref,omitempty"`
	AttendanceRecordEarlyDismissal bool    `gorm:"not null;column:attendance_record_early_dismissal" json:"attendance_record_early_dismissal"`

	AttendanceRecordCreatedAt time.Time `gorm:"column:attendance_record_created_at;autoCreateTime" json:"attendance_record_created_at"`
	AttendanceRecordUpdatedAt time.Time `gorm:"column:attendance_record_updated_at;autoUpdateTime" json:"attendance_record_updated_at"`
}

func (AttendanceRecordModel) TableName() string { return "attendance_records" }

func (m *AttendanceRecordModel) BeforeCreate(*gorm.DB) error {
	if m.AttendanceRecordID == uuid.Nil {
		m.AttendanceRecordID = uuid.New()
	}
	return nil
}
