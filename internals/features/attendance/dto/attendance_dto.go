// internals/features/attendance/dto/attendance_dto.go
package dto

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"scoda_backend/internals/features/attendance/model"
	"scoda_backend/internals/features/attendance/service"
	"scoda_backend/internals/helpers/dbtime"
)

/* =========================================================
   RECORD (single)
========================================================= */

type RecordStatusRequest struct {
	StudentID    uuid.UUID `json:"student_id" validate:"required"`
	EnrollmentID uuid.UUID `json:"enrollment_id" validate:"required"`
	// "YYYY-MM-DD"; empty means today on the school calendar
	Day         *string    `json:"day" validate:"omitempty,datetime=2006-01-02"`
	Status      string     `json:"status" validate:"required,max=32"`
	Observation string     `json:"observation" validate:"omitempty,max=2000"`
	PickedUpBy  *uuid.UUID `json:"picked_up_by" validate:"omitempty"`
	EvidenceRef *string    `json:"evidence_ref" validate:"omitempty,max=1024"`
	CourseID    *uuid.UUID `json:"course_id" validate:"omitempty"`
}

func parseOptionalDay(raw *string) (time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return time.Time{}, nil
	}
	d, err := dbtime.ParseDay(*raw)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "day must be YYYY-MM-DD")
	}
	return d, nil
}

func (r RecordStatusRequest) ToInput(actor uuid.UUID) (service.RecordInput, error) {
	day, err := parseOptionalDay(r.Day)
	if err != nil {
		return service.RecordInput{}, err
	}
	return service.RecordInput{
		StudentID:    r.StudentID,
		EnrollmentID: r.EnrollmentID,
		Day:          day,
		Status:       r.Status,
		Actor:        actor,
		Observation:  r.Observation,
		PickedUpBy:   r.PickedUpBy,
		EvidenceRef:  r.EvidenceRef,
		CourseID:     r.CourseID,
	}, nil
}

/* =========================================================
   BULK (course / van)
========================================================= */

type BulkItemRequest struct {
	StudentID    uuid.UUID  `json:"student_id" validate:"required"`
	EnrollmentID uuid.UUID  `json:"enrollment_id" validate:"required"`
	Status       string     `json:"status" validate:"omitempty,max=32"`
	Observation  string     `json:"observation" validate:"omitempty,max=2000"`
	PickedUpBy   *uuid.UUID `json:"picked_up_by" validate:"omitempty"`
}

// BulkRecordRequest with no items applies Status to every active enrollment
// of CourseID.
type BulkRecordRequest struct {
	Day         *string           `json:"day" validate:"omitempty,datetime=2006-01-02"`
	Status      string            `json:"status" validate:"omitempty,max=32"`
	Observation string            `json:"observation" validate:"omitempty,max=2000"`
	CourseID    *uuid.UUID        `json:"course_id" validate:"required_without=Items"`
	Items       []BulkItemRequest `json:"items" validate:"omitempty,max=500,dive"`
}

func (r BulkRecordRequest) ToInput(actor uuid.UUID) (service.BatchInput, error) {
	day, err := parseOptionalDay(r.Day)
	if err != nil {
		return service.BatchInput{}, err
	}
	in := service.BatchInput{
		Actor:       actor,
		Day:         day,
		Status:      r.Status,
		Observation: r.Observation,
		CourseID:    r.CourseID,
	}
	for _, it := range r.Items {
		in.Items = append(in.Items, service.BatchItem{
			StudentID:    it.StudentID,
			EnrollmentID: it.EnrollmentID,
			Status:       it.Status,
			Observation:  it.Observation,
			PickedUpBy:   it.PickedUpBy,
		})
	}
	return in, nil
}

type BulkItemResult struct {
	StudentID      uuid.UUID                    `json:"student_id"`
	EnrollmentID   uuid.UUID                    `json:"enrollment_id"`
	OK             bool                         `json:"ok"`
	Record         *model.AttendanceRecordModel `json:"record,omitempty"`
	ErrorCode      string                       `json:"error_code,omitempty"`
	Error          string                       `json:"error,omitempty"`
	ExistingStatus model.Status                 `json:"existing_status,omitempty"`
}

type BulkRecordResponse struct {
	Recorded int              `json:"recorded"`
	Rejected int              `json:"rejected"`
	Results  []BulkItemResult `json:"results"`
}

/* =========================================================
   MISC
========================================================= */

type SeedAbsentRequest struct {
	Day      *string    `json:"day" validate:"omitempty,datetime=2006-01-02"`
	SchoolID *uuid.UUID `json:"school_id" validate:"omitempty"`
}

func (r SeedAbsentRequest) ParsedDay() (time.Time, error) { return parseOptionalDay(r.Day) }

type AuthorizationCheckResponse struct {
	StudentID  uuid.UUID `json:"student_id"`
	PersonID   uuid.UUID `json:"person_id"`
	Authorized bool      `json:"authorized"`
}

type EvidenceResponse struct {
	EvidenceRef string `json:"evidence_ref"`
	ObjectKey   string `json:"object_key"`
}
