package service

import (
	"errors"
	"fmt"

	"scoda_backend/internals/features/attendance/model"
)

var (
	ErrInvalidStatus     = errors.New("invalid attendance status")
	ErrInvalidInput      = errors.New("invalid attendance input")
	ErrUnknownEnrollment = errors.New("enrollment does not belong to student")
	ErrNotAuthorized     = errors.New("person is not authorized to pick up this student")
	ErrAlreadyRecorded   = errors.New("status already recorded for this day")
)

// AlreadyRecordedError carries the row that won the day.
// errors.Is(err, ErrAlreadyRecorded) matches it.
type AlreadyRecordedError struct {
	Existing *model.AttendanceRecordModel
}

func (e *AlreadyRecordedError) Error() string {
	if e.Existing == nil {
		return ErrAlreadyRecorded.Error()
	}
	return fmt.Sprintf("%s: %s", ErrAlreadyRecorded, e.Existing.AttendanceRecordStatus)
}

func (e *AlreadyRecordedError) Is(target error) bool { return target == ErrAlreadyRecorded }

func (e *AlreadyRecordedError) ExistingStatus() model.Status {
	if e.Existing == nil {
		return ""
	}
	return e.Existing.AttendanceRecordStatus
}
