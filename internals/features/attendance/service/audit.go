package service

import (
	"context"
	"log"
	"time"

	"scoda_backend/internals/features/attendance/model"

	"github.com/google/uuid"
)

type AuditKind string

const (
	AuditNotAuthorized   AuditKind = "not_authorized"
	AuditAlreadyRecorded AuditKind = "already_recorded"
)

// AuditEvent describes a rejected transition for operators.
type AuditEvent struct {
	Kind         AuditKind
	Actor        uuid.UUID
	StudentID    uuid.UUID
	EnrollmentID uuid.UUID
	Day          time.Time
	Attempted    model.Status
	Existing     model.Status
	PickedUpBy   *uuid.UUID
}

// AuditSink is told about every NotAuthorized and AlreadyRecorded outcome.
// It must not block.
type AuditSink interface {
	Rejected(ctx context.Context, ev AuditEvent)
}

type LogAuditSink struct{}

func (LogAuditSink) Rejected(_ context.Context, ev AuditEvent) {
	switch ev.Kind {
	case AuditNotAuthorized:
		log.Printf("[AUDIT] %s actor=%s student=%s day=%s picked_up_by=%s",
			ev.Kind, ev.Actor, ev.StudentID, ev.Day.Format("2006-01-02"), uuidOrDash(ev.PickedUpBy))
	default:
		log.Printf("[AUDIT] %s actor=%s student=%s enrollment=%s day=%s attempted=%s existing=%s",
			ev.Kind, ev.Actor, ev.StudentID, ev.EnrollmentID, ev.Day.Format("2006-01-02"), ev.Attempted, ev.Existing)
	}
}

func uuidOrDash(id *uuid.UUID) string {
	if id == nil {
		return "-"
	}
	return id.String()
}
