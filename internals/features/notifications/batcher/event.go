package batcher

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PickupEvent is what guardians are told about one PICKED_UP record.
type PickupEvent struct {
	RecordID    uuid.UUID `json:"record_id"`
	StudentID   uuid.UUID `json:"student_id"`
	StudentName string    `json:"student_name"`
	CourseName  string    `json:"course_name,omitempty"`
	// UTC midnight of the school-local calendar day
	Day time.Time `json:"day"`
	// in the school's timezone
	RegisteredAt     time.Time  `json:"registered_at"`
	RegisteredBy     uuid.UUID  `json:"registered_by"`
	RegisteredByName string     `json:"registered_by_name,omitempty"`
	PickedUpBy       *uuid.UUID `json:"picked_up_by,omitempty"`
	PickedUpByName   string     `json:"picked_up_by_name,omitempty"`
	EarlyDismissal   bool       `json:"early_dismissal"`
	Observation      string     `json:"observation,omitempty"`
}

// Recipient is the contact a pickup notice goes to.
type Recipient struct {
	PersonID uuid.UUID
	UserID   *uuid.UUID
	Name     string
	Email    string
}

// Sender delivers notices. Both calls may fail independently of stored state.
type Sender interface {
	SendIndividual(ctx context.Context, to Recipient, ev PickupEvent) error
	SendDigest(ctx context.Context, to Recipient, events []PickupEvent) error
}

// RecipientResolver finds who is told about a student's pickup.
type RecipientResolver interface {
	RecipientFor(ctx context.Context, studentID uuid.UUID) (Recipient, error)
}

type bufferedEvent struct {
	event      PickupEvent
	bufferedAt time.Time
}
