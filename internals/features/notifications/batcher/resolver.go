package batcher

import (
	"context"

	rosterModel "scoda_backend/internals/features/roster/model"

	"github.com/google/uuid"
)

type ContactLookup interface {
	PrimaryContact(ctx context.Context, studentID uuid.UUID) (*rosterModel.PersonModel, error)
}

// RosterResolver sends each student's notices to their primary contact.
type RosterResolver struct {
	Contacts ContactLookup
}

func (r RosterResolver) RecipientFor(ctx context.Context, studentID uuid.UUID) (Recipient, error) {
	p, err := r.Contacts.PrimaryContact(ctx, studentID)
	if err != nil {
		return Recipient{}, err
	}
	to := Recipient{
		PersonID: p.PersonID,
		UserID:   p.PersonUserID,
		Name:     p.FullName(),
	}
	if p.PersonEmail != nil {
		to.Email = *p.PersonEmail
	}
	return to, nil
}
