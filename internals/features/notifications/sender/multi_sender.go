package sender

import (
	"context"
	"errors"
	"log"

	"scoda_backend/internals/features/notifications/batcher"
)

// Multi fans a notice out to every sender. All senders are tried; the
// errors are joined.
type Multi []batcher.Sender

func (m Multi) SendIndividual(ctx context.Context, to batcher.Recipient, ev batcher.PickupEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.SendIndividual(ctx, to, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) SendDigest(ctx context.Context, to batcher.Recipient, events []batcher.PickupEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.SendDigest(ctx, to, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSender stands in for SMTP when no mail server is configured.
type LogSender struct{}

func (LogSender) SendIndividual(_ context.Context, to batcher.Recipient, ev batcher.PickupEvent) error {
	log.Printf("[NOTIFY] (no smtp) individual to %s <%s>: record=%s", to.Name, to.Email, ev.RecordID)
	return nil
}

func (LogSender) SendDigest(_ context.Context, to batcher.Recipient, events []batcher.PickupEvent) error {
	log.Printf("[NOTIFY] (no smtp) digest to %s <%s>: %d pickups", to.Name, to.Email, len(events))
	return nil
}
