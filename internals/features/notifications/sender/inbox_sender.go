package sender

import (
	"context"

	"scoda_backend/internals/features/notifications/batcher"
	"scoda_backend/internals/features/notifications/model"

	"github.com/bytedance/sonic"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InboxSender writes in-app notifications. Recipients without a user
// account are skipped silently.
type InboxSender struct {
	DB *gorm.DB
}

func NewInboxSender(db *gorm.DB) *InboxSender { return &InboxSender{DB: db} }

func (s *InboxSender) SendIndividual(ctx context.Context, to batcher.Recipient, ev batcher.PickupEvent) error {
	return s.write(ctx, to, model.NotificationIndividual, IndividualMessage(to, ev), []batcher.PickupEvent{ev})
}

func (s *InboxSender) SendDigest(ctx context.Context, to batcher.Recipient, events []batcher.PickupEvent) error {
	return s.write(ctx, to, model.NotificationDigest, DigestMessage(to, events), events)
}

func (s *InboxSender) write(ctx context.Context, to batcher.Recipient, kind model.NotificationKind, msg Message, events []batcher.PickupEvent) error {
	if to.UserID == nil {
		return nil
	}
	payload, err := sonic.Marshal(events)
	if err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Create(&model.NotificationModel{
		NotificationUserID:   *to.UserID,
		NotificationPersonID: to.PersonID,
		NotificationKind:     kind,
		NotificationSubject:  msg.Subject,
		NotificationBody:     msg.Text,
		NotificationPayload:  datatypes.JSON(payload),
	}).Error
}
