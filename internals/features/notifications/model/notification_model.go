// internals/features/notifications/model/notification_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationKind string

const (
	NotificationIndividual NotificationKind = "individual"
	NotificationDigest     NotificationKind = "digest"
)

// NotificationModel is one in-app inbox entry for a user with an account.
type NotificationModel struct {
	NotificationID uuid.UUID `gorm:"type:uuid;primaryKey;column:notification_id" json:"notification_id"`

	NotificationUserID   uuid.UUID        `gorm:"type:uuid;not null;index:idx_notification_user_read,priority:1;column:notification_user_id" json:"notification_user_id"`
	NotificationPersonID uuid.UUID        `gorm:"type:uuid;not null;column:notification_person_id" json:"notification_person_id"`
	NotificationKind     NotificationKind `gorm:"type:varchar(16);not null;column:notification_kind" json:"notification_kind"`
	NotificationSubject  string           `gorm:"type:varchar(255);not null;column:notification_subject" json:"notification_subject"`
	NotificationBody     string           `gorm:"type:text;not null;column:notification_body" json:"notification_body"`
	// the pickup events the notice covers
	NotificationPayload datatypes.JSON `gorm:"type:jsonb;column:notification_payload" json:"notification_payload,omitempty"`

	NotificationIsRead bool       `gorm:"not null;index:idx_notification_user_read,priority:2;column:notification_is_read" json:"notification_is_read"`
	NotificationReadAt *time.Time `gorm:"column:notification_read_at" json:"notification_read_at,omitempty"`

	NotificationCreatedAt time.Time `gorm:"column:notification_created_at;autoCreateTime" json:"notification_created_at"`
}

func (NotificationModel) TableName() string { return "notifications" }

func (m *NotificationModel) BeforeCreate(*gorm.DB) error {
	if m.NotificationID == uuid.Nil {
		m.NotificationID = uuid.New()
	}
	return nil
}
