// internals/features/notifications/controller/notification_controller.go
package controller

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"scoda_backend/internals/features/notifications/batcher"
	"scoda_backend/internals/features/notifications/model"
	helper "scoda_backend/internals/helpers"
)

// StatsSource is satisfied by *batcher.Batcher.
type StatsSource interface {
	Stats() batcher.Stats
}

type NotificationController struct {
	DB    *gorm.DB
	Stats StatsSource
	Now   func() time.Time
}

func NewNotificationController(db *gorm.DB, stats StatsSource) *NotificationController {
	return &NotificationController{DB: db, Stats: stats, Now: time.Now}
}

// GET /api/notifications/me?unread=true&page=&per_page=
func (ctl *NotificationController) ListMine(c *fiber.Ctx) error {
	userID, err := helper.GetUserIDFromToken(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	p := helper.ResolvePaging(c, 20, 100)

	q := ctl.DB.WithContext(c.UserContext()).Model(&model.NotificationModel{}).
		Where("notification_user_id = ?", userID)
	if c.QueryBool("unread", false) {
		q = q.Where("notification_is_read = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return helper.FromFiberError(c, err)
	}
	var rows []model.NotificationModel
	if err := q.Order("notification_created_at DESC").
		Offset(p.Offset).Limit(p.Limit).
		Find(&rows).Error; err != nil {
		return helper.FromFiberError(c, err)
	}

	pg := helper.BuildPaginationFromPage(total, p.Page, p.PerPage, len(rows))
	return helper.JsonList(c, "notifications", rows, &pg)
}

// PATCH /api/notifications/:id/read
func (ctl *NotificationController) MarkRead(c *fiber.Ctx) error {
	userID, err := helper.GetUserIDFromToken(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	db := ctl.DB.WithContext(c.UserContext())
	var row model.NotificationModel
	if err := db.Where("notification_id = ? AND notification_user_id = ?", id, userID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.JsonError(c, fiber.StatusNotFound, "notification not found")
		}
		return helper.FromFiberError(c, err)
	}
	if row.NotificationIsRead {
		return helper.JsonUpdated(c, "already read", row)
	}

	now := ctl.Now()
	if err := db.Model(&row).Updates(map[string]any{
		"notification_is_read": true,
		"notification_read_at": now,
	}).Error; err != nil {
		return helper.FromFiberError(c, err)
	}
	row.NotificationIsRead = true
	row.NotificationReadAt = &now
	return helper.JsonUpdated(c, "marked as read", row)
}

// GET /api/notifications/stats (admin)
func (ctl *NotificationController) BatcherStats(c *fiber.Ctx) error {
	if ctl.Stats == nil {
		return helper.JsonError(c, fiber.StatusServiceUnavailable, "notifications are disabled")
	}
	return helper.JsonOK(c, "batcher stats", ctl.Stats.Stats())
}
