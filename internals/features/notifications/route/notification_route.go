package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"scoda_backend/internals/constants"
	notifCtl "scoda_backend/internals/features/notifications/controller"
	authMiddleware "scoda_backend/internals/middlewares/auth"
)

// NotificationRoutes mounts under an authenticated group.
//
//	api := app.Group("/api", auth...)
//	route.NotificationRoutes(api, db, batcher)
func NotificationRoutes(api fiber.Router, db *gorm.DB, stats notifCtl.StatsSource) {
	ctl := notifCtl.NewNotificationController(db, stats)

	g := api.Group("/notifications")
	g.Get("/me", ctl.ListMine)
	g.Patch("/:id/read", ctl.MarkRead)
	g.Get("/stats",
		authMiddleware.OnlyRoles(constants.RoleErrorAdmin("notification stats"), constants.AdminOnly...),
		ctl.BatcherStats,
	)
}
