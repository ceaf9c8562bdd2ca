package routes

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	notifCtl "scoda_backend/internals/features/notifications/controller"
)

func BaseRoutes(app *fiber.App, db *gorm.DB, stats notifCtl.StatsSource) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("SCODA attendance service")
	})

	health := healthHandler(db, stats)
	app.Get("/health", health)
	app.Get("/api/health", health)
}

func healthHandler(db *gorm.DB, stats notifCtl.StatsSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbStatus := "Connected"
		serverStatus := "OK"
		httpStatus := fiber.StatusOK

		if db == nil {
			dbStatus = "Database not configured"
			serverStatus = "DOWN"
			httpStatus = fiber.StatusServiceUnavailable
		} else if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
			dbStatus = "Database connection error"
			serverStatus = "DOWN"
			httpStatus = fiber.StatusServiceUnavailable
		}

		body := fiber.Map{
			"status":         serverStatus,
			"database":       dbStatus,
			"server_time":    time.Now().Format(time.RFC3339),
			"uptime_seconds": int(time.Since(startTime).Seconds()),
			"environment":    os.Getenv("RAILWAY_ENVIRONMENT"),
		}
		if stats != nil {
			s := stats.Stats()
			body["notify_queue_depth"] = s.QueueDepth
			body["notify_pending_actors"] = s.PendingActors
		}
		return c.Status(httpStatus).JSON(body)
	}
}
