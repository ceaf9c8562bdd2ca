// file: internals/route/index.go
package routes

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	attendanceCtl "scoda_backend/internals/features/attendance/controller"
	attendanceRoute "scoda_backend/internals/features/attendance/route"
	notifCtl "scoda_backend/internals/features/notifications/controller"
	notifRoute "scoda_backend/internals/features/notifications/route"
	authMiddleware "scoda_backend/internals/middlewares/auth"
)

var startTime = time.Now()

type Deps struct {
	Attendance *attendanceCtl.AttendanceController
	Stats      notifCtl.StatsSource

	JWTSecret string
	APIKey    string
	APIUserID uuid.UUID
}

func SetupRoutes(app *fiber.App, db *gorm.DB, d Deps) {
	startTime = time.Now()

	log.Println("[INFO] Setting up BaseRoutes...")
	BaseRoutes(app, db, d.Stats)

	// X-API-KEY first; requests without it must carry a JWT
	log.Println("[INFO] Setting up API group (API key + JWT)...")
	api := app.Group("/api",
		authMiddleware.APIKeyAuth(d.APIKey, d.APIUserID),
		authMiddleware.AuthJWT(d.JWTSecret),
	)

	log.Println("[INFO] Mounting Attendance routes...")
	attendanceRoute.AttendanceRoutes(api, d.Attendance)

	log.Println("[INFO] Mounting Notification routes...")
	notifRoute.NotificationRoutes(api, db, d.Stats)
}
