package middlewares

import (
	"github.com/gofiber/fiber/v2"

	"scoda_backend/internals/middlewares/logger"
)

func SetupMiddlewares(app *fiber.App, timeZone string) {
	app.Use(RecoveryMiddleware())
	app.Use(CorsMiddleware())
	app.Use(logger.LoggerMiddleware(timeZone))
	app.Use(GlobalRateLimiter())
}
