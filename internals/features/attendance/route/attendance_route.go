package route

import (
	"github.com/gofiber/fiber/v2"

	"scoda_backend/internals/constants"
	"scoda_backend/internals/features/attendance/controller"
	"scoda_backend/internals/middlewares"
	authMiddleware "scoda_backend/internals/middlewares/auth"
)

// AttendanceRoutes mounts under an authenticated group.
//
//	api := app.Group("/api", auth...)
//	route.AttendanceRoutes(api, ctl)
func AttendanceRoutes(api fiber.Router, ctl *controller.AttendanceController) {
	g := api.Group("/attendance",
		authMiddleware.OnlyRoles(constants.RoleErrorStaff("attendance"), constants.StaffRoles...),
	)

	g.Post("/records", ctl.RecordStatus)
	g.Post("/records/bulk", ctl.RecordBulk)
	g.Get("/records", ctl.ListRecords)
	g.Get("/history", ctl.History)
	g.Get("/authorizations/check", ctl.CheckAuthorization)
	g.Post("/evidence", middlewares.UploadRateLimiter(), ctl.UploadEvidence)

	g.Post("/seed-absent",
		authMiddleware.OnlyRoles(constants.RoleErrorAdmin("absent seeding"), constants.AdminOnly...),
		ctl.SeedAbsent,
	)
}
