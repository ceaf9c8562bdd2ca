// internals/features/attendance/controller/attendance_controller.go
package controller

import (
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"scoda_backend/internals/features/attendance/dto"
	"scoda_backend/internals/features/attendance/model"
	"scoda_backend/internals/features/attendance/service"
	helper "scoda_backend/internals/helpers"
	"scoda_backend/internals/helpers/dbtime"
	helperOSS "scoda_backend/internals/helpers/oss"
)

const (
	maxRangeDays      = 93
	maxLookbackMinute = 24 * 60
)

type AttendanceController struct {
	Transitions *service.TransitionService
	Seeder      *service.AbsentSeeder
	// nil disables evidence uploads
	Blob     helperOSS.BlobService
	Validate *validator.Validate
}

func NewAttendanceController(ts *service.TransitionService, seeder *service.AbsentSeeder, blob helperOSS.BlobService, v *validator.Validate) *AttendanceController {
	if v == nil {
		v = validator.New(validator.WithRequiredStructEnabled())
	}
	return &AttendanceController{Transitions: ts, Seeder: seeder, Blob: blob, Validate: v}
}

func (ctl *AttendanceController) now() time.Time { return ctl.Transitions.Clock.Now() }

func (ctl *AttendanceController) today() time.Time {
	return dbtime.DayOf(ctl.now(), ctl.Transitions.Location)
}

func parseStatusQuery(c *fiber.Ctx) (*model.Status, bool) {
	raw := strings.TrimSpace(c.Query("status"))
	if raw == "" {
		return nil, true
	}
	st, ok := model.ParseStatus(raw)
	if !ok {
		return nil, false
	}
	return &st, true
}

/* =========================================================
   WRITE
========================================================= */

// POST /api/attendance/records
func (ctl *AttendanceController) RecordStatus(c *fiber.Ctx) error {
	actor, err := helper.GetUserIDFromToken(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	var req dto.RecordStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid JSON body")
	}
	if err := ctl.Validate.Struct(req); err != nil {
		return helper.ValidationError(c, err)
	}
	in, err := req.ToInput(actor)
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	rec, err := ctl.Transitions.RecordStatus(c.UserContext(), in)
	if err != nil {
		return writeServiceError(c, err)
	}
	return helper.JsonCreated(c, "status recorded", rec)
}

// POST /api/attendance/records/bulk
func (ctl *AttendanceController) RecordBulk(c *fiber.Ctx) error {
	actor, err := helper.GetUserIDFromToken(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	var req dto.BulkRecordRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid JSON body")
	}
	if err := ctl.Validate.Struct(req); err != nil {
		return helper.ValidationError(c, err)
	}
	in, err := req.ToInput(actor)
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	results, err := ctl.Transitions.RecordBatch(c.UserContext(), in)
	if err != nil {
		return writeServiceError(c, err)
	}

	resp := dto.BulkRecordResponse{Results: make([]dto.BulkItemResult, 0, len(results))}
	for _, r := range results {
		item := dto.BulkItemResult{StudentID: r.StudentID, EnrollmentID: r.EnrollmentID}
		if r.Err == nil {
			item.OK = true
			item.Record = r.Record
			resp.Recorded++
		} else {
			_, code, known := classify(r.Err)
			item.ErrorCode = code
			item.Error = r.Err.Error()
			if !known {
				log.Printf("[ERROR] bulk item student=%s enrollment=%s: %v", r.StudentID, r.EnrollmentID, r.Err)
				item.Error = "internal error"
			}
			item.ExistingStatus = existingStatus(r.Err)
			resp.Rejected++
		}
		resp.Results = append(resp.Results, item)
	}
	return helper.JsonOK(c, "bulk registration processed", resp)
}

/* =========================================================
   READ
========================================================= */

// GET /api/attendance/records?day=&status=&course_id=&student_id=
// GET /api/attendance/records?from=&to=&...
func (ctl *AttendanceController) ListRecords(c *fiber.Ctx) error {
	status, ok := parseStatusQuery(c)
	if !ok {
		return helper.JsonErrorCode(c, fiber.StatusUnprocessableEntity, "INVALID_STATUS", "unknown status "+c.Query("status"), nil)
	}
	courseID, err := helper.ParseUUIDQuery(c, "course_id")
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	studentID, err := helper.ParseUUIDQuery(c, "student_id")
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	p := helper.ResolvePaging(c, 50, 500)
	f := service.ListFilter{CourseID: courseID, StudentID: studentID, Limit: p.Limit, Offset: p.Offset}
	store := ctl.Transitions.Store

	var (
		rows  []model.AttendanceRecordModel
		total int64
	)
	fromRaw, toRaw := strings.TrimSpace(c.Query("from")), strings.TrimSpace(c.Query("to"))
	if fromRaw != "" || toRaw != "" {
		if fromRaw == "" || toRaw == "" {
			return helper.JsonError(c, fiber.StatusBadRequest, "from and to must be given together")
		}
		from, err1 := dbtime.ParseDay(fromRaw)
		to, err2 := dbtime.ParseDay(toRaw)
		if err1 != nil || err2 != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "from and to must be YYYY-MM-DD")
		}
		if to.Before(from) {
			return helper.JsonError(c, fiber.StatusBadRequest, "to is before from")
		}
		if to.Sub(from) > maxRangeDays*24*time.Hour {
			return helper.JsonError(c, fiber.StatusBadRequest, "range is limited to 93 days")
		}
		rows, total, err = store.ListRange(c.UserContext(), from, to, status, f)
	} else {
		day, derr := dbtime.DayParam(c, "day", ctl.now())
		if derr != nil {
			return helper.FromFiberError(c, derr)
		}
		rows, total, err = store.ListByDayAndStatus(c.UserContext(), day, status, f)
	}
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	pg := helper.BuildPaginationFromPage(total, p.Page, p.PerPage, len(rows))
	return helper.JsonList(c, "attendance records", rows, &pg)
}

// GET /api/attendance/history?student_id=&day=
// GET /api/attendance/history?actor=&minutes=&status=
func (ctl *AttendanceController) History(c *fiber.Ctx) error {
	ledger := ctl.Transitions.Ledger

	studentID, err := helper.ParseUUIDQuery(c, "student_id")
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	if studentID != nil {
		day, err := dbtime.DayParam(c, "day", ctl.now())
		if err != nil {
			return helper.FromFiberError(c, err)
		}
		rows, err := ledger.ForStudentDay(c.UserContext(), *studentID, day)
		if err != nil {
			return helper.FromFiberError(c, err)
		}
		return helper.JsonList(c, "history", rows, nil)
	}

	actor, err := helper.ParseUUIDQuery(c, "actor")
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	if actor == nil {
		self, err := helper.GetUserIDFromToken(c)
		if err != nil {
			return helper.FromFiberError(c, err)
		}
		actor = &self
	}
	status, ok := parseStatusQuery(c)
	if !ok {
		return helper.JsonErrorCode(c, fiber.StatusUnprocessableEntity, "INVALID_STATUS", "unknown status "+c.Query("status"), nil)
	}
	minutes := c.QueryInt("minutes", 60)
	if minutes < 1 || minutes > maxLookbackMinute {
		return helper.JsonError(c, fiber.StatusBadRequest, "minutes must be between 1 and 1440")
	}

	since := ctl.now().Add(-time.Duration(minutes) * time.Minute)
	rows, err := ledger.ByActorSince(c.UserContext(), *actor, since, status)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	return helper.JsonList(c, "history", rows, nil)
}

// GET /api/attendance/authorizations/check?student_id=&person_id=
func (ctl *AttendanceController) CheckAuthorization(c *fiber.Ctx) error {
	studentID, err := helper.ParseUUIDQuery(c, "student_id")
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	personID, err := helper.ParseUUIDQuery(c, "person_id")
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	if studentID == nil || personID == nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "student_id and person_id are required")
	}

	ok, err := ctl.Transitions.Roster.IsAuthorized(c.UserContext(), *studentID, *personID)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	return helper.JsonOK(c, "authorization checked", dto.AuthorizationCheckResponse{
		StudentID:  *studentID,
		PersonID:   *personID,
		Authorized: ok,
	})
}

/* =========================================================
   EVIDENCE & SEEDING
========================================================= */

// POST /api/attendance/evidence (multipart: student_id, day?, photo)
func (ctl *AttendanceController) UploadEvidence(c *fiber.Ctx) error {
	if ctl.Blob == nil {
		return helper.JsonError(c, fiber.StatusServiceUnavailable, "evidence storage is not configured")
	}
	fh, err := helperOSS.GetImageFile(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	if fh == nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "photo is required")
	}

	studentID, err := helper.ParseUUIDFormValue(c, "student_id")
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	day := ctl.today()
	if raw := strings.TrimSpace(c.FormValue("day")); raw != "" {
		if day, err = dbtime.ParseDay(raw); err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "day must be YYYY-MM-DD")
		}
	}

	url, key, err := ctl.Blob.UploadEvidence(c.UserContext(), studentID, day, fh)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	return helper.JsonCreated(c, "evidence uploaded", dto.EvidenceResponse{EvidenceRef: url, ObjectKey: key})
}

// POST /api/attendance/seed-absent (admin)
func (ctl *AttendanceController) SeedAbsent(c *fiber.Ctx) error {
	if ctl.Seeder == nil {
		return helper.JsonError(c, fiber.StatusServiceUnavailable, "seeding is not configured")
	}

	var req dto.SeedAbsentRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "invalid JSON body")
		}
		if err := ctl.Validate.Struct(req); err != nil {
			return helper.ValidationError(c, err)
		}
	}
	day, err := req.ParsedDay()
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	if day.IsZero() {
		day = ctl.today()
	}

	n, err := ctl.Seeder.SeedAbsent(c.UserContext(), day, req.SchoolID)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	return helper.JsonOK(c, "absent seeding done", fiber.Map{
		"day":     day.Format(dbtime.DayLayout),
		"created": n,
	})
}
