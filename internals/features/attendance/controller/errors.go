package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"scoda_backend/internals/features/attendance/model"
	"scoda_backend/internals/features/attendance/service"
	helper "scoda_backend/internals/helpers"
)

// classify maps service errors to an HTTP status and error_code.
// ok is false for unexpected (persistence) errors.
func classify(err error) (status int, code string, ok bool) {
	var fe *fiber.Error
	switch {
	case errors.Is(err, service.ErrAlreadyRecorded):
		return fiber.StatusConflict, "ALREADY_RECORDED", true
	case errors.Is(err, service.ErrNotAuthorized):
		return fiber.StatusForbidden, "NOT_AUTHORIZED", true
	case errors.Is(err, service.ErrInvalidStatus):
		return fiber.StatusUnprocessableEntity, "INVALID_STATUS", true
	case errors.Is(err, service.ErrUnknownEnrollment):
		return fiber.StatusUnprocessableEntity, "UNKNOWN_ENROLLMENT", true
	case errors.Is(err, service.ErrInvalidInput):
		return fiber.StatusBadRequest, "INVALID_INPUT", true
	case errors.As(err, &fe):
		return fe.Code, "", true
	}
	return fiber.StatusInternalServerError, "INTERNAL_ERROR", false
}

func existingStatus(err error) model.Status {
	var are *service.AlreadyRecordedError
	if errors.As(err, &are) {
		return are.ExistingStatus()
	}
	return ""
}

func writeServiceError(c *fiber.Ctx, err error) error {
	status, code, ok := classify(err)
	if !ok {
		return helper.FromFiberError(c, err)
	}
	if code == "ALREADY_RECORDED" {
		data := fiber.Map{"existing_status": existingStatus(err)}
		var are *service.AlreadyRecordedError
		if errors.As(err, &are) && are.Existing != nil {
			data["existing_record"] = are.Existing
		}
		return helper.JsonErrorCode(c, status, code, err.Error(), data)
	}
	return helper.JsonErrorCode(c, status, code, err.Error(), nil)
}
