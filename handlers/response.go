package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/biosecret/task-api/services"
	"github.com/biosecret/task-api/validation"
)

// ErrorResponse là body của mọi response lỗi
type ErrorResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ErrorResponse{Success: false, Message: msg})
}

// respondError chuyển lỗi của service sang HTTP status. forbiddenMsg dùng cho 403.
func respondError(c *fiber.Ctx, err error, forbiddenMsg string) error {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Success: false, Errors: verr.Messages})
	case errors.Is(err, services.ErrInvalidCredentials):
		return fail(c, fiber.StatusBadRequest, "Invalid credentials")
	case errors.Is(err, services.ErrUnauthenticated),
		errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrExpiredToken):
		return fail(c, fiber.StatusUnauthorized, "Not authorized, invalid or expired token")
	case errors.Is(err, services.ErrForbidden):
		return fail(c, fiber.StatusForbidden, forbiddenMsg)
	case errors.Is(err, services.ErrNotFound):
		return fail(c, fiber.StatusNotFound, "Task not found")
	case errors.Is(err, services.ErrDuplicateEmail):
		return fail(c, fiber.StatusConflict, "Email already registered")
	}

	log.Printf("%s %s failed: %v", c.Method(), c.Path(), err)
	return fail(c, fiber.StatusInternalServerError, "Server error")
}

// ErrorHandler định dạng lỗi của fiber (route không tồn tại, panic...) giống các response khác
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fail(c, fe.Code, fe.Message)
	}

	log.Printf("%s %s failed: %v", c.Method(), c.Path(), err)
	return fail(c, fiber.StatusInternalServerError, "Server error")
}
