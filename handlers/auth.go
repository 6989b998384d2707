package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/biosecret/task-api/middleware"
	"github.com/biosecret/task-api/models"
	"github.com/biosecret/task-api/services"
)

type AuthHandler struct {
	Auth *services.AuthService
}

// Register godoc
// @Summary  Đăng ký người dùng mới
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    body body models.RegisterInput true "Thông tin đăng ký"
// @Success  201 {object} map[string]interface{}
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse
// @Router   /auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input models.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	user, tokens, err := h.Auth.Register(c.UserContext(), input)
	if err != nil {
		return respondError(c, err, "Not authorized to register as admin")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":      true,
		"message":      "User registered successfully",
		"data":         user,
		"token":        tokens.AccessToken,
		"refreshToken": tokens.RefreshToken,
	})
}

// Login godoc
// @Summary  Đăng nhập
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    body body models.LoginInput true "Email và mật khẩu"
// @Success  200 {object} map[string]interface{}
// @Failure  400 {object} ErrorResponse
// @Router   /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input models.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	tokens, err := h.Auth.Login(c.UserContext(), input)
	if err != nil {
		return respondError(c, err, "")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "data": tokens})
}

// Refresh godoc
// @Summary  Đổi refresh token lấy access token mới
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    body body models.RefreshInput true "Refresh token"
// @Success  200 {object} map[string]interface{}
// @Failure  401 {object} ErrorResponse
// @Router   /auth/refresh [post]
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var input models.RefreshInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	tokens, err := h.Auth.Refresh(c.UserContext(), input)
	if err != nil {
		return respondError(c, err, "")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "data": tokens})
}

// Me godoc
// @Summary   Thông tin người dùng hiện tại
// @Tags      auth
// @Produce   json
// @Security  BearerAuth
// @Success   200 {object} map[string]interface{}
// @Failure   401 {object} ErrorResponse
// @Router    /auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, "Not authorized")
	}

	user, err := h.Auth.Me(c.UserContext(), identity)
	if err != nil {
		return respondError(c, err, "")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "data": user})
}
