package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/biosecret/task-api/middleware"
	"github.com/biosecret/task-api/models"
	"github.com/biosecret/task-api/services"
)

type TaskHandler struct {
	Tasks *services.TaskService
}

func identity(c *fiber.Ctx) models.Identity {
	// Guard luôn chạy trước các handler này
	id, _ := middleware.IdentityFrom(c)
	return id
}

// HandleAllTasks godoc
// @Summary   Danh sách task (admin thấy tất cả)
// @Tags      tasks
// @Produce   json
// @Security  BearerAuth
// @Param     status   query string false "pending | in-progress | completed"
// @Param     priority query string false "low | medium | high"
// @Param     page     query int    false "Trang, mặc định 1"
// @Param     limit    query int    false "Số task mỗi trang, mặc định 10"
// @Success   200 {object} map[string]interface{}
// @Failure   400 {object} ErrorResponse
// @Router    /tasks [get]
func (h *TaskHandler) HandleAllTasks(c *fiber.Ctx) error {
	q := models.TaskQuery{
		Status:   models.TaskStatus(c.Query("status")),
		Priority: models.TaskPriority(c.Query("priority")),
		Page:     c.QueryInt("page", services.DefaultPage),
		Limit:    c.QueryInt("limit", services.DefaultLimit),
	}

	page, err := h.Tasks.List(c.UserContext(), identity(c), q)
	if err != nil {
		return respondError(c, err, "")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"count":   page.Count,
		"total":   page.Total,
		"page":    page.Page,
		"pages":   page.Pages,
		"data":    page.Items,
	})
}

// HandleGetOneTask godoc
// @Summary   Lấy một task
// @Tags      tasks
// @Produce   json
// @Security  BearerAuth
// @Param     id path string true "Task ID"
// @Success   200 {object} models.Task
// @Failure   403 {object} ErrorResponse
// @Failure   404 {object} ErrorResponse
// @Router    /tasks/{id} [get]
func (h *TaskHandler) HandleGetOneTask(c *fiber.Ctx) error {
	task, err := h.Tasks.Get(c.UserContext(), identity(c), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Not authorized to access this task")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "data": task})
}

// HandleCreateTask godoc
// @Summary   Tạo task, owner luôn là người gọi
// @Tags      tasks
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     body body models.CreateTaskInput true "Task"
// @Success   201 {object} models.Task
// @Failure   400 {object} ErrorResponse
// @Router    /tasks [post]
func (h *TaskHandler) HandleCreateTask(c *fiber.Ctx) error {
	var input models.CreateTaskInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	task, err := h.Tasks.Create(c.UserContext(), identity(c), input)
	if err != nil {
		return respondError(c, err, "")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Task created successfully",
		"data":    task,
	})
}

// HandleUpdateTask godoc
// @Summary   Cập nhật một phần task
// @Tags      tasks
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     id   path string                 true "Task ID"
// @Param     body body models.UpdateTaskInput true "Các trường cần sửa"
// @Success   200 {object} models.Task
// @Failure   400 {object} ErrorResponse
// @Failure   403 {object} ErrorResponse
// @Failure   404 {object} ErrorResponse
// @Router    /tasks/{id} [put]
func (h *TaskHandler) HandleUpdateTask(c *fiber.Ctx) error {
	var input models.UpdateTaskInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	task, err := h.Tasks.Update(c.UserContext(), identity(c), c.Params("id"), input)
	if err != nil {
		return respondError(c, err, "Not authorized to update this task")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Task updated successfully",
		"data":    task,
	})
}

// HandleDeleteTask godoc
// @Summary   Xóa task
// @Tags      tasks
// @Produce   json
// @Security  BearerAuth
// @Param     id path string true "Task ID"
// @Success   200 {object} map[string]interface{}
// @Failure   403 {object} ErrorResponse
// @Failure   404 {object} ErrorResponse
// @Router    /tasks/{id} [delete]
func (h *TaskHandler) HandleDeleteTask(c *fiber.Ctx) error {
	if err := h.Tasks.Delete(c.UserContext(), identity(c), c.Params("id")); err != nil {
		return respondError(c, err, "Not authorized to delete this task")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Task deleted successfully",
		"data":    fiber.Map{},
	})
}
