package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/biosecret/task-api/database"
	"github.com/biosecret/task-api/events"
	"github.com/biosecret/task-api/models"
	"github.com/biosecret/task-api/validation"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// offset lớn nhất gửi xuống store, trang xa hơn luôn rỗng
	maxOffset = math.MaxInt32
)

// TaskStore lưu task. UpdateTask và DeleteTask chỉ ghi khi task khớp scope
// (owner id, rỗng nghĩa là không giới hạn) và trả về database.ErrNotFound nếu không khớp.
type TaskStore interface {
	CreateTask(ctx context.Context, t *models.Task) error
	FindTask(ctx context.Context, id string) (*models.Task, error)
	ListTasks(ctx context.Context, f models.TaskFilter) ([]models.Task, int64, error)
	UpdateTask(ctx context.Context, t *models.Task, scope string) error
	DeleteTask(ctx context.Context, id, scope string) error
}

// OwnerStore tra cứu người dùng để gắn tên và email owner vào task
type OwnerStore interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

// TaskService áp dụng quy tắc sở hữu: user chỉ thấy task của mình, admin thấy tất cả
type TaskService struct {
	tasks  TaskStore
	owners OwnerStore
	events events.Publisher
	now    func() time.Time
}

// NewTaskService tạo service. owners có thể nil, khi đó task không có thông tin owner.
func NewTaskService(tasks TaskStore, owners OwnerStore, publisher events.Publisher) *TaskService {
	return &TaskService{tasks: tasks, owners: owners, events: publisher, now: time.Now}
}

// List trả về một trang task mà identity được xem, sau khi lọc theo status/priority
func (s *TaskService) List(ctx context.Context, identity models.Identity, q models.TaskQuery) (*models.TaskPage, error) {
	if err := validation.Struct(q); err != nil {
		return nil, err
	}

	page, limit := q.Page, q.Limit
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	offset := maxOffset
	if page-1 <= maxOffset/limit {
		offset = (page - 1) * limit
	}

	items, total, err := s.tasks.ListTasks(ctx, models.TaskFilter{
		UserID:   identity.Scope(),
		Status:   q.Status,
		Priority: q.Priority,
		Offset:   offset,
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	if identity.IsAdmin() {
		seen := map[string]*models.Owner{}
		for i := range items {
			if err := s.attachOwner(ctx, &items[i], seen); err != nil {
				return nil, err
			}
		}
	}

	return &models.TaskPage{
		Items: items,
		Count: len(items),
		Total: total,
		Page:  page,
		Pages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

// Get trả về task nếu tồn tại và identity là owner hoặc admin
func (s *TaskService) Get(ctx context.Context, identity models.Identity, id string) (*models.Task, error) {
	task, err := s.authorized(ctx, identity, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachOwner(ctx, task, map[string]*models.Owner{}); err != nil {
		return nil, err
	}
	return task, nil
}

// Create luôn gán owner là người gọi
func (s *TaskService) Create(ctx context.Context, identity models.Identity, in models.CreateTaskInput) (*models.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	task := &models.Task{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		UserID:      identity.ID,
		DueDate:     in.DueDate.Ptr(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if task.Status == "" {
		task.Status = models.StatusPending
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}

	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.publish(ctx, events.TaskCreated, *task)
	return task, nil
}

// Update áp dụng các trường có trong payload rồi kiểm tra lại toàn bộ task
func (s *TaskService) Update(ctx context.Context, identity models.Identity, id string, in models.UpdateTaskInput) (*models.Task, error) {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		in.Title = &title
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		in.Description = &description
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	task, err := s.authorized(ctx, identity, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		task.Title = *in.Title
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.Status != nil {
		task.Status = *in.Status
	}
	if in.Priority != nil {
		task.Priority = *in.Priority
	}
	if in.DueDate != nil {
		task.DueDate = in.DueDate.Ptr()
	}

	merged := models.CreateTaskInput{
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
	}
	if err := validation.Struct(merged); err != nil {
		return nil, err
	}

	task.UpdatedAt = s.now().UTC()
	if err := s.tasks.UpdateTask(ctx, task, identity.Scope()); err != nil {
		return nil, s.classifyMiss(ctx, identity, id, err)
	}

	s.publish(ctx, events.TaskUpdated, *task)
	return task, nil
}

// Delete xóa vĩnh viễn task
func (s *TaskService) Delete(ctx context.Context, identity models.Identity, id string) error {
	task, err := s.authorized(ctx, identity, id)
	if err != nil {
		return err
	}

	if err := s.tasks.DeleteTask(ctx, id, identity.Scope()); err != nil {
		return s.classifyMiss(ctx, identity, id, err)
	}

	s.publish(ctx, events.TaskDeleted, *task)
	return nil
}

// authorized kiểm tra tồn tại trước, quyền sở hữu sau
func (s *TaskService) authorized(ctx context.Context, identity models.Identity, id string) (*models.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	task, err := s.tasks.FindTask(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}

	if !identity.CanAccess(task) {
		return nil, ErrForbidden
	}
	return task, nil
}

// attachOwner gắn tóm tắt owner vào task. Owner không còn tồn tại thì bỏ qua.
func (s *TaskService) attachOwner(ctx context.Context, task *models.Task, seen map[string]*models.Owner) error {
	if s.owners == nil {
		return nil
	}

	owner, ok := seen[task.UserID]
	if !ok {
		user, err := s.owners.FindUserByID(ctx, task.UserID)
		switch {
		case errors.Is(err, database.ErrNotFound):
		case err != nil:
			return fmt.Errorf("find owner: %w", err)
		default:
			owner = &models.Owner{ID: user.ID, Name: user.Name, Email: user.Email}
		}
		seen[task.UserID] = owner
	}
	task.Owner = owner
	return nil
}

// classifyMiss xử lý trường hợp câu lệnh ghi có điều kiện không khớp dòng nào:
// task đã bị xóa thì NotFound, còn lại là Forbidden.
func (s *TaskService) classifyMiss(ctx context.Context, identity models.Identity, id string, err error) error {
	if !errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("write task: %w", err)
	}
	if _, err := s.authorized(ctx, identity, id); err != nil {
		return err
	}
	return ErrForbidden
}

func (s *TaskService) publish(ctx context.Context, typ events.Type, task models.Task) {
	if s.events == nil {
		return
	}
	ev := events.Event{Type: typ, Task: task, OccurredAt: s.now().UTC()}
	if err := s.events.Publish(ctx, ev); err != nil {
		log.Printf("failed to publish %s for task %s: %v", typ, task.ID, err)
	}
}
