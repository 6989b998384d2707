package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/biosecret/task-api/models"
)

const taskColumns = "id, title, description, status, priority, user_id, due_date, created_at, updated_at"

// TaskRepository lưu task trong bảng tasks
type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (models.Task, error) {
	var (
		t   models.Task
		due sql.NullTime
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.UserID, &due, &t.CreatedAt, &t.UpdatedAt)
	if due.Valid {
		t.DueDate = &due.Time
	}
	return t, err
}

func (r *TaskRepository) CreateTask(ctx context.Context, t *models.Task) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO tasks ("+taskColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		t.ID, t.Title, t.Description, t.Status, t.Priority, t.UserID, t.DueDate, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindTask(ctx context.Context, id string) (*models.Task, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("select task: %w", err)
	}
	return &t, nil
}

// ListTasks trả về một trang task theo filter cùng tổng số task khớp filter
func (r *TaskRepository) ListTasks(ctx context.Context, f models.TaskFilter) ([]models.Task, int64, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Priority != "" {
		add("priority = $%d", f.Priority)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM tasks%s ORDER BY created_at DESC, id ASC LIMIT $%d OFFSET $%d",
		taskColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("select tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate tasks: %w", err)
	}

	return tasks, total, nil
}

// UpdateTask ghi đè các trường có thể sửa của task trong một câu lệnh duy nhất.
// Với scope khác rỗng, chỉ cập nhật khi task thuộc về scope. Không khớp dòng nào thì trả về ErrNotFound.
func (r *TaskRepository) UpdateTask(ctx context.Context, t *models.Task, scope string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET title=$1, description=$2, status=$3, priority=$4, due_date=$5, updated_at=$6
		WHERE id=$7 AND ($8 = '' OR user_id::text = $8)`,
		t.Title, t.Description, t.Status, t.Priority, t.DueDate, t.UpdatedAt, t.ID, scope,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return expectOneRow(res)
}

// DeleteTask xóa task theo id, giới hạn theo scope giống UpdateTask
func (r *TaskRepository) DeleteTask(ctx context.Context, id, scope string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM tasks WHERE id=$1 AND ($2 = '' OR user_id::text = $2)", id, scope,
	)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	count, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}
