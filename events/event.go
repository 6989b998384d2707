package events

import (
	"context"
	"errors"
	"time"

	"github.com/biosecret/task-api/models"
)

type Type string

const (
	TaskCreated Type = "task.created"
	TaskUpdated Type = "task.updated"
	TaskDeleted Type = "task.deleted"
)

// Event mô tả một thay đổi trên task
type Event struct {
	Type       Type        `json:"type"`
	Task       models.Task `json:"task"`
	OccurredAt time.Time   `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Multi gửi event tới tất cả publisher, gộp lỗi lại
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
