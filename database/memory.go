package database

import (
	"context"
	"sort"
	"sync"

	"github.com/biosecret/task-api/models"
)

// MemoryStore là store trong bộ nhớ, có cùng hành vi với các repository PostgreSQL
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]models.User
	byEmail map[string]string
	tasks   map[string]models.Task
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]models.User),
		byEmail: make(map[string]string),
		tasks:   make(map[string]models.Task),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[u.Email]; ok {
		return ErrDuplicateEmail
	}
	s.users[u.ID] = *u
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	u := s.users[id]
	return &u, nil
}

func (s *MemoryStore) FindUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) CreateTask(_ context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[t.ID] = *t
	return nil
}

func (s *MemoryStore) FindTask(_ context.Context, id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *MemoryStore) ListTasks(_ context.Context, f models.TaskFilter) ([]models.Task, int64, error) {
	s.mu.RLock()
	matched := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if f.UserID != "" && t.UserID != f.UserID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		matched = append(matched, t)
	}
	s.mu.RUnlock()

	// cùng thứ tự với ORDER BY created_at DESC, id ASC
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := int64(len(matched))
	start := min(max(f.Offset, 0), len(matched))
	end := start + min(max(f.Limit, 0), len(matched)-start)
	return matched[start:end], total, nil
}

func (s *MemoryStore) UpdateTask(_ context.Context, t *models.Task, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.tasks[t.ID]
	if !ok || (scope != "" && cur.UserID != scope) {
		return ErrNotFound
	}
	cur.Title = t.Title
	cur.Description = t.Description
	cur.Status = t.Status
	cur.Priority = t.Priority
	cur.DueDate = t.DueDate
	cur.UpdatedAt = t.UpdatedAt
	s.tasks[t.ID] = cur
	return nil
}

func (s *MemoryStore) DeleteTask(_ context.Context, id, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.tasks[id]
	if !ok || (scope != "" && cur.UserID != scope) {
		return ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}
