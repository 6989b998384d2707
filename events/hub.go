package events

import (
	"context"
	"sync"

	"github.com/biosecret/task-api/models"
)

const subscriberBuffer = 16

type subscriber struct {
	identity models.Identity
	ch       chan Event
}

// Hub phát event tới các client SSE đang kết nối.
// Mỗi subscriber chỉ nhận event của task mà nó được phép xem.
type Hub struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*subscriber]struct{})}
}

// Subscribe đăng ký một subscriber mới, hàm trả về dùng để hủy đăng ký
func (h *Hub) Subscribe(identity models.Identity) (<-chan Event, func()) {
	s := &subscriber{identity: identity, ch: make(chan Event, subscriberBuffer)}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, s)
			h.mu.Unlock()
			close(s.ch)
		})
	}
}

func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs {
		if !s.identity.CanAccess(&ev.Task) {
			continue
		}
		// client chậm thì bỏ event, không chặn request
		select {
		case s.ch <- ev:
		default:
		}
	}
	return nil
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
