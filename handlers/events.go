package handlers

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/biosecret/task-api/events"
)

const keepAliveInterval = 15 * time.Second

type EventHandler struct {
	Hub *events.Hub
}

func formatSSEMessage(eventType string, data any) (string, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		return "", err
	}

	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("event: %s\n", eventType))
	sb.WriteString(fmt.Sprintf("retry: %d\n", 15000))
	sb.WriteString(fmt.Sprintf("data: %s\n\n", strings.TrimRight(buf.String(), "\n")))
	return sb.String(), nil
}

// HandleTaskEvents godoc
// @Summary   Stream SSE các thay đổi trên task mà người gọi được xem
// @Tags      tasks
// @Produce   text/event-stream
// @Security  BearerAuth
// @Success   200 {object} map[string]interface{}
// @Router    /tasks/events [get]
func (h *EventHandler) HandleTaskEvents(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")

	stream, unsubscribe := h.Hub.Subscribe(identity(c))
	notify := c.Context().Done()

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		keepAlive := time.NewTicker(keepAliveInterval)
		defer keepAlive.Stop()
		defer unsubscribe()

		// gửi header ngay khi đã đăng ký để client biết stream đã sẵn sàng
		w.WriteString(": connected\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case <-notify:
				return
			case ev, ok := <-stream:
				if !ok {
					return
				}
				msg, err := formatSSEMessage(string(ev.Type), ev)
				if err != nil {
					log.Printf("Error formatting sse message: %v", err)
					continue
				}
				if _, err := w.WriteString(msg); err != nil {
					return
				}
			case <-keepAlive.C:
				if _, err := w.WriteString(":keepalive\n\n"); err != nil {
					return
				}
			}

			// client ngắt kết nối thì Flush lỗi
			if err := w.Flush(); err != nil {
				return
			}
		}
	}))

	return nil
}
