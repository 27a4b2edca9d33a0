package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"sacco-hub/internal/core/services"
	"sacco-hub/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

const sseHeartbeat = 30 * time.Second

// streamEvents writes subscriber events as server-sent events until the
// client disconnects, then calls unsubscribe.
func streamEvents(c *fiber.Ctx, sub *services.Subscriber, unsubscribe func(id string)) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe(sub.ID)

		fmt.Fprintf(w, "event: connected\ndata: {\"stream_id\":%q}\n\n", sub.ID)
		if err := w.Flush(); err != nil {
			return
		}

		heartbeat := time.NewTicker(sseHeartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case event, ok := <-sub.Channel:
				if !ok {
					return
				}
				if err := writeSSEEvent(w, event); err != nil {
					logger.L().Debugw("📡 stream closed", "id", sub.ID, "error", err)
					return
				}

			case <-heartbeat.C:
				fmt.Fprint(w, ": heartbeat\n\n")
				if err := w.Flush(); err != nil {
					logger.L().Debugw("📡 stream client disconnected", "id", sub.ID)
					return
				}
			}
		}
	})

	return nil
}

// writeSSEEvent writes one event frame and flushes it
func writeSSEEvent(w *bufio.Writer, event services.Event) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, data)
	return w.Flush()
}
