package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meshy-ar-backend/internal/services"
)

type StreamHandler struct {
	streamer services.StatusStreamer
	logger   *zap.Logger
}

func NewStreamHandler(streamer services.StatusStreamer, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{
		streamer: streamer,
		logger:   logger,
	}
}

// StreamStatus relays the provider's live status events to the caller as
// server-sent events until a terminal status, an upstream error, or the
// caller disconnecting. Events are forwarded one at a time with no
// buffering or replay; a reconnecting client only sees events from that
// point on.
// GET /api/stream-status/:task_id.
func (h *StreamHandler) StreamStatus(c *gin.Context) {
	taskID := c.Param("task_id")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	events, err := h.streamer.StreamTask(ctx, taskID)
	if err != nil {
		h.logger.Error("failed to open status stream", zap.String("task_id", taskID), zap.Error(err))
		writeSSE(c.Writer, map[string]interface{}{"error": err.Error()})
		c.Writer.Flush()
		return
	}

	for {
		select {
		case <-ctx.Done():
			// subscriber disconnect also cancels the upstream stream
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if event.Err != nil {
				writeSSE(c.Writer, map[string]interface{}{"error": event.Err.Error()})
				c.Writer.Flush()
				return
			}
			writeSSE(c.Writer, event.Data)
			c.Writer.Flush()
		}
	}
}

// writeSSE emits a bare data frame. The original surface never sends
// event names, so gin's SSEvent (which adds an event: line) is avoided.
func writeSSE(w io.Writer, payload map[string]interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
