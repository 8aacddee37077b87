package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/ui2code-backend/internal/logging"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/domain"
)

// streamGeneration streams state changes of a generation using Server-Sent
// Events. Transitions pushed by the tracker wake the stream immediately and
// polling covers trackers that cannot push. The stream ends after a terminal
// state or when the record expires.
func (h *Handler) streamGeneration(c *gin.Context) {
	id := c.Param("id")
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// subscribe before the first read so no transition falls in between
	updates, err := h.gen.Watch(ctx, id)
	if err != nil {
		log := logging.Op(ctx, h.log, "generation_events")
		log.Debug().Err(err).Str("generation_id", id).Msg("push updates unavailable, polling")
		updates = nil
	}

	g, err := h.gen.Status(ctx, id)
	if err != nil {
		h.fail(c, "generation_events", err)
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	send := func(event string, payload any) {
		data, _ := json.Marshal(payload)
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
	}

	send("initial", gin.H{"generation": g})
	if g.State.Terminal() {
		return
	}

	last := g.UpdatedAt
	// refresh sends the current state when it changed and reports whether the
	// stream is finished.
	refresh := func() bool {
		g, err := h.gen.Status(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				send("expired", gin.H{"generation_id": id})
				return true
			}
			return false
		}
		if !g.UpdatedAt.After(last) {
			return false
		}
		last = g.UpdatedAt
		send("update", gin.H{"generation": g})
		return g.State.Terminal()
	}

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()
	poll := time.NewTicker(h.pollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-keepAlive.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()

		case _, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			if refresh() {
				return
			}

		case <-poll.C:
			if refresh() {
				return
			}
		}
	}
}
