package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/ui2code-backend/internal/logging"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/domain"
)

// statusClientClosedRequest is reported when the caller went away first.
const statusClientClosedRequest = 499

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSizeExceeded):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrGeneration):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error response for err. Internal failures are logged and
// their details withheld from the client.
func (h *Handler) fail(c *gin.Context, op string, err error) {
	h.failWith(c, op, err, gin.H{})
}

// failWith is fail with extra fields in the error body.
func (h *Handler) failWith(c *gin.Context, op string, err error, body gin.H) {
	status := statusFor(err)
	log := logging.Op(c.Request.Context(), h.log, op)

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
		body["error"] = "internal server error"
		c.JSON(status, body)
		return
	}
	log.Debug().Err(err).Int("status", status).Msg("request rejected")
	body["error"] = err.Error()
	c.JSON(status, body)
}
