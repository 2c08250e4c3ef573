package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/intervue/internal/interview"
	"github.com/abhisek/intervue/internal/llm"
	"github.com/abhisek/intervue/internal/scoring"
	"github.com/abhisek/intervue/internal/session"
	"github.com/abhisek/intervue/internal/turn"
)

// errBadRequest marks malformed request bodies.
var errBadRequest = errors.New("bad request")

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var persistErr *interview.PersistenceError
	var authErr *llm.ErrAuth
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, session.ErrInvalidPlan):
		return http.StatusBadRequest
	case errors.Is(err, interview.ErrNotFound):
		return http.StatusNotFound
	case interview.IsStateError(err), errors.Is(err, session.ErrActiveSession), errors.Is(err, turn.ErrClosed):
		return http.StatusConflict
	case errors.Is(err, scoring.ErrAnalysisFailed), errors.As(err, &authErr):
		return http.StatusBadGateway
	case errors.As(err, &persistErr):
		return http.StatusInternalServerError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request.Context(), "request failed",
			"path", c.FullPath(),
			"session_id", c.Param("id"),
			"error", err)
	}
	c.AbortWithStatusJSON(status, errorBody{Error: err.Error()})
}
