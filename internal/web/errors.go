package web

// errors.go turns errors into JSON responses.
//
// The technical error is logged with the request id; the client gets the
// mapped operator message and code. For errors the catalog recognises, the
// error text itself is safe to show and is sent as "error", so operators
// see details such as which credentials field is missing.

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/metasync/internal/core"
	"github.com/JonMunkholm/metasync/internal/host"
	"github.com/JonMunkholm/metasync/internal/logging"
	"github.com/JonMunkholm/metasync/internal/mapping"
	"github.com/JonMunkholm/metasync/internal/tabular"
)

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// newErrorResponse maps err for the client.
func newErrorResponse(err error) ErrorResponse {
	msg := core.MapError(err)
	detail := msg.Message
	if core.IsUserFacing(err) {
		detail = err.Error()
	}
	return ErrorResponse{
		Success: false,
		Error:   detail,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
}

// respondError logs err and writes its mapped response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := newErrorResponse(err)

	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", resp.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", args...)
	} else {
		logger.Warn("request error", args...)
	}

	if errors.Is(err, core.ErrTooManyPasses) {
		w.Header().Set("Retry-After", "30")
	}
	writeJSON(w, status, resp)
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	switch {
	case errors.Is(err, mapping.ErrNoKeyColumn),
		errors.Is(err, mapping.ErrNoMappingsSelected),
		errors.Is(err, tabular.ErrInvalidRange),
		errors.Is(err, core.ErrTooManyRows),
		errors.Is(err, core.ErrInvalidPreset),
		errors.Is(err, core.ErrNoFile),
		errors.Is(err, core.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrPresetExists):
		return http.StatusConflict
	case errors.Is(err, tabular.ErrSourceUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, host.ErrUnavailable), errors.Is(err, core.ErrTooManyPasses):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
