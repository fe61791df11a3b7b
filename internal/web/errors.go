package web

// errors.go turns errors into responses. The technical error is logged with
// the request ID; the client gets the mapped core.UserMessage as JSON, an
// HTMX fragment or a full HTML page, depending on what it asked for.

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/countsheet/internal/core"
	"github.com/JonMunkholm/countsheet/internal/logging"
	"github.com/JonMunkholm/countsheet/internal/sheet"
	"github.com/JonMunkholm/countsheet/internal/web/views"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

var errNoFile = errors.New("no file provided")

// statusFor picks the HTTP status for an error returned by the service.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrTooManyRuns),
		errors.Is(err, core.ErrNoReference),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, sheet.ErrEmptyFile),
		errors.Is(err, sheet.ErrUnsupportedFormat),
		errors.Is(err, core.ErrUnknownLayout),
		errors.Is(err, errNoFile):
		return http.StatusBadRequest
	case strings.Contains(err.Error(), "file too large"):
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the user-facing message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)

	log := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", msg.Code,
		"error", err.Error(),
	}
	switch {
	case status < http.StatusInternalServerError:
		log.Warn("request rejected", args...)
	case core.IsUserFacing(err):
		log.Warn("run failed on input data", args...)
	default:
		log.Error("request failed", args...)
	}

	switch {
	case isHTMX(r):
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		views.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
	case wantsJSON(r):
		writeJSON(w, r, status, ErrorResponse{
			Error:   msg.Message,
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
		})
	default:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		views.ErrorPage(msg, status).Render(r.Context(), w)
	}
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON is true for /api/ routes and for clients that ask for JSON.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/healthz" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
