package web

// errors.go turns service errors into responses.
//
// The technical error is logged with the request id. The client gets the
// core.MapError message in the form it asked for: an HTMX fragment, JSON for
// API calls, or plain text.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/filterframes/internal/core"
	"github.com/JonMunkholm/filterframes/internal/dtaselect"
	"github.com/JonMunkholm/filterframes/internal/web/templates"
	"github.com/go-chi/chi/v5/middleware"
)

var (
	errNoFile      = errors.New("no file provided")
	errRateLimited = errors.New("rate limit exceeded")
)

// ErrorResponse is the JSON body of API error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

func invalidParam(name, value string) error {
	return fmt.Errorf("invalid parameter %s: %q", name, value)
}

// statusFor picks the HTTP status for a service error.
func statusFor(err error) int {
	var (
		formatErr      *dtaselect.FormatError
		coercionErr    *dtaselect.CoercionError
		consistencyErr *dtaselect.ConsistencyError
		maxBytesErr    *http.MaxBytesError
	)
	switch {
	case errors.Is(err, core.ErrReportNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrFileTooLarge), errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &formatErr), errors.As(err, &coercionErr), errors.As(err, &consistencyErr):
		return http.StatusUnprocessableEntity
	}

	switch core.MapError(err).Code {
	case "RPT002", "RPT003", "AUD001":
		return http.StatusNotFound
	case "AUD002":
		return http.StatusConflict
	case "RPT004", "TBL002", "TBL003", "REQ001", "FILE004", "FILE005":
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// fail responds to err with the status statusFor picks.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, err, statusFor(err))
}

// respondError logs err and writes the mapped user message.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, userMsg, statusCode)
	case wantsJSON(r):
		respondErrorJSON(w, userMsg, statusCode)
	default:
		http.Error(w, userMsg.Message+" ("+userMsg.Code+")", statusCode)
	}
}

func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// renderErrorPartial answers HTMX requests with 200 so the fragment is
// swapped in. The real status travels in X-Error-Status.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Error-Status", fmt.Sprint(statusCode))
	w.WriteHeader(http.StatusOK)
	templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON reports whether the client asked for JSON or called the API.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
