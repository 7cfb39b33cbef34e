package common

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

type SuccessEnvelope struct {
	Status    string      `json:"status"`
	Data      interface{} `json:"data"`
	Message   string      `json:"message,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type ErrorEnvelope struct {
	Status    string       `json:"status"`
	Message   string       `json:"message"`
	AppCode   Code         `json:"appCode"`
	Errors    []FieldError `json:"errors,omitempty"`
	Timestamp string       `json:"timestamp"`
}

// Timestamp formats t the way every envelope does (ISO-8601, UTC, millisecond precision).
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// SendSuccess writes data inside a success envelope. 204 is written without a body.
func SendSuccess(w http.ResponseWriter, data interface{}, message string, statusCode int) {
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	if statusCode == http.StatusNoContent {
		w.WriteHeader(statusCode)
		return
	}

	writeJSON(w, statusCode, SuccessEnvelope{
		Status:    statusSuccess,
		Data:      data,
		Message:   message,
		Timestamp: Timestamp(time.Now()),
	})
}

func SendError(w http.ResponseWriter, err error) {
	appErr := AsAppError(err)
	message := appErr.Message
	if message == "" {
		message = http.StatusText(appErr.Code.HTTPStatus())
	}

	writeJSON(w, appErr.Code.HTTPStatus(), ErrorEnvelope{
		Status:    statusError,
		Message:   message,
		AppCode:   appErr.Code,
		Errors:    appErr.Details,
		Timestamp: Timestamp(time.Now()),
	})
}

// ErrorResponder is the single terminal error handler: log (unless quiet) and answer with an envelope.
type ErrorResponder struct {
	logger *slog.Logger
	quiet  bool
}

func NewErrorResponder(logger *slog.Logger, quiet bool) *ErrorResponder {
	return &ErrorResponder{logger: logger, quiet: quiet}
}

func (er *ErrorResponder) Respond(w http.ResponseWriter, r *http.Request, err error) {
	if !er.quiet {
		appErr := AsAppError(err)
		level := slog.LevelWarn
		if appErr.Code == CodeInternal {
			level = slog.LevelError
		}
		er.logger.Log(r.Context(), level, "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"app_code", appErr.Code,
			"error", err.Error(),
		)
	}
	SendError(w, err)
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
