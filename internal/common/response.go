package common

import (
	"encoding/json"
	"errors"
	"net/http"

	"codearena/internal/platform/logger"

	"go.uber.org/zap"
)

// Envelope is the body of every API response.
type Envelope struct {
	Status  int          `json:"status"`
	Message string       `json:"message"`
	Data    interface{}  `json:"data,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
	Success bool         `json:"success"`
}

var verboseErrors bool

// SetVerboseErrors lets unexpected error messages reach clients. Only
// enabled in development.
func SetVerboseErrors(v bool) {
	verboseErrors = v
}

func RespondWithData(w http.ResponseWriter, code int, message string, data interface{}) {
	RespondWithJSON(w, code, Envelope{
		Status:  code,
		Message: message,
		Data:    data,
		Success: code < http.StatusBadRequest,
	})
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, Envelope{Status: code, Message: message, Success: false})
}

// HandleError is the single place where service errors become responses.
// Application errors keep their status and message; anything else is
// flattened to a 500.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatusFromError(err)
	env := Envelope{Status: status, Success: false}

	var appErr *Error
	switch {
	case errors.As(err, &appErr):
		env.Message = appErr.Message
		env.Errors = appErr.Fields
	case status == http.StatusConflict:
		env.Message = "Resource already exists"
	case status != http.StatusInternalServerError:
		env.Message = err.Error()
	default:
		env.Message = "Internal Server Error"
		if verboseErrors {
			env.Message = err.Error()
		}
	}

	if status >= http.StatusInternalServerError {
		logger.Error(r.Context(), "request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	RespondWithJSON(w, status, env)
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"status":500,"message":"Failed to marshal JSON response","success":false}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
