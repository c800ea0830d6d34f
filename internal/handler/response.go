package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/teamvault/teamvault/internal/apperr"
)

type successBody struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type errorBody struct {
	Error errorInfo `json:"error"`
}

type errorInfo struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func writeJSON(rw http.ResponseWriter, status int, body any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(body)
}

func writeData(rw http.ResponseWriter, status int, data any) {
	writeJSON(rw, status, successBody{Data: data})
}

func writeMessage(rw http.ResponseWriter, status int, message string) {
	writeJSON(rw, status, successBody{Message: message})
}

// writeError maps the error taxonomy onto HTTP statuses. Integrity faults are
// already logged where they are detected and surface as plain not-found so
// internal state never leaks to the caller.
func writeError(rw http.ResponseWriter, l *log.Entry, err error) {
	var (
		status  int
		message = err.Error()
	)
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindUnauthorized:
		status = http.StatusUnauthorized
	case apperr.KindForbidden, apperr.KindGated:
		status = http.StatusForbidden
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindIntegrity:
		status = http.StatusNotFound
		message = "file not found"
	case apperr.KindCapacity:
		status = http.StatusRequestEntityTooLarge
	default:
		l.WithError(err).Error("request failed")
		status = http.StatusInternalServerError
		message = "something went wrong, please try later"
	}
	writeJSON(rw, status, errorBody{Error: errorInfo{
		Message: message,
		Code:    fmt.Sprintf("HTTP_%d", status),
	}})
}
