package http

import (
	"encoding/json"
	"net/http"

	"github.com/atinyakov/GophTodo/internal/service"
)

var kindStatus = map[string]int{
	"already_initialized": http.StatusConflict,
	"already_completed":   http.StatusConflict,
	"conflict":            http.StatusConflict,
	"profile_not_found":   http.StatusNotFound,
	"not_found":           http.StatusNotFound,
	"forbidden":           http.StatusForbidden,
	"invalid_filter":      http.StatusBadRequest,
	"record_too_large":    http.StatusRequestEntityTooLarge,
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatusFor maps a service error to its HTTP status. Consistency violations
// and unknown errors are server faults.
func StatusFor(err error) int {
	if status, ok := kindStatus[service.ErrorKind(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError && service.ErrorKind(err) == "internal" {
		msg = "internal error"
	}
	writeJSON(w, status, ErrorResponse{Error: service.ErrorKind(err), Message: msg})
}

func writeBadRequest(w http.ResponseWriter, kind, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: kind, Message: msg})
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "client certificate required"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
