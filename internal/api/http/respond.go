// Package http holds the HTTP/JSON boundary. Handlers only decode, call a
// service and shape the envelope; routes stay in main.
package http

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/studymesh/studymesh-lms/internal/course"
	"github.com/studymesh/studymesh-lms/internal/quiz"
)

var validate = validator.New()

// envelope is the uniform response shape. Callers branch on Success alone.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: status < 400, Message: msg})
}

// writeErr maps the domain error taxonomy onto HTTP codes. Unknown errors
// stay generic so infrastructure details never leak.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, quiz.ErrNotFound), errors.Is(err, course.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "not found")
	case errors.Is(err, quiz.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "forbidden")
	case quiz.IsValidation(err):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case quiz.IsState(err):
		writeMessage(w, http.StatusConflict, err.Error())
	default:
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeValid decodes a JSON body and runs struct-tag validation on it.
func decodeValid(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("malformed json body")
	}
	if err := validate.Struct(dst); err != nil {
		return err
	}
	return nil
}

// clientIP favors the RealIP-rewritten remote address, stripping the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
