package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/studymesh/studymesh-lms/internal/quiz"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var e envelope
	if err := json.NewDecoder(rec.Body).Decode(&e); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return e
}

func TestWriteErrMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"not found", quiz.ErrNotFound, http.StatusNotFound, "not found"},
		{"forbidden", quiz.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"validation", &quiz.ValidationError{Field: "title", QuestionIndex: -1, Msg: "title is required"},
			http.StatusBadRequest, "title: title is required"},
		{"state", &quiz.StateError{Msg: "maximum attempts reached"},
			http.StatusConflict, "maximum attempts reached"},
		{"unknown stays generic", errors.New("pq: connection refused"),
			http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeErr(rec, tc.err)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			e := decodeEnvelope(t, rec)
			if e.Success {
				t.Fatal("error envelope must not claim success")
			}
			if e.Message != tc.wantMsg {
				t.Fatalf("message = %q, want %q", e.Message, tc.wantMsg)
			}
		})
	}
}

func TestWriteData(t *testing.T) {
	rec := httptest.NewRecorder()
	writeData(rec, http.StatusCreated, map[string]string{"id": "q-1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	e := decodeEnvelope(t, rec)
	if !e.Success {
		t.Fatal("data envelope must claim success")
	}
}

func TestDecodeValid(t *testing.T) {
	type payload struct {
		QuestionID string `json:"question_id" validate:"required"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"question_id":"q-1"}`))
	var p payload
	if err := decodeValid(req, &p); err != nil {
		t.Fatalf("valid body: %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"question_id":""}`))
	if err := decodeValid(req, &payload{}); err == nil {
		t.Fatal("missing required field must fail validation")
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`))
	if err := decodeValid(req, &payload{}); err == nil {
		t.Fatal("malformed json must fail")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:54321"
	if got := clientIP(req); got != "203.0.113.9" {
		t.Fatalf("ip = %q", got)
	}
	req.RemoteAddr = "203.0.113.9"
	if got := clientIP(req); got != "203.0.113.9" {
		t.Fatalf("portless ip = %q", got)
	}
}
