package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckerHas(t *testing.T) {
	c := NewChecker(nil)

	cases := []struct {
		role, perm string
		want       bool
	}{
		{"student", "attempt:create", true},
		{"student", "quiz:create", false},
		{"teacher", "quiz:publish", true},
		{"teacher", "attempt:create", false},
		{"admin", "quiz:delete", true},
		{"admin", "anything:at-all", true},
		{"", "quiz:list", false},
		{"visitor", "quiz:list", false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q, %q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestCheckerWildcardPrefix(t *testing.T) {
	c := NewChecker(map[string][]string{"auditor": {"attempt:*"}})
	if !c.Has("auditor", "attempt:view-all") {
		t.Fatal("prefix wildcard must cover attempt:view-all")
	}
	if c.Has("auditor", "quiz:list") {
		t.Fatal("prefix wildcard must not cover other prefixes")
	}
}

func TestCheckerAny(t *testing.T) {
	c := NewChecker(nil)
	if !c.Any("teacher", "result:view-own", "attempt:view-all") {
		t.Fatal("teacher holds attempt:view-all")
	}
	if c.Any("student", "quiz:create", "quiz:delete") {
		t.Fatal("student holds neither authoring permission")
	}
}

func TestRequireMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := Require("quiz:create")(next)

	req := httptest.NewRequest(http.MethodPost, "/quizzes", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(WithRole(req.Context(), "teacher")))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("teacher: status = %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(WithRole(req.Context(), "student")))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("student: status = %d, want 403", rec.Code)
	}

	// No role in context at all.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("anonymous: status = %d, want 403", rec.Code)
	}
}

func TestIsStaff(t *testing.T) {
	if !IsStaff("teacher") || !IsStaff("admin") {
		t.Fatal("teacher and admin are staff")
	}
	if IsStaff("student") || IsStaff("") {
		t.Fatal("students are not staff")
	}
}

func TestRoleRoundTrip(t *testing.T) {
	ctx := WithRole(context.Background(), "student")
	if got := RoleFromContext(ctx); got != "student" {
		t.Fatalf("role = %q", got)
	}
	if got := RoleFromContext(context.Background()); got != "" {
		t.Fatalf("empty context role = %q", got)
	}
}
