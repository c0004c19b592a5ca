package http

import (
	"encoding/csv"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/studymesh/studymesh-lms/internal/auth/middleware"
	"github.com/studymesh/studymesh-lms/internal/rbac"
	"github.com/studymesh/studymesh-lms/internal/review"
)

func ResultsHandler(svc *review.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		res, err := svc.Results(ctx,
			chi.URLParam(r, "attemptID"),
			authmw.SubjectFromContext(ctx),
			rbac.IsStaff(rbac.RoleFromContext(ctx)))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeData(w, http.StatusOK, res)
	}
}

func ReviewHandler(svc *review.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		breakdown, err := svc.Review(ctx,
			chi.URLParam(r, "attemptID"),
			authmw.SubjectFromContext(ctx),
			rbac.IsStaff(rbac.RoleFromContext(ctx)))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeData(w, http.StatusOK, breakdown)
	}
}

func AnalyticsHandler(svc *review.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		a, err := svc.Analytics(ctx,
			chi.URLParam(r, "quizID"),
			authmw.SubjectFromContext(ctx),
			rbac.RoleFromContext(ctx) == "admin")
		if err != nil {
			writeErr(w, err)
			return
		}
		writeData(w, http.StatusOK, a)
	}
}

// GET /quizzes/{quizID}/export?type=students|questions&format=csv|json
func ExportHandler(svc *review.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		typ := r.URL.Query().Get("type")
		if typ == "" {
			typ = review.ExportStudents
		}
		table, err := svc.Export(ctx,
			chi.URLParam(r, "quizID"),
			typ,
			authmw.SubjectFromContext(ctx),
			rbac.RoleFromContext(ctx) == "admin")
		if err != nil {
			writeErr(w, err)
			return
		}

		if r.URL.Query().Get("format") == "json" {
			writeData(w, http.StatusOK, table)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="`+table.Filename+`"`)
		cw := csv.NewWriter(w)
		_ = cw.Write(table.Header)
		for _, row := range table.Rows {
			_ = cw.Write(row)
		}
		cw.Flush()
	}
}
