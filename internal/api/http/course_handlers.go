package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/studymesh/studymesh-lms/internal/auth/middleware"
	"github.com/studymesh/studymesh-lms/internal/course"
	"github.com/studymesh/studymesh-lms/internal/rbac"
)

type createCourseRequest struct {
	Name string `json:"name" validate:"required,min=2"`
}

func CreateCourseHandler(dir *course.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createCourseRequest
		if err := decodeValid(r, &req); err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		c, err := dir.Create(r.Context(), req.Name, authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeData(w, http.StatusCreated, c)
	}
}

type enrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

func EnrollStudentHandler(dir *course.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		courseID := chi.URLParam(r, "courseID")

		// Enrollment is for the course's own teachers (or admin).
		if rbac.RoleFromContext(ctx) != "admin" {
			owns, err := dir.Owns(ctx, courseID, authmw.SubjectFromContext(ctx))
			if err != nil {
				writeErr(w, err)
				return
			}
			if !owns {
				writeMessage(w, http.StatusForbidden, "forbidden")
				return
			}
		}

		var req enrollRequest
		if err := decodeValid(r, &req); err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := dir.Enroll(ctx, courseID, req.StudentID); err != nil {
			writeErr(w, err)
			return
		}
		writeMessage(w, http.StatusOK, "student enrolled")
	}
}

func ListCoursesHandler(dir *course.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sub := authmw.SubjectFromContext(ctx)

		var (
			list []course.Course
			err  error
		)
		if rbac.IsStaff(rbac.RoleFromContext(ctx)) {
			list, err = dir.ListForTeacher(ctx, sub)
		} else {
			list, err = dir.ListForStudent(ctx, sub)
		}
		if err != nil {
			writeErr(w, err)
			return
		}
		writeData(w, http.StatusOK, list)
	}
}
