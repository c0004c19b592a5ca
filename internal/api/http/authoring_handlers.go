package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/studymesh/studymesh-lms/internal/auth/middleware"
	"github.com/studymesh/studymesh-lms/internal/quiz"
)

func CreateQuizHandler(svc *quiz.AuthoringService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var spec quiz.Spec
		if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
			writeMessage(w, http.StatusBadRequest, "malformed json body")
			return
		}
		qz, err := svc.Create(r.Context(), spec, authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeData(w, http.StatusCreated, qz)
	}
}

func UpdateQuizHandler(svc *quiz.AuthoringService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var spec quiz.Spec
		if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
			writeMessage(w, http.StatusBadRequest, "malformed json body")
			return
		}
		qz, err := svc.Update(r.Context(), chi.URLParam(r, "quizID"), spec, authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeData(w, http.StatusOK, qz)
	}
}

func PublishQuizHandler(svc *quiz.AuthoringService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Publish(r.Context(), chi.URLParam(r, "quizID"), authmw.SubjectFromContext(r.Context())); err != nil {
			writeErr(w, err)
			return
		}
		writeMessage(w, http.StatusOK, "quiz published")
	}
}

func ArchiveQuizHandler(svc *quiz.AuthoringService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Archive(r.Context(), chi.URLParam(r, "quizID"), authmw.SubjectFromContext(r.Context())); err != nil {
			writeErr(w, err)
			return
		}
		writeMessage(w, http.StatusOK, "quiz archived")
	}
}

func DeleteQuizHandler(svc *quiz.AuthoringService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "quizID"), authmw.SubjectFromContext(r.Context())); err != nil {
			writeErr(w, err)
			return
		}
		writeMessage(w, http.StatusOK, "quiz deleted")
	}
}

func GetQuizHandler(svc *quiz.AuthoringService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qz, err := svc.Get(r.Context(), chi.URLParam(r, "quizID"), authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeData(w, http.StatusOK, qz)
	}
}

func ListTeacherQuizzesHandler(svc *quiz.AuthoringService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListForTeacher(r.Context(), authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeData(w, http.StatusOK, list)
	}
}
