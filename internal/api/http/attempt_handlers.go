package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/studymesh/studymesh-lms/internal/auth/middleware"
	"github.com/studymesh/studymesh-lms/internal/quiz"
	"github.com/studymesh/studymesh-lms/internal/rbac"
)

func ListStudentQuizzesHandler(svc *quiz.AttemptService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views, err := svc.ListForStudent(r.Context(), authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeData(w, http.StatusOK, views)
	}
}

type startAttemptRequest struct {
	Password string `json:"password"`
}

func StartAttemptHandler(svc *quiz.AttemptService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startAttemptRequest
		if r.ContentLength > 0 {
			if err := decodeValid(r, &req); err != nil {
				writeMessage(w, http.StatusBadRequest, err.Error())
				return
			}
		}
		att, err := svc.Start(r.Context(), quiz.StartInput{
			QuizID:   chi.URLParam(r, "quizID"),
			Password: req.Password,
			ClientIP: clientIP(r),
		}, authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeData(w, http.StatusCreated, att)
	}
}

func GetAttemptQuestionsHandler(svc *quiz.AttemptService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs, err := svc.GetQuestions(r.Context(),
			chi.URLParam(r, "quizID"),
			chi.URLParam(r, "attemptID"),
			authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeData(w, http.StatusOK, qs)
	}
}

type submitAnswerRequest struct {
	QuestionID       string            `json:"question_id" validate:"required"`
	AnswerText       string            `json:"answer_text"`
	SelectedOptionID string            `json:"selected_option_id"`
	Matches          map[string]string `json:"matches"`
	TimeSpentSeconds int               `json:"time_spent_seconds" validate:"gte=0"`
}

func SubmitAnswerHandler(svc *quiz.AttemptService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitAnswerRequest
		if err := decodeValid(r, &req); err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		err := svc.SubmitAnswer(r.Context(),
			chi.URLParam(r, "attemptID"),
			authmw.SubjectFromContext(r.Context()),
			quiz.AnswerSubmission{
				QuestionID:       req.QuestionID,
				AnswerText:       req.AnswerText,
				SelectedOptionID: req.SelectedOptionID,
				Matches:          req.Matches,
				TimeSpentSeconds: req.TimeSpentSeconds,
			})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeMessage(w, http.StatusOK, "answer saved")
	}
}

type submitAttemptRequest struct {
	TimeSpentSeconds int `json:"time_spent_seconds" validate:"gte=0"`
}

func SubmitAttemptHandler(svc *quiz.AttemptService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitAttemptRequest
		if r.ContentLength > 0 {
			if err := decodeValid(r, &req); err != nil {
				writeMessage(w, http.StatusBadRequest, err.Error())
				return
			}
		}
		att, err := svc.Submit(r.Context(),
			chi.URLParam(r, "attemptID"),
			authmw.SubjectFromContext(r.Context()),
			clientIP(r),
			req.TimeSpentSeconds)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeData(w, http.StatusOK, att)
	}
}

func GetAttemptHandler(svc *quiz.AttemptService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		att, err := svc.GetAttempt(ctx,
			chi.URLParam(r, "attemptID"),
			authmw.SubjectFromContext(ctx),
			rbac.IsStaff(rbac.RoleFromContext(ctx)))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeData(w, http.StatusOK, att)
	}
}
