package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	api "github.com/studymesh/studymesh-lms/internal/api/http"
	"github.com/studymesh/studymesh-lms/internal/audit"
	auth "github.com/studymesh/studymesh-lms/internal/auth/middleware"
	"github.com/studymesh/studymesh-lms/internal/config"
	"github.com/studymesh/studymesh-lms/internal/course"
	"github.com/studymesh/studymesh-lms/internal/db"
	"github.com/studymesh/studymesh-lms/internal/expiry"
	"github.com/studymesh/studymesh-lms/internal/quiz"
	"github.com/studymesh/studymesh-lms/internal/rbac"
	"github.com/studymesh/studymesh-lms/internal/review"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	courses := course.NewDirectory(dbh)
	access := audit.NewEventRepo(dbh)
	authoring := quiz.NewAuthoringService(dbh, courses, log)
	attempts := quiz.NewAttemptService(dbh, courses, access, log, cfg.AttemptGraceSeconds)
	reviews := review.NewService(dbh, log)

	authSvc := auth.NewAuthService(cfg.AuthSecret)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(dbh, authSvc))

	// Protected API (JWT → subject+role in context → RBAC per route).
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.With(rbac.Require("users:create")).
			Post("/users", auth.CreateUserHandler(dbh))

		pr.With(rbac.Require("course:create")).
			Post("/courses", api.CreateCourseHandler(courses))
		pr.With(rbac.Require("course:enroll")).
			Post("/courses/{courseID}/students", api.EnrollStudentHandler(courses))
		pr.Get("/courses", api.ListCoursesHandler(courses))

		// Teacher authoring
		pr.With(rbac.Require("quiz:create")).
			Post("/quizzes", api.CreateQuizHandler(authoring))
		pr.With(rbac.Require("quiz:view-own")).
			Get("/quizzes", api.ListTeacherQuizzesHandler(authoring))
		pr.With(rbac.Require("quiz:view-own")).
			Get("/quizzes/{quizID}", api.GetQuizHandler(authoring))
		pr.With(rbac.Require("quiz:update")).
			Put("/quizzes/{quizID}", api.UpdateQuizHandler(authoring))
		pr.With(rbac.Require("quiz:publish")).
			Post("/quizzes/{quizID}/publish", api.PublishQuizHandler(authoring))
		pr.With(rbac.Require("quiz:archive")).
			Post("/quizzes/{quizID}/archive", api.ArchiveQuizHandler(authoring))
		pr.With(rbac.Require("quiz:delete")).
			Delete("/quizzes/{quizID}", api.DeleteQuizHandler(authoring))

		// Student flow
		pr.With(rbac.Require("quiz:list")).
			Get("/student/quizzes", api.ListStudentQuizzesHandler(attempts))
		pr.With(rbac.Require("attempt:create")).
			Post("/quizzes/{quizID}/attempts", api.StartAttemptHandler(attempts))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/quizzes/{quizID}/attempts/{attemptID}/questions", api.GetAttemptQuestionsHandler(attempts))
		pr.With(rbac.Require("attempt:answer")).
			Post("/attempts/{attemptID}/answers", api.SubmitAnswerHandler(attempts))
		pr.With(rbac.Require("attempt:submit")).
			Post("/attempts/{attemptID}/submit", api.SubmitAttemptHandler(attempts))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}", api.GetAttemptHandler(attempts))

		// Results / review / analytics
		pr.With(rbac.RequireAny("result:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}/results", api.ResultsHandler(reviews))
		pr.With(rbac.RequireAny("result:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}/review", api.ReviewHandler(reviews))
		pr.With(rbac.Require("analytics:view")).
			Get("/quizzes/{quizID}/analytics", api.AnalyticsHandler(reviews))
		pr.With(rbac.Require("export:run")).
			Get("/quizzes/{quizID}/export", api.ExportHandler(reviews))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	sweeper := expiry.NewSweeper(attempts, log)
	if err := sweeper.Start(cfg.ExpirySweepSpec); err != nil {
		log.Fatalf("expiry sweeper: %v", err)
	}
	defer sweeper.Stop()

	log.WithFields(logrus.Fields{
		"addr": cfg.HTTPAddr,
		"mode": cfg.Mode,
		"db":   cfg.DBDriver,
	}).Info("listening")
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
