package review_test

import (
	"context"
	"database/sql"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/studymesh/studymesh-lms/internal/audit"
	"github.com/studymesh/studymesh-lms/internal/course"
	"github.com/studymesh/studymesh-lms/internal/db"
	"github.com/studymesh/studymesh-lms/internal/quiz"
	"github.com/studymesh/studymesh-lms/internal/review"
)

const teacherID = "teacher-1"

type fixture struct {
	db       *sql.DB
	quiz     quiz.Quiz
	review   *review.Service
	attempts *quiz.AttemptService

	// attempt ID per student, all completed.
	attemptOf map[string]string
}

// setup seeds one published quiz (mcq 5, short answer 2, drag drop 3, passing 5)
// and three completed attempts: full marks, the mcq only, and a blank sheet.
func setup(t *testing.T, mutate func(*quiz.Spec)) *fixture {
	t.Helper()
	ctx := context.Background()

	dbh, err := db.Open(ctx, db.DriverSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	courses := course.NewDirectory(dbh)
	c, err := courses.Create(ctx, "Biology", teacherID)
	if err != nil {
		t.Fatalf("create course: %v", err)
	}

	spec := quiz.Spec{
		CourseID:     c.ID,
		Title:        "Cells Quiz",
		PassingMarks: 5,
		MaxAttempts:  1,
		Questions: []quiz.QuestionSpec{
			{
				Type:   quiz.TypeMCQ,
				Prompt: "Which organelle makes energy?",
				Marks:  5,
				Options: []quiz.OptSpec{
					{Text: "Nucleus"},
					{Text: "Mitochondria", IsCorrect: true},
					{Text: "Ribosome"},
				},
				Explanation: "Mitochondria produce ATP.",
			},
			{
				Type:          quiz.TypeShortAnswer,
				Prompt:        "Name the process plants use to make food.",
				Marks:         2,
				CorrectAnswer: "photosynthesis",
			},
			{
				Type:   quiz.TypeDragDrop,
				Prompt: "Match each country to its capital.",
				Marks:  3,
				Pairs: []quiz.PairSpec{
					{ItemText: "Paris", TargetText: "France"},
					{ItemText: "Rome", TargetText: "Italy"},
				},
			},
		},
	}
	if mutate != nil {
		mutate(&spec)
	}

	authoring := quiz.NewAuthoringService(dbh, courses, log)
	qz, err := authoring.Create(ctx, spec, teacherID)
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if err := authoring.Publish(ctx, qz.ID, teacherID); err != nil {
		t.Fatalf("publish: %v", err)
	}

	attempts := quiz.NewAttemptService(dbh, courses, audit.NewEventRepo(dbh), log, 30)
	f := &fixture{
		db:        dbh,
		quiz:      qz,
		review:    review.NewService(dbh, log),
		attempts:  attempts,
		attemptOf: map[string]string{},
	}

	var correctOption string
	for _, o := range qz.Questions[0].Options {
		if o.IsCorrect {
			correctOption = o.ID
		}
	}

	for student, answers := range map[string][]quiz.AnswerSubmission{
		"student-full": {
			{QuestionID: qz.Questions[0].ID, SelectedOptionID: correctOption, TimeSpentSeconds: 20},
			{QuestionID: qz.Questions[1].ID, AnswerText: "Photosynthesis", TimeSpentSeconds: 30},
			{QuestionID: qz.Questions[2].ID, Matches: map[string]string{"France": "Paris", "Italy": "Rome"}, TimeSpentSeconds: 40},
		},
		"student-half": {
			{QuestionID: qz.Questions[0].ID, SelectedOptionID: correctOption, TimeSpentSeconds: 10},
			{QuestionID: qz.Questions[1].ID, AnswerText: "respiration", TimeSpentSeconds: 10},
		},
		"student-blank": {},
	} {
		if err := courses.Enroll(ctx, c.ID, student); err != nil {
			t.Fatalf("enroll %s: %v", student, err)
		}
		att, err := attempts.Start(ctx, quiz.StartInput{QuizID: qz.ID}, student)
		if err != nil {
			t.Fatalf("start for %s: %v", student, err)
		}
		for _, a := range answers {
			if err := attempts.SubmitAnswer(ctx, att.ID, student, a); err != nil {
				t.Fatalf("answer for %s: %v", student, err)
			}
		}
		if _, err := attempts.Submit(ctx, att.ID, student, "", 100); err != nil {
			t.Fatalf("submit for %s: %v", student, err)
		}
		f.attemptOf[student] = att.ID
	}
	return f
}

func TestResults(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	sum, err := f.review.Results(ctx, f.attemptOf["student-half"], "student-half", false)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if sum.QuizTitle != "Cells Quiz" {
		t.Fatalf("title = %q", sum.QuizTitle)
	}
	if sum.MarksObtained != 5 || sum.TotalMarks != 10 {
		t.Fatalf("marks = %v/%v, want 5/10", sum.MarksObtained, sum.TotalMarks)
	}
	if sum.Percentage != 50 {
		t.Fatalf("percentage = %v, want 50", sum.Percentage)
	}
	if !sum.Passed {
		t.Fatal("5 of 10 with passing 5 must pass")
	}
	if sum.SubmittedAt == 0 {
		t.Fatal("submitted_at must be set on a completed attempt")
	}
}

func TestResultsVisibility(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	attemptID := f.attemptOf["student-full"]

	if _, err := f.review.Results(ctx, attemptID, "student-half", false); err != quiz.ErrForbidden {
		t.Fatalf("foreign student: err = %v, want ErrForbidden", err)
	}
	if _, err := f.review.Results(ctx, attemptID, teacherID, true); err != nil {
		t.Fatalf("staff read: %v", err)
	}
	if _, err := f.review.Results(ctx, "no-such-attempt", teacherID, true); err != quiz.ErrNotFound {
		t.Fatalf("missing attempt: err = %v, want ErrNotFound", err)
	}
}

func TestResultsHiddenWhenDisabled(t *testing.T) {
	off := false
	f := setup(t, func(s *quiz.Spec) { s.ShowResults = &off })
	ctx := context.Background()
	attemptID := f.attemptOf["student-full"]

	if _, err := f.review.Results(ctx, attemptID, "student-full", false); err != quiz.ErrForbidden {
		t.Fatalf("student with results hidden: err = %v, want ErrForbidden", err)
	}
	// The owning teacher still sees everything.
	if _, err := f.review.Results(ctx, attemptID, teacherID, true); err != nil {
		t.Fatalf("staff read: %v", err)
	}
}

func TestReviewBreakdown(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	qs, err := f.review.Review(ctx, f.attemptOf["student-half"], "student-half", false)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if len(qs) != 3 {
		t.Fatalf("rows = %d, want 3", len(qs))
	}

	mcq, short, drag := qs[0], qs[1], qs[2]

	if !mcq.Answered || mcq.YourAnswer != "Mitochondria" || !mcq.IsCorrect {
		t.Fatalf("mcq row = %+v", mcq)
	}
	if mcq.CorrectAnswer != "Mitochondria" {
		t.Fatalf("mcq correct = %q", mcq.CorrectAnswer)
	}
	if mcq.Explanation != "Mitochondria produce ATP." {
		t.Fatalf("mcq explanation = %q", mcq.Explanation)
	}

	if short.IsCorrect || short.MarksObtained != 0 || short.YourAnswer != "respiration" {
		t.Fatalf("short answer row = %+v", short)
	}
	if short.CorrectAnswer != "photosynthesis" {
		t.Fatalf("short answer correct = %q", short.CorrectAnswer)
	}

	if drag.Answered {
		t.Fatal("unanswered drag drop marked answered")
	}
	if drag.YourAnswer != "not answered" {
		t.Fatalf("drag answer = %q", drag.YourAnswer)
	}
	if !strings.Contains(drag.CorrectAnswer, "Paris → France") {
		t.Fatalf("drag correct = %q", drag.CorrectAnswer)
	}
}

func TestReviewRendersDragDropMatches(t *testing.T) {
	f := setup(t, nil)
	qs, err := f.review.Review(context.Background(), f.attemptOf["student-full"], "student-full", false)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	drag := qs[2]
	if !drag.IsCorrect || drag.MarksObtained != 3 {
		t.Fatalf("drag row = %+v", drag)
	}
	if !strings.Contains(drag.YourAnswer, "Paris → France") || !strings.Contains(drag.YourAnswer, "Rome → Italy") {
		t.Fatalf("drag answer = %q", drag.YourAnswer)
	}
}

func TestReviewHiddenWhenDisabled(t *testing.T) {
	off := false
	f := setup(t, func(s *quiz.Spec) { s.ReviewEnabled = &off })
	ctx := context.Background()
	attemptID := f.attemptOf["student-full"]

	if _, err := f.review.Review(ctx, attemptID, "student-full", false); err != quiz.ErrForbidden {
		t.Fatalf("student with review disabled: err = %v, want ErrForbidden", err)
	}
	if _, err := f.review.Review(ctx, attemptID, teacherID, true); err != nil {
		t.Fatalf("staff read: %v", err)
	}
}

func TestAnalytics(t *testing.T) {
	f := setup(t, nil)

	a, err := f.review.Analytics(context.Background(), f.quiz.ID, teacherID, false)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if a.CompletedAttempts != 3 {
		t.Fatalf("completed = %d, want 3", a.CompletedAttempts)
	}
	if a.PassedCount != 2 {
		t.Fatalf("passed = %d, want 2", a.PassedCount)
	}
	if math.Abs(a.PassRate-200.0/3) > 0.01 {
		t.Fatalf("pass rate = %v, want 66.67", a.PassRate)
	}
	if math.Abs(a.AveragePercentage-50) > 0.01 {
		t.Fatalf("avg percentage = %v, want 50", a.AveragePercentage)
	}

	// Scores 0, 50 and 100 land in the first, middle and last bands.
	wantBands := map[string]int{"0-20": 1, "41-60": 1, "81-100": 1}
	for _, b := range a.ScoreBands {
		if b.Count != wantBands[b.Label] {
			t.Fatalf("band %s = %d, want %d", b.Label, b.Count, wantBands[b.Label])
		}
	}

	if len(a.Questions) != 3 {
		t.Fatalf("question stats = %d, want 3", len(a.Questions))
	}
	mcq := a.Questions[0]
	if mcq.Responses != 2 || mcq.CorrectCount != 2 || mcq.SuccessRate != 100 {
		t.Fatalf("mcq stats = %+v", mcq)
	}
	if mcq.AvgTimeSeconds != 15 {
		t.Fatalf("mcq avg time = %v, want 15", mcq.AvgTimeSeconds)
	}
	short := a.Questions[1]
	if short.Responses != 2 || short.CorrectCount != 1 {
		t.Fatalf("short stats = %+v", short)
	}
	if len(short.CommonMistakes) != 1 || short.CommonMistakes[0].Answer != "respiration" || short.CommonMistakes[0].Count != 1 {
		t.Fatalf("short mistakes = %+v", short.CommonMistakes)
	}
}

func TestAnalyticsOwnership(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	if _, err := f.review.Analytics(ctx, f.quiz.ID, "teacher-2", false); err != quiz.ErrForbidden {
		t.Fatalf("foreign teacher: err = %v, want ErrForbidden", err)
	}
	if _, err := f.review.Analytics(ctx, f.quiz.ID, "teacher-2", true); err != nil {
		t.Fatalf("admin read: %v", err)
	}
	if _, err := f.review.Analytics(ctx, "no-such-quiz", teacherID, false); err != quiz.ErrNotFound {
		t.Fatalf("missing quiz: err = %v, want ErrNotFound", err)
	}
}

func TestExportStudents(t *testing.T) {
	f := setup(t, nil)

	table, err := f.review.Export(context.Background(), f.quiz.ID, review.ExportStudents, teacherID, false)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if table.Filename != "quiz-student-performance.csv" {
		t.Fatalf("filename = %q", table.Filename)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(table.Rows))
	}
	for _, row := range table.Rows {
		if len(row) != len(table.Header) {
			t.Fatalf("row width %d != header width %d", len(row), len(table.Header))
		}
	}
}

func TestExportQuestionsAndUnknownType(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	table, err := f.review.Export(ctx, f.quiz.ID, review.ExportQuestions, teacherID, false)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(table.Rows))
	}

	_, err = f.review.Export(ctx, f.quiz.ID, "grades", teacherID, false)
	if !quiz.IsState(err) {
		t.Fatalf("unknown type: err = %v, want state error", err)
	}
}
