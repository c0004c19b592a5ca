package expiry_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/studymesh/studymesh-lms/internal/audit"
	"github.com/studymesh/studymesh-lms/internal/course"
	"github.com/studymesh/studymesh-lms/internal/db"
	"github.com/studymesh/studymesh-lms/internal/expiry"
	"github.com/studymesh/studymesh-lms/internal/quiz"
)

func TestStartRejectsMalformedSpec(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	s := expiry.NewSweeper(nil, log)
	require.Error(t, s.Start("not a cron spec"))
}

func TestSweepFinalizesOverdueAttempts(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { dbh.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	courses := course.NewDirectory(dbh)
	c, err := courses.Create(ctx, "History", "teacher-1")
	require.NoError(t, err)
	require.NoError(t, courses.Enroll(ctx, c.ID, "student-1"))

	authoring := quiz.NewAuthoringService(dbh, courses, log)
	qz, err := authoring.Create(ctx, quiz.Spec{
		CourseID:        c.ID,
		Title:           "Timed Quiz",
		DurationMinutes: 1,
		Questions: []quiz.QuestionSpec{
			{Type: quiz.TypeShortAnswer, Prompt: "Year of the moon landing?", CorrectAnswer: "1969"},
		},
	}, "teacher-1")
	require.NoError(t, err)
	require.NoError(t, authoring.Publish(ctx, qz.ID, "teacher-1"))

	attempts := quiz.NewAttemptService(dbh, courses, audit.NewEventRepo(dbh), log, 0)
	att, err := attempts.Start(ctx, quiz.StartInput{QuizID: qz.ID}, "student-1")
	require.NoError(t, err)

	// Backdate the attempt well past its one minute of allowed time.
	_, err = dbh.ExecContext(ctx,
		`UPDATE attempts SET start_time = start_time - 3600 WHERE id=$1`, att.ID)
	require.NoError(t, err)

	s := expiry.NewSweeper(attempts, log)
	require.NoError(t, s.Start("@every 100ms"))
	t.Cleanup(s.Stop)

	require.Eventually(t, func() bool {
		got, err := attempts.GetAttempt(ctx, att.ID, "student-1", false)
		return err == nil && got.Status == quiz.AttemptExpired
	}, 5*time.Second, 50*time.Millisecond)
}
