package quiz

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/studymesh/studymesh-lms/internal/audit"
)

// ExpireOverdue walks every in-progress attempt whose deadline has passed.
// Attempts on auto-submit quizzes are scored and completed as if the student
// had submitted at the deadline; the rest are marked expired. A client that
// never calls submit therefore cannot hold an attempt open forever.
func (s *AttemptService) ExpireOverdue(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.quiz_id, a.student_id, a.start_time, q.duration_minutes, q.auto_submit
		   FROM attempts a
		   JOIN quizzes q ON q.id = a.quiz_id
		  WHERE a.status=$1 AND q.duration_minutes > 0`, AttemptInProgress)
	if err != nil {
		return 0, err
	}

	type overdueRow struct {
		attemptID, quizID, studentID string
		autoSubmit                   bool
	}
	now := s.now().Unix()
	var due []overdueRow
	for rows.Next() {
		var (
			r         overdueRow
			startTime int64
			duration  int
			autoSb    int
		)
		if err := rows.Scan(&r.attemptID, &r.quizID, &r.studentID, &startTime, &duration, &autoSb); err != nil {
			rows.Close()
			return 0, err
		}
		deadline := startTime + int64(duration)*60 + int64(s.graceSeconds)
		if now > deadline {
			r.autoSubmit = autoSb != 0
			due = append(due, r)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	handled := 0
	for _, r := range due {
		if r.autoSubmit {
			qz, _, err := loadQuiz(ctx, s.db, r.quizID)
			if err != nil {
				s.log.WithError(err).WithField("attempt_id", r.attemptID).Warn("expiry: load quiz failed")
				continue
			}
			if err := s.score(ctx, r.attemptID, qz); err != nil {
				s.log.WithError(err).WithField("attempt_id", r.attemptID).Warn("expiry: scoring failed")
				continue
			}
			if _, err := s.db.ExecContext(ctx,
				`UPDATE attempts SET status=$1, end_time=$2 WHERE id=$3`,
				AttemptCompleted, now, r.attemptID); err != nil {
				return handled, err
			}
		} else {
			if _, err := s.db.ExecContext(ctx,
				`UPDATE attempts SET status=$1, end_time=$2 WHERE id=$3`,
				AttemptExpired, now, r.attemptID); err != nil {
				return handled, err
			}
		}
		handled++

		if err := s.access.Append(ctx, audit.Event{
			Type:      audit.EventAttemptExpired,
			QuizID:    r.quizID,
			AttemptID: r.attemptID,
			UserID:    r.studentID,
		}); err != nil {
			s.log.WithError(err).Warn("access log append failed")
		}
	}
	if handled > 0 {
		s.log.WithFields(logrus.Fields{"count": handled}).Info("overdue attempts finalized")
	}
	return handled, nil
}
