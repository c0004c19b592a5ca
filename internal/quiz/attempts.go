package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/studymesh/studymesh-lms/internal/audit"
	"github.com/studymesh/studymesh-lms/internal/grading"
)

// AccessLogger is the append-only audit sink for start/submit events.
type AccessLogger interface {
	Append(ctx context.Context, e audit.Event) error
}

// AttemptService drives the student-facing attempt lifecycle:
// start → answer → submit → scored.
type AttemptService struct {
	db      *sql.DB
	courses CourseDirectory
	access  AccessLogger
	grader  grading.Grader
	log     *logrus.Logger

	// graceSeconds is slack added to the quiz duration before an attempt
	// counts as overdue at submit time.
	graceSeconds int

	now func() time.Time
}

func NewAttemptService(db *sql.DB, courses CourseDirectory, access AccessLogger, log *logrus.Logger, graceSeconds int) *AttemptService {
	return &AttemptService{
		db:           db,
		courses:      courses,
		access:       access,
		grader:       grading.NewDefaultGrader(),
		log:          log,
		graceSeconds: graceSeconds,
		now:          time.Now,
	}
}

// ListForStudent returns the published quizzes reachable through the
// student's enrollments, annotated with attempt history and a presentation
// status computed from the current wall-clock time.
func (s *AttemptService) ListForStudent(ctx context.Context, studentID string) ([]StudentQuizView, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT q.id, c.name
		   FROM quizzes q
		   JOIN courses c ON c.id = q.course_id
		   JOIN course_students cs ON cs.course_id = q.course_id
		  WHERE cs.student_id=$1 AND cs.status='active' AND q.status=$2
		  ORDER BY q.created_at DESC`, studentID, StatusPublished)
	if err != nil {
		return nil, err
	}
	type idName struct{ id, name string }
	var ids []idName
	for rows.Next() {
		var v idName
		if err := rows.Scan(&v.id, &v.name); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	now := s.now().Unix()
	views := make([]StudentQuizView, 0, len(ids))
	for _, v := range ids {
		qz, _, err := loadQuiz(ctx, s.db, v.id)
		if err != nil {
			return nil, err
		}

		var used int
		var best sql.NullFloat64
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*), MAX(percentage) FROM attempts WHERE quiz_id=$1 AND student_id=$2`,
			v.id, studentID).Scan(&used, &best); err != nil {
			return nil, err
		}

		view := StudentQuizView{
			Quiz:         qz,
			CourseName:   v.name,
			AttemptsUsed: used,
			Presentation: presentationStatus(qz, used, now),
		}
		if best.Valid {
			view.BestPercentage = &best.Float64
		}
		views = append(views, view)
	}
	return views, nil
}

// presentationStatus is never stored; it is derived on every read.
func presentationStatus(qz Quiz, attemptsUsed int, now int64) string {
	if qz.MaxAttempts > 0 && attemptsUsed >= qz.MaxAttempts {
		return PresentCompleted
	}
	if qz.StartDatetime != nil && now < *qz.StartDatetime {
		return PresentUpcoming
	}
	if qz.EndDatetime != nil && now > *qz.EndDatetime {
		return PresentExpired
	}
	return PresentActive
}

// StartInput carries the request-scoped details for Start.
type StartInput struct {
	QuizID   string
	Password string
	ClientIP string
}

// Start opens a new attempt. Attempt numbers are assigned max+1 under a
// unique constraint on (quiz_id, student_id, attempt_number): a concurrent
// starter loses the insert and retries with a fresh number.
func (s *AttemptService) Start(ctx context.Context, in StartInput, studentID string) (Attempt, error) {
	qz, passHash, err := loadQuiz(ctx, s.db, in.QuizID)
	if err != nil {
		return Attempt{}, err
	}
	if qz.Status != StatusPublished {
		return Attempt{}, ErrNotFound
	}

	enrolled, err := s.courses.IsEnrolled(ctx, qz.CourseID, studentID)
	if err != nil {
		return Attempt{}, err
	}
	if !enrolled {
		return Attempt{}, ErrForbidden
	}

	now := s.now().Unix()
	if qz.StartDatetime != nil && now < *qz.StartDatetime {
		return Attempt{}, stateErr("quiz has not started yet")
	}
	if qz.EndDatetime != nil && now > *qz.EndDatetime {
		return Attempt{}, stateErr("quiz has ended")
	}
	if passHash != "" {
		if bcrypt.CompareHashAndPassword([]byte(passHash), []byte(in.Password)) != nil {
			return Attempt{}, ErrForbidden
		}
	}

	var attempt Attempt
	for try := 0; ; try++ {
		var used int
		var maxNum sql.NullInt64
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*), MAX(attempt_number) FROM attempts WHERE quiz_id=$1 AND student_id=$2`,
			in.QuizID, studentID).Scan(&used, &maxNum); err != nil {
			return Attempt{}, err
		}
		if qz.MaxAttempts > 0 && used >= qz.MaxAttempts {
			return Attempt{}, stateErr("maximum attempts reached")
		}

		attempt = Attempt{
			ID:            uuid.NewString(),
			QuizID:        in.QuizID,
			StudentID:     studentID,
			AttemptNumber: int(maxNum.Int64) + 1,
			Status:        AttemptInProgress,
			StartTime:     s.now().Unix(),
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO attempts (id, quiz_id, student_id, attempt_number, status, start_time, time_spent_seconds)
			 VALUES ($1,$2,$3,$4,$5,$6,0)`,
			attempt.ID, attempt.QuizID, attempt.StudentID, attempt.AttemptNumber,
			attempt.Status, attempt.StartTime)
		if err == nil {
			break
		}
		if isUniqueViolation(err) && try < 3 {
			continue
		}
		return Attempt{}, err
	}

	if err := s.access.Append(ctx, audit.Event{
		Type:      audit.EventAttemptStarted,
		QuizID:    in.QuizID,
		AttemptID: attempt.ID,
		UserID:    studentID,
		IP:        in.ClientIP,
	}); err != nil {
		s.log.WithError(err).Warn("access log append failed")
	}

	s.log.WithFields(logrus.Fields{
		"quiz_id":    in.QuizID,
		"attempt_id": attempt.ID,
		"number":     attempt.AttemptNumber,
	}).Info("attempt started")
	return attempt, nil
}

// GetQuestions serves the attempt's question set with answer keys stripped.
// Order is authoring order unless the quiz shuffles, in which case the
// shuffle is derived from the attempt ID and is stable across refetches.
func (s *AttemptService) GetQuestions(ctx context.Context, quizID, attemptID, studentID string) ([]AttemptQuestion, error) {
	att, err := loadAttempt(ctx, s.db, attemptID)
	if err != nil {
		return nil, err
	}
	if att.QuizID != quizID {
		return nil, ErrNotFound
	}
	if att.StudentID != studentID {
		return nil, ErrForbidden
	}

	qz, _, err := loadQuiz(ctx, s.db, quizID)
	if err != nil {
		return nil, err
	}
	questions, err := loadQuestions(ctx, s.db, quizID, false)
	if err != nil {
		return nil, err
	}

	out := make([]AttemptQuestion, 0, len(questions))
	for _, q := range questions {
		aq := AttemptQuestion{
			ID:         q.ID,
			Type:       q.Type,
			Prompt:     q.Prompt,
			Marks:      q.Marks,
			OrderIndex: q.OrderIndex,
		}
		switch q.Type {
		case TypeMCQ:
			aq.Options = append(aq.Options, q.Options...)
			if qz.ShuffleAnswers {
				shuffleOptions(attemptRand(attemptID, q.ID), aq.Options)
			}
		case TypeDragDrop:
			for _, p := range q.Pairs {
				aq.Items = append(aq.Items, p.ItemText)
				aq.Targets = append(aq.Targets, p.TargetText)
			}
			// Items are shuffled so the row order does not leak the pairing.
			shuffleStrings(attemptRand(attemptID, q.ID, "items"), aq.Items)
		}
		out = append(out, aq)
	}
	if qz.ShuffleQuestions {
		shuffleQuestions(attemptRand(attemptID), out)
	}
	return out, nil
}

// SubmitAnswer upserts the single Answer row for (attempt, question). The
// unique constraint makes re-submission idempotent: the latest values win.
func (s *AttemptService) SubmitAnswer(ctx context.Context, attemptID, studentID string, sub AnswerSubmission) error {
	att, err := loadAttempt(ctx, s.db, attemptID)
	if err != nil {
		return err
	}
	if att.StudentID != studentID {
		return ErrForbidden
	}
	if att.Status != AttemptInProgress {
		return stateErr("attempt is no longer in progress")
	}

	var one int
	err = s.db.QueryRowContext(ctx,
		`SELECT 1 FROM questions WHERE id=$1 AND quiz_id=$2`, sub.QuestionID, att.QuizID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	matches := ""
	if len(sub.Matches) > 0 {
		buf, err := json.Marshal(sub.Matches)
		if err != nil {
			return err
		}
		matches = string(buf)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO answers (id, attempt_id, question_id, answer_text, selected_option_id,
		   drag_drop_matches, time_spent_seconds, answered_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (attempt_id, question_id) DO UPDATE SET
		   answer_text=excluded.answer_text,
		   selected_option_id=excluded.selected_option_id,
		   drag_drop_matches=excluded.drag_drop_matches,
		   time_spent_seconds=excluded.time_spent_seconds,
		   answered_at=excluded.answered_at,
		   marks_obtained=NULL,
		   is_correct=NULL`,
		uuid.NewString(), attemptID, sub.QuestionID, sub.AnswerText, sub.SelectedOptionID,
		matches, sub.TimeSpentSeconds, s.now().Unix())
	return err
}

// Submit finalizes an attempt: deadline check, transactional scoring, then
// the completed status. A failed scoring run leaves the attempt in progress
// and unscored.
func (s *AttemptService) Submit(ctx context.Context, attemptID, studentID, clientIP string, timeSpentSeconds int) (Attempt, error) {
	att, err := loadAttempt(ctx, s.db, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if att.StudentID != studentID {
		return Attempt{}, ErrForbidden
	}
	if att.Status == AttemptCompleted {
		return Attempt{}, stateErr("attempt already submitted")
	}
	if att.Status == AttemptExpired {
		return Attempt{}, stateErr("attempt has expired")
	}

	qz, _, err := loadQuiz(ctx, s.db, att.QuizID)
	if err != nil {
		return Attempt{}, err
	}
	if overdue(qz, att, s.now().Unix(), s.graceSeconds) && !qz.AutoSubmit {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE attempts SET status=$1, end_time=$2 WHERE id=$3`,
			AttemptExpired, s.now().Unix(), attemptID); err != nil {
			return Attempt{}, err
		}
		return Attempt{}, stateErr("attempt time has expired")
	}

	if err := s.score(ctx, attemptID, qz); err != nil {
		return Attempt{}, err
	}

	now := s.now().Unix()
	if _, err := s.db.ExecContext(ctx,
		`UPDATE attempts SET status=$1, end_time=$2, time_spent_seconds=$3 WHERE id=$4`,
		AttemptCompleted, now, timeSpentSeconds, attemptID); err != nil {
		return Attempt{}, err
	}

	if err := s.access.Append(ctx, audit.Event{
		Type:      audit.EventAttemptSubmitted,
		QuizID:    att.QuizID,
		AttemptID: attemptID,
		UserID:    studentID,
		IP:        clientIP,
	}); err != nil {
		s.log.WithError(err).Warn("access log append failed")
	}

	return loadAttempt(ctx, s.db, attemptID)
}

// GetAttempt returns one attempt; students see only their own.
func (s *AttemptService) GetAttempt(ctx context.Context, attemptID, callerID string, callerIsStaff bool) (Attempt, error) {
	att, err := loadAttempt(ctx, s.db, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if !callerIsStaff && att.StudentID != callerID {
		return Attempt{}, ErrForbidden
	}
	return att, nil
}

func overdue(qz Quiz, att Attempt, now int64, graceSeconds int) bool {
	if qz.DurationMinutes <= 0 {
		return false
	}
	deadline := att.StartTime + int64(qz.DurationMinutes)*60 + int64(graceSeconds)
	return now > deadline
}
