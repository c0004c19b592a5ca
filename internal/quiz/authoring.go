package quiz

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AuthoringService covers the teacher-facing quiz lifecycle:
// create → update → publish → archive, plus delete.
type AuthoringService struct {
	db      *sql.DB
	courses CourseDirectory
	log     *logrus.Logger
}

func NewAuthoringService(db *sql.DB, courses CourseDirectory, log *logrus.Logger) *AuthoringService {
	return &AuthoringService{db: db, courses: courses, log: log}
}

// Create validates and persists a quiz with its full question set in one
// transaction. A caller never observes a half-created quiz.
func (s *AuthoringService) Create(ctx context.Context, spec Spec, teacherID string) (Quiz, error) {
	if err := validateSpec(&spec); err != nil {
		return Quiz{}, err
	}
	owns, err := s.courses.Owns(ctx, spec.CourseID, teacherID)
	if err != nil {
		return Quiz{}, err
	}
	if !owns {
		return Quiz{}, ErrForbidden
	}

	passHash := ""
	if spec.Password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(spec.Password), bcrypt.DefaultCost)
		if err != nil {
			return Quiz{}, err
		}
		passHash = string(h)
	}

	id := uuid.NewString()
	now := time.Now().Unix()
	totalMarks, count := aggregate(spec.Questions)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Quiz{}, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO quizzes (id, course_id, teacher_id, title, description, instructions,
		   total_marks, question_count, start_datetime, end_datetime, duration_minutes,
		   max_attempts, passing_marks, shuffle_questions, shuffle_answers, show_results,
		   review_enabled, auto_submit, access_password, status, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`,
		id, spec.CourseID, teacherID, spec.Title, spec.Description, spec.Instructions,
		totalMarks, count, spec.StartDatetime, spec.EndDatetime, spec.DurationMinutes,
		spec.MaxAttempts, spec.PassingMarks, b2i(spec.ShuffleQuestions), b2i(spec.ShuffleAnswers),
		b2i(boolOr(spec.ShowResults, true)), b2i(boolOr(spec.ReviewEnabled, true)),
		b2i(spec.AutoSubmit), passHash, StatusDraft, now, now)
	if err != nil {
		return Quiz{}, err
	}
	if err := insertQuestions(ctx, tx, id, spec.Questions); err != nil {
		return Quiz{}, err
	}
	if err := tx.Commit(); err != nil {
		return Quiz{}, err
	}

	s.log.WithFields(logrus.Fields{"quiz_id": id, "teacher_id": teacherID, "questions": count}).
		Info("quiz created")
	return s.Get(ctx, id, teacherID)
}

// Update replaces the entire question set: delete everything, re-insert the
// new set, recompute aggregates, all inside one transaction. A quiz that
// already has attempts is frozen: replacing questions would orphan the
// answers referencing them.
func (s *AuthoringService) Update(ctx context.Context, quizID string, spec Spec, teacherID string) (Quiz, error) {
	existing, _, err := loadQuiz(ctx, s.db, quizID)
	if err != nil {
		return Quiz{}, err
	}
	if existing.TeacherID != teacherID {
		return Quiz{}, ErrForbidden
	}
	if spec.CourseID == "" {
		spec.CourseID = existing.CourseID
	}
	if err := validateSpec(&spec); err != nil {
		return Quiz{}, err
	}

	var attemptCount int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attempts WHERE quiz_id=$1`, quizID).Scan(&attemptCount); err != nil {
		return Quiz{}, err
	}
	if attemptCount > 0 {
		return Quiz{}, stateErr("quiz already has attempts and can no longer be edited")
	}

	totalMarks, count := aggregate(spec.Questions)
	now := time.Now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Quiz{}, err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM question_options WHERE question_id IN (SELECT id FROM questions WHERE quiz_id=$1)`,
		`DELETE FROM drag_drop_items WHERE question_id IN (SELECT id FROM questions WHERE quiz_id=$1)`,
		`DELETE FROM questions WHERE quiz_id=$1`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, quizID); err != nil {
			return Quiz{}, err
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE quizzes SET title=$1, description=$2, instructions=$3, total_marks=$4,
		   question_count=$5, start_datetime=$6, end_datetime=$7, duration_minutes=$8,
		   max_attempts=$9, passing_marks=$10, shuffle_questions=$11, shuffle_answers=$12,
		   show_results=$13, review_enabled=$14, auto_submit=$15, updated_at=$16
		 WHERE id=$17`,
		spec.Title, spec.Description, spec.Instructions, totalMarks, count,
		spec.StartDatetime, spec.EndDatetime, spec.DurationMinutes, spec.MaxAttempts,
		spec.PassingMarks, b2i(spec.ShuffleQuestions), b2i(spec.ShuffleAnswers),
		b2i(boolOr(spec.ShowResults, existing.ShowResults)),
		b2i(boolOr(spec.ReviewEnabled, existing.ReviewEnabled)),
		b2i(spec.AutoSubmit), now, quizID)
	if err != nil {
		return Quiz{}, err
	}
	if spec.Password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(spec.Password), bcrypt.DefaultCost)
		if err != nil {
			return Quiz{}, err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE quizzes SET access_password=$1 WHERE id=$2`, string(h), quizID); err != nil {
			return Quiz{}, err
		}
	}
	if err := insertQuestions(ctx, tx, quizID, spec.Questions); err != nil {
		return Quiz{}, err
	}
	if err := tx.Commit(); err != nil {
		return Quiz{}, err
	}

	s.log.WithFields(logrus.Fields{"quiz_id": quizID, "questions": count}).Info("quiz updated")
	return s.Get(ctx, quizID, teacherID)
}

// Publish moves draft → published. A quiz with no questions stays draft.
func (s *AuthoringService) Publish(ctx context.Context, quizID, teacherID string) error {
	qz, _, err := loadQuiz(ctx, s.db, quizID)
	if err != nil {
		return err
	}
	if qz.TeacherID != teacherID {
		return ErrForbidden
	}
	if qz.Status != StatusDraft {
		return stateErr("only a draft quiz can be published")
	}
	if qz.QuestionCount == 0 {
		return stateErr("cannot publish a quiz with no questions")
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE quizzes SET status=$1, updated_at=$2 WHERE id=$3`,
		StatusPublished, time.Now().Unix(), quizID)
	if err == nil {
		s.log.WithField("quiz_id", quizID).Info("quiz published")
	}
	return err
}

// Archive is unconditional beyond ownership.
func (s *AuthoringService) Archive(ctx context.Context, quizID, teacherID string) error {
	qz, _, err := loadQuiz(ctx, s.db, quizID)
	if err != nil {
		return err
	}
	if qz.TeacherID != teacherID {
		return ErrForbidden
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE quizzes SET status=$1, updated_at=$2 WHERE id=$3`,
		StatusArchived, time.Now().Unix(), quizID)
	return err
}

// Delete removes a quiz and everything under it in dependency order:
// answers → attempts → options/pairs → questions → quiz. The schema also
// declares cascades, but the delete order here does not rely on them.
func (s *AuthoringService) Delete(ctx context.Context, quizID, teacherID string) error {
	qz, _, err := loadQuiz(ctx, s.db, quizID)
	if err != nil {
		return err
	}
	if qz.TeacherID != teacherID {
		return ErrForbidden
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM answers WHERE attempt_id IN (SELECT id FROM attempts WHERE quiz_id=$1)`,
		`DELETE FROM attempts WHERE quiz_id=$1`,
		`DELETE FROM question_options WHERE question_id IN (SELECT id FROM questions WHERE quiz_id=$1)`,
		`DELETE FROM drag_drop_items WHERE question_id IN (SELECT id FROM questions WHERE quiz_id=$1)`,
		`DELETE FROM questions WHERE quiz_id=$1`,
		`DELETE FROM quizzes WHERE id=$1`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, quizID); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.WithField("quiz_id", quizID).Info("quiz deleted")
	return nil
}

// Get returns the owner's view of a quiz, answer keys included.
func (s *AuthoringService) Get(ctx context.Context, quizID, teacherID string) (Quiz, error) {
	qz, _, err := loadQuiz(ctx, s.db, quizID)
	if err != nil {
		return Quiz{}, err
	}
	if qz.TeacherID != teacherID {
		return Quiz{}, ErrForbidden
	}
	qs, err := loadQuestions(ctx, s.db, quizID, true)
	if err != nil {
		return Quiz{}, err
	}
	qz.Questions = qs
	return qz, nil
}

// ListForTeacher returns a teacher's quizzes, newest first.
func (s *AuthoringService) ListForTeacher(ctx context.Context, teacherID string) ([]Quiz, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+quizCols+` FROM quizzes WHERE teacher_id=$1 ORDER BY created_at DESC`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Quiz
	for rows.Next() {
		var (
			qz                                   Quiz
			startDT, endDT                       sql.NullInt64
			shufQ, shufA, showRes, revEn, autoSb int
			passHash                             string
		)
		if err := rows.Scan(&qz.ID, &qz.CourseID, &qz.TeacherID, &qz.Title, &qz.Description,
			&qz.Instructions, &qz.TotalMarks, &qz.QuestionCount, &startDT, &endDT,
			&qz.DurationMinutes, &qz.MaxAttempts, &qz.PassingMarks, &shufQ, &shufA,
			&showRes, &revEn, &autoSb, &passHash, &qz.Status, &qz.CreatedAt, &qz.UpdatedAt); err != nil {
			return nil, err
		}
		if startDT.Valid {
			qz.StartDatetime = &startDT.Int64
		}
		if endDT.Valid {
			qz.EndDatetime = &endDT.Int64
		}
		qz.ShuffleQuestions = shufQ != 0
		qz.ShuffleAnswers = shufA != 0
		qz.ShowResults = showRes != 0
		qz.ReviewEnabled = revEn != 0
		qz.AutoSubmit = autoSb != 0
		qz.HasPassword = passHash != ""
		out = append(out, qz)
	}
	return out, rows.Err()
}

// --- validation & persistence helpers ---

func validateSpec(spec *Spec) error {
	if strings.TrimSpace(spec.Title) == "" {
		return validationErr("title", "title is required")
	}
	if strings.TrimSpace(spec.CourseID) == "" {
		return validationErr("course_id", "course is required")
	}
	if len(spec.Questions) == 0 {
		return validationErr("questions", "at least one question is required")
	}
	if spec.MaxAttempts <= 0 {
		spec.MaxAttempts = 1
	}
	if spec.StartDatetime != nil && spec.EndDatetime != nil && *spec.EndDatetime <= *spec.StartDatetime {
		return validationErr("end_datetime", "end must be after start")
	}
	for i := range spec.Questions {
		q := &spec.Questions[i]
		if strings.TrimSpace(q.Prompt) == "" {
			return questionErr(i, "prompt is required")
		}
		if q.Marks <= 0 {
			q.Marks = 1
		}
		switch q.Type {
		case TypeMCQ:
			if len(q.Options) < 2 {
				return questionErr(i, "mcq question needs at least 2 options")
			}
			correct := 0
			for _, o := range q.Options {
				if o.IsCorrect {
					correct++
				}
			}
			if correct == 0 {
				return questionErr(i, "mcq question needs at least one correct option")
			}
		case TypeShortAnswer:
			if strings.TrimSpace(q.CorrectAnswer) == "" {
				return questionErr(i, "short answer question needs a correct answer")
			}
		case TypeDragDrop:
			if len(q.Pairs) < 2 {
				return questionErr(i, "drag and drop question needs at least 2 pairs")
			}
		default:
			return questionErr(i, "unknown question type: "+q.Type)
		}
	}
	return nil
}

func aggregate(qs []QuestionSpec) (totalMarks float64, count int) {
	for _, q := range qs {
		m := q.Marks
		if m <= 0 {
			m = 1
		}
		totalMarks += m
	}
	return totalMarks, len(qs)
}

func insertQuestions(ctx context.Context, tx querier, quizID string, qs []QuestionSpec) error {
	for i, q := range qs {
		qid := uuid.NewString()
		marks := q.Marks
		if marks <= 0 {
			marks = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO questions (id, quiz_id, type, prompt, marks, order_index,
			   correct_answer, case_sensitive, explanation)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			qid, quizID, q.Type, q.Prompt, marks, i,
			q.CorrectAnswer, b2i(q.CaseSensitive), q.Explanation); err != nil {
			return err
		}
		for j, o := range q.Options {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO question_options (id, question_id, option_text, is_correct, order_index)
				 VALUES ($1,$2,$3,$4,$5)`,
				uuid.NewString(), qid, o.Text, b2i(o.IsCorrect), j); err != nil {
				return err
			}
		}
		for j, p := range q.Pairs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO drag_drop_items (id, question_id, item_text, target_text, match_id, order_index)
				 VALUES ($1,$2,$3,$4,$5,$6)`,
				uuid.NewString(), qid, p.ItemText, p.TargetText, j, j); err != nil {
				return err
			}
		}
	}
	return nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
