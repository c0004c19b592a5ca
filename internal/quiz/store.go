package quiz

import (
	"context"
	"database/sql"
	"errors"
)

// querier is satisfied by both *sql.DB and *sql.Tx so row helpers work
// inside and outside transactions.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CourseDirectory is the enrollment/ownership collaborator. The quiz services
// never touch roster tables directly.
type CourseDirectory interface {
	Owns(ctx context.Context, courseID, teacherID string) (bool, error)
	IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error)
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

const quizCols = `id, course_id, teacher_id, title, description, instructions,
	total_marks, question_count, start_datetime, end_datetime, duration_minutes,
	max_attempts, passing_marks, shuffle_questions, shuffle_answers, show_results,
	review_enabled, auto_submit, access_password, status, created_at, updated_at`

// loadQuiz reads one quiz row. The bcrypt hash of the access password is
// returned separately so it never rides along on API payloads.
func loadQuiz(ctx context.Context, q querier, id string) (Quiz, string, error) {
	row := q.QueryRowContext(ctx, `SELECT `+quizCols+` FROM quizzes WHERE id=$1`, id)

	var (
		qz                                   Quiz
		startDT, endDT                       sql.NullInt64
		shufQ, shufA, showRes, revEn, autoSb int
		passHash                             string
	)
	err := row.Scan(&qz.ID, &qz.CourseID, &qz.TeacherID, &qz.Title, &qz.Description,
		&qz.Instructions, &qz.TotalMarks, &qz.QuestionCount, &startDT, &endDT,
		&qz.DurationMinutes, &qz.MaxAttempts, &qz.PassingMarks, &shufQ, &shufA,
		&showRes, &revEn, &autoSb, &passHash, &qz.Status, &qz.CreatedAt, &qz.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Quiz{}, "", ErrNotFound
	}
	if err != nil {
		return Quiz{}, "", err
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
	return qz, passHash, nil
}

// loadQuestions reads a quiz's questions in authoring order, with their
// options and drag-drop pairs attached. When withKeys is false the correct
// answers, option correctness flags and pair targets stay hidden.
func loadQuestions(ctx context.Context, q querier, quizID string, withKeys bool) ([]Question, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, quiz_id, type, prompt, marks, order_index, correct_answer, case_sensitive, explanation
		   FROM questions WHERE quiz_id=$1 ORDER BY order_index`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var qs []Question
	byID := map[string]int{}
	for rows.Next() {
		var (
			qu     Question
			caseCS int
		)
		if err := rows.Scan(&qu.ID, &qu.QuizID, &qu.Type, &qu.Prompt, &qu.Marks,
			&qu.OrderIndex, &qu.CorrectAnswer, &caseCS, &qu.Explanation); err != nil {
			return nil, err
		}
		qu.CaseSensitive = caseCS != 0
		if !withKeys {
			qu.CorrectAnswer = ""
			qu.CaseSensitive = false
		}
		byID[qu.ID] = len(qs)
		qs = append(qs, qu)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return qs, nil
	}

	orows, err := q.QueryContext(ctx,
		`SELECT o.id, o.question_id, o.option_text, o.is_correct, o.order_index
		   FROM question_options o
		   JOIN questions qn ON qn.id = o.question_id
		  WHERE qn.quiz_id=$1 ORDER BY o.order_index`, quizID)
	if err != nil {
		return nil, err
	}
	defer orows.Close()
	for orows.Next() {
		var (
			o       Option
			correct int
		)
		if err := orows.Scan(&o.ID, &o.QuestionID, &o.Text, &correct, &o.OrderIndex); err != nil {
			return nil, err
		}
		o.IsCorrect = correct != 0 && withKeys
		if i, ok := byID[o.QuestionID]; ok {
			qs[i].Options = append(qs[i].Options, o)
		}
	}
	if err := orows.Err(); err != nil {
		return nil, err
	}

	prows, err := q.QueryContext(ctx,
		`SELECT d.id, d.question_id, d.item_text, d.target_text, d.match_id, d.order_index
		   FROM drag_drop_items d
		   JOIN questions qn ON qn.id = d.question_id
		  WHERE qn.quiz_id=$1 ORDER BY d.order_index`, quizID)
	if err != nil {
		return nil, err
	}
	defer prows.Close()
	for prows.Next() {
		var p DragDropItem
		if err := prows.Scan(&p.ID, &p.QuestionID, &p.ItemText, &p.TargetText, &p.MatchID, &p.OrderIndex); err != nil {
			return nil, err
		}
		if i, ok := byID[p.QuestionID]; ok {
			qs[i].Pairs = append(qs[i].Pairs, p)
		}
	}
	return qs, prows.Err()
}

func loadAttempt(ctx context.Context, q querier, id string) (Attempt, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, quiz_id, student_id, attempt_number, status, start_time, end_time,
		        total_marks_obtained, percentage, is_passed, time_spent_seconds
		   FROM attempts WHERE id=$1`, id)

	var (
		a          Attempt
		endTime    sql.NullInt64
		marks, pct sql.NullFloat64
		passed     sql.NullInt64
	)
	err := row.Scan(&a.ID, &a.QuizID, &a.StudentID, &a.AttemptNumber, &a.Status,
		&a.StartTime, &endTime, &marks, &pct, &passed, &a.TimeSpentSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrNotFound
	}
	if err != nil {
		return Attempt{}, err
	}
	if endTime.Valid {
		a.EndTime = &endTime.Int64
	}
	if marks.Valid {
		a.TotalMarksObtained = &marks.Float64
	}
	if pct.Valid {
		a.Percentage = &pct.Float64
	}
	if passed.Valid {
		b := passed.Int64 != 0
		a.IsPassed = &b
	}
	return a, nil
}
