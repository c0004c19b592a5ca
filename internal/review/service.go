// Package review is the post-hoc reporting side of the quiz engine: score
// summaries, per-question review, aggregate analytics and tabular export.
// It only ever reads rows the scoring engine has already finalized.
package review

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/studymesh/studymesh-lms/internal/quiz"
)

type Service struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewService(db *sql.DB, log *logrus.Logger) *Service {
	return &Service{db: db, log: log}
}

// ResultSummary is the score card for one completed attempt.
type ResultSummary struct {
	AttemptID        string  `json:"attempt_id"`
	QuizID           string  `json:"quiz_id"`
	QuizTitle        string  `json:"quiz_title"`
	AttemptNumber    int     `json:"attempt_number"`
	TotalMarks       float64 `json:"total_marks"`
	MarksObtained    float64 `json:"marks_obtained"`
	Percentage       float64 `json:"percentage"`
	PassingMarks     float64 `json:"passing_marks"`
	Passed           bool    `json:"passed"`
	TimeSpentSeconds int     `json:"time_spent_seconds"`
	SubmittedAt      int64   `json:"submitted_at"`
}

// attemptMeta is the joined attempt+quiz view every operation here starts from.
type attemptMeta struct {
	attemptID, quizID, studentID string
	quizTitle, status            string
	attemptNumber                int
	totalMarks, passingMarks     float64
	showResults, reviewEnabled   bool
	teacherID                    string
	marksObtained, percentage    sql.NullFloat64
	isPassed                     sql.NullInt64
	endTime                      sql.NullInt64
	timeSpent                    int
}

func (s *Service) attempt(ctx context.Context, attemptID string) (attemptMeta, error) {
	var (
		m                 attemptMeta
		showRes, reviewEn int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT a.id, a.quiz_id, a.student_id, a.status, a.attempt_number,
		        a.total_marks_obtained, a.percentage, a.is_passed, a.end_time, a.time_spent_seconds,
		        q.title, q.total_marks, q.passing_marks, q.show_results, q.review_enabled, q.teacher_id
		   FROM attempts a
		   JOIN quizzes q ON q.id = a.quiz_id
		  WHERE a.id=$1`, attemptID).
		Scan(&m.attemptID, &m.quizID, &m.studentID, &m.status, &m.attemptNumber,
			&m.marksObtained, &m.percentage, &m.isPassed, &m.endTime, &m.timeSpent,
			&m.quizTitle, &m.totalMarks, &m.passingMarks, &showRes, &reviewEn, &m.teacherID)
	if errors.Is(err, sql.ErrNoRows) {
		return attemptMeta{}, quiz.ErrNotFound
	}
	if err != nil {
		return attemptMeta{}, err
	}
	m.showResults = showRes != 0
	m.reviewEnabled = reviewEn != 0
	return m, nil
}

func (m attemptMeta) visibleTo(callerID string, staff bool) bool {
	return staff || m.studentID == callerID
}

// Results returns the score summary for a completed attempt. A quiz with
// show_results disabled refuses with a permission error, not a not-found.
func (s *Service) Results(ctx context.Context, attemptID, callerID string, staff bool) (ResultSummary, error) {
	m, err := s.attempt(ctx, attemptID)
	if err != nil {
		return ResultSummary{}, err
	}
	if !m.visibleTo(callerID, staff) {
		return ResultSummary{}, quiz.ErrForbidden
	}
	if !m.showResults && !staff {
		return ResultSummary{}, quiz.ErrForbidden
	}
	if m.status != quiz.AttemptCompleted {
		return ResultSummary{}, &quiz.StateError{Msg: "attempt is not completed"}
	}

	out := ResultSummary{
		AttemptID:        m.attemptID,
		QuizID:           m.quizID,
		QuizTitle:        m.quizTitle,
		AttemptNumber:    m.attemptNumber,
		TotalMarks:       m.totalMarks,
		PassingMarks:     m.passingMarks,
		MarksObtained:    m.marksObtained.Float64,
		Percentage:       m.percentage.Float64,
		Passed:           m.isPassed.Int64 != 0,
		TimeSpentSeconds: m.timeSpent,
		SubmittedAt:      m.endTime.Int64,
	}
	return out, nil
}

// QuestionReview is a single row of the per-question breakdown.
type QuestionReview struct {
	QuestionID       string  `json:"question_id"`
	Type             string  `json:"type"`
	Prompt           string  `json:"prompt"`
	Marks            float64 `json:"marks"`
	Answered         bool    `json:"answered"`
	YourAnswer       string  `json:"your_answer"`
	CorrectAnswer    string  `json:"correct_answer"`
	MarksObtained    float64 `json:"marks_obtained"`
	IsCorrect        bool    `json:"is_correct"`
	Explanation      string  `json:"explanation,omitempty"`
	TimeSpentSeconds int     `json:"time_spent_seconds"`
}

// Review returns the full per-question breakdown for a completed attempt.
// Drag-drop answers are rendered as "item → target; item → target" because
// the raw mapping means nothing without the pairing context.
func (s *Service) Review(ctx context.Context, attemptID, callerID string, staff bool) ([]QuestionReview, error) {
	m, err := s.attempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if !m.visibleTo(callerID, staff) {
		return nil, quiz.ErrForbidden
	}
	if !m.reviewEnabled && !staff {
		return nil, quiz.ErrForbidden
	}
	if m.status != quiz.AttemptCompleted {
		return nil, &quiz.StateError{Msg: "attempt is not completed"}
	}

	questions, err := s.quizQuestions(ctx, m.quizID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id, answer_text, selected_option_id, drag_drop_matches,
		        time_spent_seconds, marks_obtained, is_correct
		   FROM answers WHERE attempt_id=$1`, attemptID)
	if err != nil {
		return nil, err
	}
	type answerRow struct {
		text, optionID, matches string
		timeSpent               int
		marks                   sql.NullFloat64
		correct                 sql.NullInt64
	}
	answers := map[string]answerRow{}
	for rows.Next() {
		var (
			qid string
			a   answerRow
		)
		if err := rows.Scan(&qid, &a.text, &a.optionID, &a.matches,
			&a.timeSpent, &a.marks, &a.correct); err != nil {
			rows.Close()
			return nil, err
		}
		answers[qid] = a
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]QuestionReview, 0, len(questions))
	for _, q := range questions {
		r := QuestionReview{
			QuestionID:    q.ID,
			Type:          q.Type,
			Prompt:        q.Prompt,
			Marks:         q.Marks,
			CorrectAnswer: renderCorrect(q),
			Explanation:   q.Explanation,
		}
		if a, ok := answers[q.ID]; ok {
			r.Answered = true
			r.YourAnswer = renderAnswer(q, a.text, a.optionID, a.matches)
			r.TimeSpentSeconds = a.timeSpent
			r.MarksObtained = a.marks.Float64
			r.IsCorrect = a.correct.Int64 != 0
		} else {
			r.YourAnswer = "not answered"
		}
		out = append(out, r)
	}
	return out, nil
}

// reviewQuestion is the loaded authoring view used for rendering.
type reviewQuestion struct {
	ID, Type, Prompt, CorrectAnswer, Explanation string
	Marks                                        float64
	Options                                      []optionRow
	Pairs                                        []pairRow
}

type optionRow struct {
	ID, Text  string
	IsCorrect bool
}

type pairRow struct {
	Item, Target string
}

func (s *Service) quizQuestions(ctx context.Context, quizID string) ([]reviewQuestion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, prompt, marks, correct_answer, explanation
		   FROM questions WHERE quiz_id=$1 ORDER BY order_index`, quizID)
	if err != nil {
		return nil, err
	}
	var qs []reviewQuestion
	byID := map[string]int{}
	for rows.Next() {
		var q reviewQuestion
		if err := rows.Scan(&q.ID, &q.Type, &q.Prompt, &q.Marks, &q.CorrectAnswer, &q.Explanation); err != nil {
			rows.Close()
			return nil, err
		}
		byID[q.ID] = len(qs)
		qs = append(qs, q)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	orows, err := s.db.QueryContext(ctx,
		`SELECT o.question_id, o.id, o.option_text, o.is_correct
		   FROM question_options o
		   JOIN questions qn ON qn.id = o.question_id
		  WHERE qn.quiz_id=$1 ORDER BY o.order_index`, quizID)
	if err != nil {
		return nil, err
	}
	for orows.Next() {
		var (
			qid     string
			o       optionRow
			correct int
		)
		if err := orows.Scan(&qid, &o.ID, &o.Text, &correct); err != nil {
			orows.Close()
			return nil, err
		}
		o.IsCorrect = correct != 0
		if i, ok := byID[qid]; ok {
			qs[i].Options = append(qs[i].Options, o)
		}
	}
	orows.Close()
	if err := orows.Err(); err != nil {
		return nil, err
	}

	prows, err := s.db.QueryContext(ctx,
		`SELECT d.question_id, d.item_text, d.target_text
		   FROM drag_drop_items d
		   JOIN questions qn ON qn.id = d.question_id
		  WHERE qn.quiz_id=$1 ORDER BY d.order_index`, quizID)
	if err != nil {
		return nil, err
	}
	for prows.Next() {
		var (
			qid string
			p   pairRow
		)
		if err := prows.Scan(&qid, &p.Item, &p.Target); err != nil {
			prows.Close()
			return nil, err
		}
		if i, ok := byID[qid]; ok {
			qs[i].Pairs = append(qs[i].Pairs, p)
		}
	}
	prows.Close()
	return qs, prows.Err()
}

func renderCorrect(q reviewQuestion) string {
	switch q.Type {
	case quiz.TypeMCQ:
		var correct []string
		for _, o := range q.Options {
			if o.IsCorrect {
				correct = append(correct, o.Text)
			}
		}
		return strings.Join(correct, "; ")
	case quiz.TypeDragDrop:
		parts := make([]string, 0, len(q.Pairs))
		for _, p := range q.Pairs {
			parts = append(parts, fmt.Sprintf("%s → %s", p.Item, p.Target))
		}
		return strings.Join(parts, "; ")
	default:
		return q.CorrectAnswer
	}
}

func renderAnswer(q reviewQuestion, text, optionID, matchesJSON string) string {
	switch q.Type {
	case quiz.TypeMCQ:
		for _, o := range q.Options {
			if o.ID == optionID {
				return o.Text
			}
		}
		return ""
	case quiz.TypeDragDrop:
		var matches map[string]string
		if matchesJSON != "" {
			_ = json.Unmarshal([]byte(matchesJSON), &matches)
		}
		parts := make([]string, 0, len(q.Pairs))
		for _, p := range q.Pairs {
			if item, ok := matches[p.Target]; ok {
				parts = append(parts, fmt.Sprintf("%s → %s", item, p.Target))
			}
		}
		if len(parts) == 0 {
			return "no matches placed"
		}
		return strings.Join(parts, "; ")
	default:
		return text
	}
}

// sortMistakes orders grouped wrong answers by frequency, then
// alphabetically so ties are stable.
func sortMistakes(ms []Mistake) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].Count != ms[j].Count {
			return ms[i].Count > ms[j].Count
		}
		return ms[i].Answer < ms[j].Answer
	})
}
