package review

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/studymesh/studymesh-lms/internal/quiz"
)

// Five fixed percentage bands for the score distribution.
var bandLabels = [5]string{"0-20", "21-40", "41-60", "61-80", "81-100"}

type Band struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type Mistake struct {
	Answer string `json:"answer"`
	Count  int    `json:"count"`
}

type QuestionStats struct {
	QuestionID     string    `json:"question_id"`
	Type           string    `json:"type"`
	Prompt         string    `json:"prompt"`
	Responses      int       `json:"responses"`
	CorrectCount   int       `json:"correct_count"`
	SuccessRate    float64   `json:"success_rate"`
	AvgTimeSeconds float64   `json:"avg_time_seconds"`
	CommonMistakes []Mistake `json:"common_mistakes,omitempty"`
}

type QuizAnalytics struct {
	QuizID            string          `json:"quiz_id"`
	QuizTitle         string          `json:"quiz_title"`
	CompletedAttempts int             `json:"completed_attempts"`
	PassedCount       int             `json:"passed_count"`
	PassRate          float64         `json:"pass_rate"`
	AveragePercentage float64         `json:"average_percentage"`
	ScoreBands        []Band          `json:"score_bands"`
	Questions         []QuestionStats `json:"questions"`
}

// Analytics aggregates across every student's completed attempts for a quiz.
// Only the owning teacher (or staff) may read it.
func (s *Service) Analytics(ctx context.Context, quizID, callerID string, admin bool) (QuizAnalytics, error) {
	var title, teacherID string
	err := s.db.QueryRowContext(ctx,
		`SELECT title, teacher_id FROM quizzes WHERE id=$1`, quizID).Scan(&title, &teacherID)
	if errors.Is(err, sql.ErrNoRows) {
		return QuizAnalytics{}, quiz.ErrNotFound
	}
	if err != nil {
		return QuizAnalytics{}, err
	}
	if !admin && teacherID != callerID {
		return QuizAnalytics{}, quiz.ErrForbidden
	}

	out := QuizAnalytics{QuizID: quizID, QuizTitle: title}
	for _, l := range bandLabels {
		out.ScoreBands = append(out.ScoreBands, Band{Label: l})
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT percentage, is_passed FROM attempts WHERE quiz_id=$1 AND status=$2`,
		quizID, quiz.AttemptCompleted)
	if err != nil {
		return QuizAnalytics{}, err
	}
	var pctSum float64
	for rows.Next() {
		var (
			pct    sql.NullFloat64
			passed sql.NullInt64
		)
		if err := rows.Scan(&pct, &passed); err != nil {
			rows.Close()
			return QuizAnalytics{}, err
		}
		out.CompletedAttempts++
		pctSum += pct.Float64
		if passed.Int64 != 0 {
			out.PassedCount++
		}
		out.ScoreBands[bandIndex(pct.Float64)].Count++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return QuizAnalytics{}, err
	}
	if out.CompletedAttempts > 0 {
		out.PassRate = float64(out.PassedCount) / float64(out.CompletedAttempts) * 100
		out.AveragePercentage = pctSum / float64(out.CompletedAttempts)
	}

	stats, err := s.questionStats(ctx, quizID)
	if err != nil {
		return QuizAnalytics{}, err
	}
	out.Questions = stats
	return out, nil
}

func bandIndex(pct float64) int {
	switch {
	case pct <= 20:
		return 0
	case pct <= 40:
		return 1
	case pct <= 60:
		return 2
	case pct <= 80:
		return 3
	default:
		return 4
	}
}

// questionStats computes per-question success rates, average answer time and
// the top wrong answers across all completed attempts of a quiz.
func (s *Service) questionStats(ctx context.Context, quizID string) ([]QuestionStats, error) {
	questions, err := s.quizQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT an.question_id, an.answer_text, an.selected_option_id,
		        an.time_spent_seconds, an.is_correct
		   FROM answers an
		   JOIN attempts at ON at.id = an.attempt_id
		  WHERE at.quiz_id=$1 AND at.status=$2`, quizID, quiz.AttemptCompleted)
	if err != nil {
		return nil, err
	}

	type acc struct {
		responses, correct, timeSum int
		wrong                       map[string]int
	}
	accs := map[string]*acc{}
	optionText := map[string]map[string]string{}
	for _, q := range questions {
		accs[q.ID] = &acc{wrong: map[string]int{}}
		if q.Type == quiz.TypeMCQ {
			m := map[string]string{}
			for _, o := range q.Options {
				m[o.ID] = o.Text
			}
			optionText[q.ID] = m
		}
	}
	qType := map[string]string{}
	for _, q := range questions {
		qType[q.ID] = q.Type
	}

	for rows.Next() {
		var (
			qid, text, optionID string
			timeSpent           int
			correct             sql.NullInt64
		)
		if err := rows.Scan(&qid, &text, &optionID, &timeSpent, &correct); err != nil {
			rows.Close()
			return nil, err
		}
		a, ok := accs[qid]
		if !ok {
			continue
		}
		a.responses++
		a.timeSum += timeSpent
		if correct.Int64 != 0 {
			a.correct++
			continue
		}
		// "Common mistakes" only make sense for answers a reader can group.
		switch qType[qid] {
		case quiz.TypeMCQ:
			if t, ok := optionText[qid][optionID]; ok {
				a.wrong[t]++
			}
		case quiz.TypeShortAnswer:
			if t := strings.ToLower(strings.TrimSpace(text)); t != "" {
				a.wrong[t]++
			}
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]QuestionStats, 0, len(questions))
	for _, q := range questions {
		a := accs[q.ID]
		st := QuestionStats{
			QuestionID:   q.ID,
			Type:         q.Type,
			Prompt:       q.Prompt,
			Responses:    a.responses,
			CorrectCount: a.correct,
		}
		if a.responses > 0 {
			st.SuccessRate = float64(a.correct) / float64(a.responses) * 100
			st.AvgTimeSeconds = float64(a.timeSum) / float64(a.responses)
		}
		for ans, n := range a.wrong {
			st.CommonMistakes = append(st.CommonMistakes, Mistake{Answer: ans, Count: n})
		}
		sortMistakes(st.CommonMistakes)
		if len(st.CommonMistakes) > 3 {
			st.CommonMistakes = st.CommonMistakes[:3]
		}
		out = append(out, st)
	}
	return out, nil
}
