package quiz

import (
	"context"
	"encoding/json"

	"github.com/studymesh/studymesh-lms/internal/grading"
)

// score is the scoring engine. It runs in a single transaction: load every
// answer joined to its question, grade each by type, write per-answer marks,
// then the attempt aggregates. Any failure rolls the whole run back and
// leaves the attempt unscored.
//
// Unanswered questions contribute zero marks but still count toward the
// quiz total, so they drag the percentage down without needing a row.
func (s *AttemptService) score(ctx context.Context, attemptID string, qz Quiz) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	keys, err := loadAnswerKeys(ctx, tx, qz.ID)
	if err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT a.id, a.question_id, a.answer_text, a.selected_option_id, a.drag_drop_matches
		   FROM answers a
		   JOIN questions q ON q.id = a.question_id
		  WHERE a.attempt_id=$1
		  ORDER BY q.order_index`, attemptID)
	if err != nil {
		return err
	}

	type scoredRow struct {
		answerID string
		marks    float64
		correct  bool
	}
	var scored []scoredRow
	total := 0.0
	for rows.Next() {
		var (
			answerID, questionID, text, optionID, matchesJSON string
		)
		if err := rows.Scan(&answerID, &questionID, &text, &optionID, &matchesJSON); err != nil {
			rows.Close()
			return err
		}
		key, ok := keys[questionID]
		if !ok {
			continue
		}

		resp := buildResponse(text, optionID, matchesJSON)
		res, err := s.grader.Grade(ctx, key, resp)
		if err != nil {
			rows.Close()
			return err
		}
		total += res.Marks
		scored = append(scored, scoredRow{answerID: answerID, marks: res.Marks, correct: res.Correct})
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, sr := range scored {
		if _, err := tx.ExecContext(ctx,
			`UPDATE answers SET marks_obtained=$1, is_correct=$2 WHERE id=$3`,
			sr.marks, b2i(sr.correct), sr.answerID); err != nil {
			return err
		}
	}

	// Authoring guarantees total_marks > 0, but a zero-mark quiz must not
	// divide by zero.
	denom := qz.TotalMarks
	if denom < 1 {
		denom = 1
	}
	percentage := total / denom * 100
	passed := total >= qz.PassingMarks

	if _, err := tx.ExecContext(ctx,
		`UPDATE attempts SET total_marks_obtained=$1, percentage=$2, is_passed=$3 WHERE id=$4`,
		total, percentage, b2i(passed), attemptID); err != nil {
		return err
	}
	return tx.Commit()
}

// loadAnswerKeys builds the grading view of every question in the quiz.
func loadAnswerKeys(ctx context.Context, q querier, quizID string) (map[string]grading.Q, error) {
	keys := map[string]grading.Q{}

	rows, err := q.QueryContext(ctx,
		`SELECT id, type, marks, correct_answer, case_sensitive FROM questions WHERE quiz_id=$1`, quizID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			id, typ, correct string
			marks            float64
			caseCS           int
		)
		if err := rows.Scan(&id, &typ, &marks, &correct, &caseCS); err != nil {
			rows.Close()
			return nil, err
		}
		keys[id] = grading.Q{
			Type:          typ,
			Marks:         marks,
			CorrectAnswer: correct,
			CaseSensitive: caseCS != 0,
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	orows, err := q.QueryContext(ctx,
		`SELECT o.question_id, o.id
		   FROM question_options o
		   JOIN questions qn ON qn.id = o.question_id
		  WHERE qn.quiz_id=$1 AND o.is_correct=1`, quizID)
	if err != nil {
		return nil, err
	}
	for orows.Next() {
		var questionID, optionID string
		if err := orows.Scan(&questionID, &optionID); err != nil {
			orows.Close()
			return nil, err
		}
		k := keys[questionID]
		if k.CorrectOptionIDs == nil {
			k.CorrectOptionIDs = map[string]struct{}{}
		}
		k.CorrectOptionIDs[optionID] = struct{}{}
		keys[questionID] = k
	}
	orows.Close()
	if err := orows.Err(); err != nil {
		return nil, err
	}

	prows, err := q.QueryContext(ctx,
		`SELECT d.question_id, d.target_text, d.item_text
		   FROM drag_drop_items d
		   JOIN questions qn ON qn.id = d.question_id
		  WHERE qn.quiz_id=$1`, quizID)
	if err != nil {
		return nil, err
	}
	for prows.Next() {
		var questionID, target, item string
		if err := prows.Scan(&questionID, &target, &item); err != nil {
			prows.Close()
			return nil, err
		}
		k := keys[questionID]
		if k.Pairs == nil {
			k.Pairs = map[string]string{}
		}
		k.Pairs[target] = item
		keys[questionID] = k
	}
	prows.Close()
	return keys, prows.Err()
}

func buildResponse(text, optionID, matchesJSON string) grading.Response {
	resp := grading.Response{Text: text, SelectedOptionID: optionID}
	if matchesJSON != "" {
		_ = json.Unmarshal([]byte(matchesJSON), &resp.Matches)
	}
	return resp
}
