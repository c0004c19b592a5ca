package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/studymesh/studymesh-lms/internal/quiz"
)

const (
	ExportStudents  = "students"
	ExportQuestions = "questions"
)

// Table is a flat projection ready for spreadsheet serialization. The HTTP
// boundary decides the file format; this layer only shapes rows and labels.
type Table struct {
	Filename string     `json:"filename"`
	Header   []string   `json:"header"`
	Rows     [][]string `json:"rows"`
}

// Export produces the student-performance or question-analysis table for a
// quiz. Only the owning teacher (or staff) may export.
func (s *Service) Export(ctx context.Context, quizID, typ, callerID string, admin bool) (Table, error) {
	var title, teacherID string
	err := s.db.QueryRowContext(ctx,
		`SELECT title, teacher_id FROM quizzes WHERE id=$1`, quizID).Scan(&title, &teacherID)
	if errors.Is(err, sql.ErrNoRows) {
		return Table{}, quiz.ErrNotFound
	}
	if err != nil {
		return Table{}, err
	}
	if !admin && teacherID != callerID {
		return Table{}, quiz.ErrForbidden
	}

	switch typ {
	case ExportStudents:
		return s.exportStudents(ctx, quizID)
	case ExportQuestions:
		return s.exportQuestions(ctx, quizID)
	default:
		return Table{}, &quiz.StateError{Msg: "unknown export type: " + typ}
	}
}

func (s *Service) exportStudents(ctx context.Context, quizID string) (Table, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.student_id, COALESCE(u.full_name, ''), a.attempt_number,
		        a.total_marks_obtained, a.percentage, a.is_passed,
		        a.time_spent_seconds, a.end_time
		   FROM attempts a
		   LEFT JOIN users u ON u.id = a.student_id
		  WHERE a.quiz_id=$1 AND a.status=$2
		  ORDER BY a.student_id, a.attempt_number`, quizID, quiz.AttemptCompleted)
	if err != nil {
		return Table{}, err
	}
	defer rows.Close()

	t := Table{
		Filename: "quiz-student-performance.csv",
		Header: []string{"Student ID", "Student Name", "Attempt", "Marks Obtained",
			"Percentage", "Passed", "Time Spent (s)", "Submitted At"},
	}
	for rows.Next() {
		var (
			studentID, name string
			number, spent   int
			marks, pct      sql.NullFloat64
			passed, endTime sql.NullInt64
		)
		if err := rows.Scan(&studentID, &name, &number, &marks, &pct, &passed, &spent, &endTime); err != nil {
			return Table{}, err
		}
		submitted := ""
		if endTime.Valid {
			submitted = time.Unix(endTime.Int64, 0).UTC().Format(time.RFC3339)
		}
		t.Rows = append(t.Rows, []string{
			studentID,
			name,
			strconv.Itoa(number),
			fmt.Sprintf("%.2f", marks.Float64),
			fmt.Sprintf("%.2f", pct.Float64),
			yesNo(passed.Int64 != 0),
			strconv.Itoa(spent),
			submitted,
		})
	}
	return t, rows.Err()
}

func (s *Service) exportQuestions(ctx context.Context, quizID string) (Table, error) {
	stats, err := s.questionStats(ctx, quizID)
	if err != nil {
		return Table{}, err
	}

	t := Table{
		Filename: "quiz-question-analysis.csv",
		Header: []string{"Question", "Type", "Responses", "Correct",
			"Success Rate (%)", "Avg Time (s)", "Top Mistakes"},
	}
	for _, st := range stats {
		mistakes := ""
		for i, m := range st.CommonMistakes {
			if i > 0 {
				mistakes += "; "
			}
			mistakes += fmt.Sprintf("%s (%d)", m.Answer, m.Count)
		}
		t.Rows = append(t.Rows, []string{
			st.Prompt,
			st.Type,
			strconv.Itoa(st.Responses),
			strconv.Itoa(st.CorrectCount),
			fmt.Sprintf("%.1f", st.SuccessRate),
			fmt.Sprintf("%.1f", st.AvgTimeSeconds),
			mistakes,
		})
	}
	return t, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
