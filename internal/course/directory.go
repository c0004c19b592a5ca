// Package course owns the course roster tables and answers the two questions
// the quiz services keep asking: does this teacher own the course, and is
// this student enrolled in it.
package course

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("course not found")

type Course struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedBy string `json:"created_by"`
	CreatedAt int64  `json:"created_at"`
}

type Directory struct {
	db *sql.DB
}

func NewDirectory(db *sql.DB) *Directory { return &Directory{db: db} }

func (d *Directory) Create(ctx context.Context, name, teacherID string) (Course, error) {
	c := Course{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedBy: teacherID,
		CreatedAt: time.Now().Unix(),
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return Course{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO courses (id, name, created_by, created_at) VALUES ($1,$2,$3,$4)`,
		c.ID, c.Name, c.CreatedBy, c.CreatedAt); err != nil {
		return Course{}, err
	}
	// Creator becomes owner teacher.
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO course_teachers (course_id, teacher_id, role) VALUES ($1,$2,'owner')`,
		c.ID, teacherID); err != nil {
		return Course{}, err
	}
	return c, tx.Commit()
}

func (d *Directory) Get(ctx context.Context, id string) (Course, error) {
	var c Course
	err := d.db.QueryRowContext(ctx,
		`SELECT id, name, created_by, created_at FROM courses WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.CreatedBy, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Course{}, ErrNotFound
	}
	return c, err
}

// Owns reports whether teacherID teaches courseID.
func (d *Directory) Owns(ctx context.Context, courseID, teacherID string) (bool, error) {
	var one int
	err := d.db.QueryRowContext(ctx,
		`SELECT 1 FROM course_teachers WHERE course_id=$1 AND teacher_id=$2`,
		courseID, teacherID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// IsEnrolled reports whether studentID has an active enrollment in courseID.
func (d *Directory) IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error) {
	var one int
	err := d.db.QueryRowContext(ctx,
		`SELECT 1 FROM course_students WHERE course_id=$1 AND student_id=$2 AND status='active'`,
		courseID, studentID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Enroll adds (or re-activates) a student on a course roster.
func (d *Directory) Enroll(ctx context.Context, courseID, studentID string) error {
	if _, err := d.Get(ctx, courseID); err != nil {
		return err
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO course_students (course_id, student_id, status) VALUES ($1,$2,'active')
		 ON CONFLICT (course_id, student_id) DO UPDATE SET status='active'`,
		courseID, studentID)
	return err
}

// ListForTeacher returns the courses a teacher teaches, newest first.
func (d *Directory) ListForTeacher(ctx context.Context, teacherID string) ([]Course, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT c.id, c.name, c.created_by, c.created_at
		   FROM courses c
		   JOIN course_teachers t ON t.course_id = c.id
		  WHERE t.teacher_id = $1
		  ORDER BY c.created_at DESC`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCourses(rows)
}

// ListForStudent returns the courses a student is actively enrolled in.
func (d *Directory) ListForStudent(ctx context.Context, studentID string) ([]Course, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT c.id, c.name, c.created_by, c.created_at
		   FROM courses c
		   JOIN course_students s ON s.course_id = c.id
		  WHERE s.student_id = $1 AND s.status = 'active'
		  ORDER BY c.created_at DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCourses(rows)
}

func scanCourses(rows *sql.Rows) ([]Course, error) {
	var out []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
