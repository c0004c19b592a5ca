// Package audit appends attempt access events to an append-only log.
// Nothing in the quiz services reads this table back.
package audit

import (
	"context"
	"database/sql"
	"time"
)

const (
	EventAttemptStarted   = "attempt_started"
	EventAttemptSubmitted = "attempt_submitted"
	EventAttemptExpired   = "attempt_expired"
)

type Event struct {
	Type      string
	QuizID    string
	AttemptID string
	UserID    string
	IP        string
}

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO access_log (event, quiz_id, attempt_id, user_id, ip, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		e.Type, e.QuizID, e.AttemptID, e.UserID, e.IP, time.Now().Unix())
	return err
}
