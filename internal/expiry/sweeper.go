// Package expiry schedules the periodic sweep that finalizes overdue
// attempts server-side.
package expiry

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/studymesh/studymesh-lms/internal/quiz"
)

type Sweeper struct {
	attempts *quiz.AttemptService
	log      *logrus.Logger
	cron     *cron.Cron
}

func NewSweeper(attempts *quiz.AttemptService, log *logrus.Logger) *Sweeper {
	return &Sweeper{attempts: attempts, log: log, cron: cron.New()}
}

// Start registers the sweep under the given cron spec and starts the
// scheduler. Returns an error only for a malformed spec.
func (s *Sweeper) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, s.sweep)
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := s.attempts.ExpireOverdue(ctx); err != nil {
		s.log.WithError(err).Error("attempt expiry sweep failed")
	}
}
