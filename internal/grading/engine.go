package grading

import (
	"context"
	"errors"
)

// Q is the minimal view of a question the grader needs.
type Q struct {
	Type          string
	Marks         float64
	CorrectAnswer string
	CaseSensitive bool
	// CorrectOptionIDs holds every option ID flagged correct (mcq).
	CorrectOptionIDs map[string]struct{}
	// Pairs is the stored target->item correspondence (drag_drop).
	Pairs map[string]string
}

// Response is the test-taker's persisted answer for one question.
type Response struct {
	SelectedOptionID string
	Text             string
	Matches          map[string]string // target -> item
}

// Result is the outcome of grading a single answer. Marking is
// all-or-nothing: a question earns its full mark value or zero.
type Result struct {
	Marks   float64
	Correct bool
}

// Strategy grades a single question type.
type Strategy interface {
	Grade(ctx context.Context, q Q, resp Response) (Result, error)
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(ctx context.Context, q Q, resp Response) (Result, error)
}

var errUnknownType = errors.New("no grading strategy for question type")

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Grade(ctx context.Context, q Q, resp Response) (Result, error) {
	s, ok := g.strategies[q.Type]
	if !ok {
		return Result{}, errUnknownType
	}
	return s.Grade(ctx, q, resp)
}

// NewDefaultGrader installs the built-in strategies.
func NewDefaultGrader() Grader {
	return &defaultGrader{
		strategies: map[string]Strategy{
			"mcq":          mcqStrategy{},
			"short_answer": shortAnswerStrategy{},
			"drag_drop":    dragDropStrategy{},
		},
	}
}

// --- Strategies ---

type mcqStrategy struct{}

func (mcqStrategy) Grade(_ context.Context, q Q, resp Response) (Result, error) {
	if resp.SelectedOptionID == "" {
		return Result{}, nil
	}
	if _, ok := q.CorrectOptionIDs[resp.SelectedOptionID]; ok {
		return Result{Marks: q.Marks, Correct: true}, nil
	}
	return Result{}, nil
}

type shortAnswerStrategy struct{}

func (shortAnswerStrategy) Grade(_ context.Context, q Q, resp Response) (Result, error) {
	if equalText(resp.Text, q.CorrectAnswer, q.CaseSensitive) {
		return Result{Marks: q.Marks, Correct: true}, nil
	}
	return Result{}, nil
}

type dragDropStrategy struct{}

func (dragDropStrategy) Grade(_ context.Context, q Q, resp Response) (Result, error) {
	total := len(q.Pairs)
	matched := 0
	for target, item := range q.Pairs {
		if resp.Matches[target] == item {
			matched++
		}
	}
	// A question with zero stored pairs can never be satisfied.
	if total > 0 && matched == total {
		return Result{Marks: q.Marks, Correct: true}, nil
	}
	return Result{}, nil
}
