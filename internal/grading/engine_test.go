package grading

import (
	"context"
	"testing"
)

func TestMCQGrading(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{
		Type:             "mcq",
		Marks:            5,
		CorrectOptionIDs: map[string]struct{}{"opt-b": {}},
	}

	res, err := g.Grade(context.Background(), q, Response{SelectedOptionID: "opt-b"})
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if !res.Correct || res.Marks != 5 {
		t.Fatalf("correct option: got marks=%v correct=%v", res.Marks, res.Correct)
	}

	res, err = g.Grade(context.Background(), q, Response{SelectedOptionID: "opt-a"})
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if res.Correct || res.Marks != 0 {
		t.Fatalf("wrong option: got marks=%v correct=%v", res.Marks, res.Correct)
	}

	res, err = g.Grade(context.Background(), q, Response{})
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if res.Correct || res.Marks != 0 {
		t.Fatalf("no selection: got marks=%v correct=%v", res.Marks, res.Correct)
	}
}

func TestShortAnswerGrading(t *testing.T) {
	g := NewDefaultGrader()

	cases := []struct {
		name          string
		key           string
		caseSensitive bool
		answer        string
		wantCorrect   bool
	}{
		{"exact match", "photosynthesis", false, "photosynthesis", true},
		{"case folded", "Photosynthesis", false, "photosynthesis", true},
		{"trimmed", "photosynthesis", false, "  photosynthesis  ", true},
		{"case sensitive rejects", "Photosynthesis", true, "photosynthesis", false},
		{"case sensitive accepts", "Photosynthesis", true, "Photosynthesis", true},
		{"wrong answer", "photosynthesis", false, "respiration", false},
		{"empty answer", "photosynthesis", false, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := Q{Type: "short_answer", Marks: 2, CorrectAnswer: tc.key, CaseSensitive: tc.caseSensitive}
			res, err := g.Grade(context.Background(), q, Response{Text: tc.answer})
			if err != nil {
				t.Fatalf("grade: %v", err)
			}
			if res.Correct != tc.wantCorrect {
				t.Fatalf("correct = %v, want %v", res.Correct, tc.wantCorrect)
			}
			wantMarks := 0.0
			if tc.wantCorrect {
				wantMarks = 2
			}
			if res.Marks != wantMarks {
				t.Fatalf("marks = %v, want %v", res.Marks, wantMarks)
			}
		})
	}
}

func TestDragDropAllOrNothing(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{
		Type:  "drag_drop",
		Marks: 6,
		Pairs: map[string]string{
			"France":  "Paris",
			"Italy":   "Rome",
			"Germany": "Berlin",
		},
	}

	// All three pairs matched: full marks.
	res, err := g.Grade(context.Background(), q, Response{Matches: map[string]string{
		"France": "Paris", "Italy": "Rome", "Germany": "Berlin",
	}})
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if !res.Correct || res.Marks != 6 {
		t.Fatalf("full match: got marks=%v correct=%v", res.Marks, res.Correct)
	}

	// Two of three matched: zero, no partial credit.
	res, err = g.Grade(context.Background(), q, Response{Matches: map[string]string{
		"France": "Paris", "Italy": "Rome", "Germany": "Munich",
	}})
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if res.Correct || res.Marks != 0 {
		t.Fatalf("partial match: got marks=%v correct=%v", res.Marks, res.Correct)
	}
}

func TestDragDropZeroPairsNeverSatisfied(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{Type: "drag_drop", Marks: 4, Pairs: map[string]string{}}
	res, err := g.Grade(context.Background(), q, Response{Matches: map[string]string{}})
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if res.Correct || res.Marks != 0 {
		t.Fatalf("zero pairs: got marks=%v correct=%v", res.Marks, res.Correct)
	}
}

func TestUnknownTypeErrors(t *testing.T) {
	g := NewDefaultGrader()
	if _, err := g.Grade(context.Background(), Q{Type: "essay"}, Response{}); err == nil {
		t.Fatal("expected error for unknown question type")
	}
}
