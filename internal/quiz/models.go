package quiz

// Quiz lifecycle states.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// Attempt states.
const (
	AttemptInProgress = "in_progress"
	AttemptCompleted  = "completed"
	AttemptExpired    = "expired"
)

// Question types. Closed set: anything else is rejected at authoring time.
const (
	TypeMCQ         = "mcq"
	TypeShortAnswer = "short_answer"
	TypeDragDrop    = "drag_drop"
)

type Quiz struct {
	ID               string  `json:"id"`
	CourseID         string  `json:"course_id"`
	TeacherID        string  `json:"teacher_id"`
	Title            string  `json:"title"`
	Description      string  `json:"description,omitempty"`
	Instructions     string  `json:"instructions,omitempty"`
	TotalMarks       float64 `json:"total_marks"`
	QuestionCount    int     `json:"question_count"`
	StartDatetime    *int64  `json:"start_datetime,omitempty"`
	EndDatetime      *int64  `json:"end_datetime,omitempty"`
	DurationMinutes  int     `json:"duration_minutes"`
	MaxAttempts      int     `json:"max_attempts"`
	PassingMarks     float64 `json:"passing_marks"`
	ShuffleQuestions bool    `json:"shuffle_questions"`
	ShuffleAnswers   bool    `json:"shuffle_answers"`
	ShowResults      bool    `json:"show_results"`
	ReviewEnabled    bool    `json:"review_enabled"`
	AutoSubmit       bool    `json:"auto_submit"`
	HasPassword      bool    `json:"has_password"`
	Status           string  `json:"status"`
	CreatedAt        int64   `json:"created_at"`
	UpdatedAt        int64   `json:"updated_at"`

	Questions []Question `json:"questions,omitempty"`
}

type Question struct {
	ID            string  `json:"id"`
	QuizID        string  `json:"quiz_id"`
	Type          string  `json:"type"`
	Prompt        string  `json:"prompt"`
	Marks         float64 `json:"marks"`
	OrderIndex    int     `json:"order_index"`
	CorrectAnswer string  `json:"correct_answer,omitempty"`
	CaseSensitive bool    `json:"case_sensitive,omitempty"`
	Explanation   string  `json:"explanation,omitempty"`

	Options []Option       `json:"options,omitempty"`
	Pairs   []DragDropItem `json:"pairs,omitempty"`
}

type Option struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id,omitempty"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct,omitempty"`
	OrderIndex int    `json:"order_index"`
}

type DragDropItem struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id,omitempty"`
	ItemText   string `json:"item_text"`
	TargetText string `json:"target_text"`
	MatchID    int    `json:"match_id"`
	OrderIndex int    `json:"order_index"`
}

type Attempt struct {
	ID            string `json:"id"`
	QuizID        string `json:"quiz_id"`
	StudentID     string `json:"student_id"`
	AttemptNumber int    `json:"attempt_number"`
	Status        string `json:"status"`
	StartTime     int64  `json:"start_time"`
	EndTime       *int64 `json:"end_time,omitempty"`

	// Set by scoring; nil until the attempt has been graded.
	TotalMarksObtained *float64 `json:"total_marks_obtained,omitempty"`
	Percentage         *float64 `json:"percentage,omitempty"`
	IsPassed           *bool    `json:"is_passed,omitempty"`

	TimeSpentSeconds int `json:"time_spent_seconds"`
}

type Answer struct {
	ID               string `json:"id"`
	AttemptID        string `json:"attempt_id"`
	QuestionID       string `json:"question_id"`
	AnswerText       string `json:"answer_text,omitempty"`
	SelectedOptionID string `json:"selected_option_id,omitempty"`
	// Serialized target->item mapping for drag_drop questions.
	DragDropMatches  string   `json:"drag_drop_matches,omitempty"`
	TimeSpentSeconds int      `json:"time_spent_seconds"`
	MarksObtained    *float64 `json:"marks_obtained,omitempty"`
	IsCorrect        *bool    `json:"is_correct,omitempty"`
	AnsweredAt       int64    `json:"answered_at"`
}

// Spec is the authoring input for create/update. Aggregate fields
// (total_marks, question_count) are always recomputed from Questions.
type Spec struct {
	CourseID         string         `json:"course_id"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	Instructions     string         `json:"instructions"`
	StartDatetime    *int64         `json:"start_datetime"`
	EndDatetime      *int64         `json:"end_datetime"`
	DurationMinutes  int            `json:"duration_minutes"`
	MaxAttempts      int            `json:"max_attempts"`
	PassingMarks     float64        `json:"passing_marks"`
	ShuffleQuestions bool           `json:"shuffle_questions"`
	ShuffleAnswers   bool           `json:"shuffle_answers"`
	ShowResults      *bool          `json:"show_results"`
	ReviewEnabled    *bool          `json:"review_enabled"`
	AutoSubmit       bool           `json:"auto_submit"`
	Password         string         `json:"password"`
	Questions        []QuestionSpec `json:"questions"`
}

type QuestionSpec struct {
	Type          string     `json:"type"`
	Prompt        string     `json:"prompt"`
	Marks         float64    `json:"marks"`
	CorrectAnswer string     `json:"correct_answer"`
	CaseSensitive bool       `json:"case_sensitive"`
	Explanation   string     `json:"explanation"`
	Options       []OptSpec  `json:"options"`
	Pairs         []PairSpec `json:"pairs"`
}

type OptSpec struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type PairSpec struct {
	ItemText   string `json:"item_text"`
	TargetText string `json:"target_text"`
}

// Presentation status for a student's quiz list. Computed from wall-clock
// time and attempt history, never stored.
const (
	PresentUpcoming  = "upcoming"
	PresentActive    = "active"
	PresentExpired   = "expired"
	PresentCompleted = "completed"
)

// StudentQuizView is one row of the student's quiz list.
type StudentQuizView struct {
	Quiz           Quiz     `json:"quiz"`
	CourseName     string   `json:"course_name"`
	AttemptsUsed   int      `json:"attempts_used"`
	BestPercentage *float64 `json:"best_percentage,omitempty"`
	Presentation   string   `json:"presentation_status"`
}

// AttemptQuestion is a question as served to a test-taker: answer keys and
// per-option correctness are stripped, drag-drop items and targets are
// returned as two independent lists.
type AttemptQuestion struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Prompt     string   `json:"prompt"`
	Marks      float64  `json:"marks"`
	Options    []Option `json:"options,omitempty"`
	Items      []string `json:"items,omitempty"`
	Targets    []string `json:"targets,omitempty"`
	OrderIndex int      `json:"order_index"`
}

// AnswerSubmission is one per-question answer from the test-taker.
type AnswerSubmission struct {
	QuestionID       string            `json:"question_id"`
	AnswerText       string            `json:"answer_text"`
	SelectedOptionID string            `json:"selected_option_id"`
	Matches          map[string]string `json:"matches"` // target -> item
	TimeSpentSeconds int               `json:"time_spent_seconds"`
}
