// Package state holds the typed session state for a tutoring conversation
// and the reconciliation rules that merge partial updates into it.
package state

import (
	"encoding/json"
	"log"
	"maps"
	"slices"

	"github.com/hamza/chilltutor/internal/plan"
)

// Status of a flashcard within the session queue.
type Status string

const (
	StatusQueued Status = "queued"
	StatusActive Status = "active"
)

// Verdict classifies an evaluated answer.
type Verdict string

const (
	VerdictCorrect   Verdict = "correct"
	VerdictPartial   Verdict = "partial"
	VerdictIncorrect Verdict = "incorrect"
)

// Quiz states the planner moves the session through.
const (
	QuizWaitingTopic       = "waiting_topic"
	QuizAwaitingAnswer     = "awaiting_answer"
	QuizAwaitingEvaluation = "awaiting_evaluation"
)

// Evaluation is the verdict shape produced by the evaluator chain. The
// prompt holds the score boundaries (correct >= 0.8, partial >= 0.3,
// incorrect below); the core only stores what comes back.
type Evaluation struct {
	Result   Verdict `json:"result"`
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// Flashcard tracks one question through the session queue. The queue starts
// at the active card: when non-empty, index 0 is the active one and the
// rest are queued.
type Flashcard struct {
	ID              int64       `json:"id"`
	Status          Status      `json:"status"`
	Question        string      `json:"question"`
	MarkingCriteria string      `json:"marking_criteria"`
	Attempts        int         `json:"attempts"`
	UserAnswers     []string    `json:"user_answers"`
	Evaluation      *Evaluation `json:"evaluation"`
}

// Score tallies evaluated answers. Partial verdicts count an attempt but
// move neither counter, so correct+incorrect never exceeds total_attempts.
type Score struct {
	Correct       int `json:"correct"`
	Incorrect     int `json:"incorrect"`
	TotalAttempts int `json:"total_attempts"`
}

// Topic is one quizzable subject area.
type Topic struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// User carries the learner profile the responder personalizes against.
type User struct {
	Name        string         `json:"name"`
	Emotion     string         `json:"emotion,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
}

// Message is one transcript entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// QuizState tracks where the quiz flow is. The planner emits it either as
// an object ({"state": ..., "progress": ...}) or as a bare string; both
// JSON forms decode into the struct.
type QuizState struct {
	State    string `json:"state"`
	Progress any    `json:"progress,omitempty"`
}

func (q *QuizState) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		*q = QuizState{State: bare}
		return nil
	}
	type quizState QuizState
	var obj quizState
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*q = QuizState(obj)
	return nil
}

// PlanRecord is a plan as stored on the session: the parsed steps plus the
// planner's own description of them.
type PlanRecord struct {
	Description string      `json:"description"`
	Steps       []plan.Step `json:"steps"`
}

// Session is the full conversational state for one chat. It is threaded by
// value through the pipeline: each stage receives a snapshot and returns a
// new one, never aliasing the caller's. Callers serialize turns per chat.
type Session struct {
	Topics          []Topic     `json:"topics"`
	CurrentTopicID  *int64      `json:"current_topic_id"`
	FlashcardStates []Flashcard `json:"flashcard_states"`
	Score           Score       `json:"score"`
	QuizState       QuizState   `json:"quiz_state"`
	User            User        `json:"user"`
	HardFlashcards  []int64     `json:"hard_flashcards"`
	Messages        []Message   `json:"messages"`
	CurrentPlan     PlanRecord  `json:"current_plan"`
	PreviousPlan    PlanRecord  `json:"previous_plan"`

	// Extra holds passthrough fields the core does not model. They ride
	// along in the document view and survive reconciliation untouched.
	Extra map[string]any `json:"-"`
}

// New returns the initial session for a fresh conversation.
func New(topics []Topic) Session {
	return Session{
		Topics:    slices.Clone(topics),
		QuizState: QuizState{State: QuizWaitingTopic},
	}
}

// Clone deep-copies the session so a stage can build its result without
// touching the caller's snapshot.
func (s Session) Clone() Session {
	out := s
	out.Topics = slices.Clone(s.Topics)
	out.FlashcardStates = cloneFlashcards(s.FlashcardStates)
	out.HardFlashcards = slices.Clone(s.HardFlashcards)
	out.Messages = slices.Clone(s.Messages)
	out.CurrentPlan.Steps = slices.Clone(s.CurrentPlan.Steps)
	out.PreviousPlan.Steps = slices.Clone(s.PreviousPlan.Steps)
	out.User.Preferences = cloneMap(s.User.Preferences)
	if s.Extra != nil {
		out.Extra = cloneMap(s.Extra)
	}
	if s.CurrentTopicID != nil {
		id := *s.CurrentTopicID
		out.CurrentTopicID = &id
	}
	if qp, ok := s.QuizState.Progress.(map[string]any); ok {
		out.QuizState.Progress = cloneMap(qp)
	}
	return out
}

func cloneFlashcards(in []Flashcard) []Flashcard {
	out := slices.Clone(in)
	for i := range out {
		out[i].UserAnswers = slices.Clone(out[i].UserAnswers)
		if out[i].Evaluation != nil {
			ev := *out[i].Evaluation
			out[i].Evaluation = &ev
		}
	}
	return out
}

// Document renders the session as a generic field-to-value map, the form
// the reconciler operates on. Typed fields round-trip through JSON; Extra
// fields are overlaid as-is.
func (s Session) Document() map[string]any {
	doc := make(map[string]any)
	data, err := json.Marshal(s)
	if err != nil {
		log.Printf("state: marshal session: %v", err)
		return doc
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Printf("state: decode session document: %v", err)
		return doc
	}
	maps.Copy(doc, s.Extra)
	return doc
}

// Set decodes a generic document value into the matching typed field. The
// field set is closed; anything unknown lands verbatim in Extra.
func (s *Session) Set(field string, value any) error {
	switch field {
	case "topics":
		return assign(&s.Topics, value)
	case "current_topic_id":
		return assign(&s.CurrentTopicID, value)
	case plan.FieldFlashcardStates:
		return assign(&s.FlashcardStates, value)
	case "score":
		return assign(&s.Score, value)
	case "quiz_state":
		return assign(&s.QuizState, value)
	case "user":
		return assign(&s.User, value)
	case "hard_flashcards":
		return assign(&s.HardFlashcards, value)
	case "messages":
		return assign(&s.Messages, value)
	case "current_plan":
		return assign(&s.CurrentPlan, value)
	case "previous_plan":
		return assign(&s.PreviousPlan, value)
	default:
		if s.Extra == nil {
			s.Extra = make(map[string]any)
		}
		s.Extra[field] = clone(value)
		return nil
	}
}

// ActiveIndex returns the index of the active flashcard, or -1.
func (s Session) ActiveIndex() int {
	for i, card := range s.FlashcardStates {
		if card.Status == StatusActive {
			return i
		}
	}
	return -1
}

// assign round-trips a generic document value into a typed destination.
func assign[T any](dst *T, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	var decoded T
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*dst = decoded
	return nil
}
