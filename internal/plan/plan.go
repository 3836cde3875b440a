// Package plan parses the semi-formal textual plans produced by the
// planner model into executable steps.
package plan

// FieldFlashcardStates is the one reserved argument key: its value must
// decode to a list of flashcard records and is never kept as raw text.
const FieldFlashcardStates = "flashcard_states"

// Pair is a single key/value tool argument. Values are decoded JSON where
// possible, raw text otherwise.
type Pair struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Step is one planned action: a tool name plus ordered arguments, tagged
// with the description of the plan section it came from. Immutable once
// parsed.
type Step struct {
	Description string `json:"description"`
	ID          string `json:"step_id"` // e.g. "E1"
	Tool        string `json:"tool"`
	Input       []Pair `json:"tool_input"`
}
