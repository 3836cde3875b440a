package agent

import "github.com/hamza/chilltutor/internal/state"

// Branch selects the stage that handles the turn after plan execution.
type Branch string

const (
	BranchEvaluation Branch = "evaluator"
	BranchResponse   Branch = "responder"
)

// RouteQuiz inspects the quiz state and picks the next branch. The planner
// may leave quiz_state as a typed value, a generic object, or a bare
// string; all three forms route. No side effects.
func RouteQuiz(quizState any) Branch {
	switch qs := quizState.(type) {
	case state.QuizState:
		if qs.State == state.QuizAwaitingEvaluation {
			return BranchEvaluation
		}
	case map[string]any:
		if s, ok := qs["state"].(string); ok && s == state.QuizAwaitingEvaluation {
			return BranchEvaluation
		}
	case string:
		if qs == state.QuizAwaitingEvaluation {
			return BranchEvaluation
		}
	}
	return BranchResponse
}
