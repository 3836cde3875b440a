package agent

import (
	"context"
	"testing"

	"github.com/hamza/chilltutor/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeSession(answers ...string) state.Session {
	return state.Session{
		FlashcardStates: []state.Flashcard{
			{
				ID:              1,
				Status:          state.StatusActive,
				Question:        "What do you know about: Binary representation?",
				MarkingCriteria: "base-2, powers of two, conversion",
				UserAnswers:     answers,
			},
			{ID: 2, Status: state.StatusQueued},
		},
	}
}

func TestEvaluator_NoActiveFlashcardIsHardFailure(t *testing.T) {
	e := NewEvaluator(&fakeModel{}, writePrompts(t), nil)

	sess := state.Session{FlashcardStates: []state.Flashcard{{ID: 1, Status: state.StatusQueued}}}
	_, err := e.Evaluate(context.Background(), "chat-1", sess)
	require.ErrorIs(t, err, ErrNoActiveFlashcard)
}

func TestEvaluator_NoAnswerIsHardFailure(t *testing.T) {
	model := &fakeModel{}
	e := NewEvaluator(model, writePrompts(t), nil)

	_, err := e.Evaluate(context.Background(), "chat-1", activeSession())
	require.ErrorIs(t, err, ErrNoUserAnswer)
	// The precondition fails before the model is ever invoked.
	assert.Zero(t, model.calls)
}

func TestEvaluator_StoresVerdictAndBumpsScore(t *testing.T) {
	model := &fakeModel{response: `{"result": "correct", "score": 0.9, "feedback": "Solid answer."}`}
	e := NewEvaluator(model, writePrompts(t), nil)

	sess := activeSession("binary is base 2, each position is a power of two")
	out, err := e.Evaluate(context.Background(), "chat-1", sess)
	require.NoError(t, err)

	require.NotNil(t, out.FlashcardStates[0].Evaluation)
	assert.Equal(t, state.VerdictCorrect, out.FlashcardStates[0].Evaluation.Result)
	assert.Equal(t, 0.9, out.FlashcardStates[0].Evaluation.Score)
	assert.Equal(t, state.Score{Correct: 1, Incorrect: 0, TotalAttempts: 1}, out.Score)

	// The caller's snapshot stays untouched.
	assert.Nil(t, sess.FlashcardStates[0].Evaluation)
	assert.Zero(t, sess.Score.TotalAttempts)
}

func TestEvaluator_PartialCountsAttemptOnly(t *testing.T) {
	model := &fakeModel{response: `{"result": "partial", "score": 0.5, "feedback": "Halfway there."}`}
	e := NewEvaluator(model, writePrompts(t), nil)

	out, err := e.Evaluate(context.Background(), "chat-1", activeSession("it uses ones and zeros"))
	require.NoError(t, err)
	assert.Equal(t, state.Score{Correct: 0, Incorrect: 0, TotalAttempts: 1}, out.Score)
}

func TestEvaluator_ToleratesFencedJSON(t *testing.T) {
	model := &fakeModel{response: "Here is my marking:\n```json\n{\"result\": \"incorrect\", \"score\": 0.1, \"feedback\": \"Not yet.\"}\n```"}
	e := NewEvaluator(model, writePrompts(t), nil)

	out, err := e.Evaluate(context.Background(), "chat-1", activeSession("no idea"))
	require.NoError(t, err)
	assert.Equal(t, state.VerdictIncorrect, out.FlashcardStates[0].Evaluation.Result)
	assert.Equal(t, state.Score{Correct: 0, Incorrect: 1, TotalAttempts: 1}, out.Score)
}

func TestEvaluator_RejectsUnknownVerdict(t *testing.T) {
	model := &fakeModel{response: `{"result": "meh", "score": 0.5, "feedback": "?"}`}
	e := NewEvaluator(model, writePrompts(t), nil)

	_, err := e.Evaluate(context.Background(), "chat-1", activeSession("something"))
	require.Error(t, err)
}

func TestParseEvaluation_NoObject(t *testing.T) {
	_, err := parseEvaluation("I cannot mark this.")
	require.Error(t, err)
}
