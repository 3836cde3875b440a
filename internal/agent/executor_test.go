package agent

import (
	"context"
	"testing"

	"github.com/hamza/chilltutor/internal/governance"
	"github.com/hamza/chilltutor/internal/plan"
	"github.com/hamza/chilltutor/internal/state"
	"github.com/hamza/chilltutor/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutor_BulkSetStateMerges(t *testing.T) {
	e := NewExecutor(&fakeRepo{}, nil, nil)

	sess := state.Session{
		QuizState: state.QuizState{State: "idle", Progress: float64(0)},
	}
	steps := plan.Parse("Plan: Move on\n#E1 = bulk_set_state[quiz_state={\"state\": \"awaiting_answer\"}]")

	out := e.Execute(context.Background(), "chat-1", sess, steps)

	assert.Equal(t, state.QuizAwaitingAnswer, out.QuizState.State)
	// Unrelated sibling keys survive the merge.
	assert.Equal(t, float64(0), out.QuizState.Progress)
	// The caller's snapshot is untouched.
	assert.Equal(t, "idle", sess.QuizState.State)
}

func TestExecutor_LaterStepsSeeEarlierEffects(t *testing.T) {
	e := NewExecutor(&fakeRepo{}, nil, nil)

	steps := plan.Parse("Plan: Two writes\n" +
		"#E1 = bulk_set_state[score={\"correct\": 1}]\n" +
		"#E2 = bulk_set_state[score={\"total_attempts\": 2}]")

	out := e.Execute(context.Background(), "chat-1", state.Session{}, steps)

	// The second merge ran against the first step's result, not the
	// original snapshot.
	assert.Equal(t, state.Score{Correct: 1, TotalAttempts: 2}, out.Score)
}

func TestExecutor_PopulateFlashcards(t *testing.T) {
	repo := &fakeRepo{records: map[int64][]store.FlashcardRecord{
		2: {
			{ID: 1, TopicID: 2, Question: "Binary?", MarkingCriteria: "base 2"},
			{ID: 2, TopicID: 2, Question: "Encryption?", MarkingCriteria: "keys"},
		},
	}}
	e := NewExecutor(repo, nil, nil)

	steps := plan.Parse("Plan: Start quiz\n#E1 = populate_flashcards[topic_id=2]")
	out := e.Execute(context.Background(), "chat-1", state.Session{}, steps)

	require.Len(t, out.FlashcardStates, 2)
	assert.Equal(t, state.StatusActive, out.FlashcardStates[0].Status)
	assert.Equal(t, state.StatusQueued, out.FlashcardStates[1].Status)
	assert.Equal(t, "Binary?", out.FlashcardStates[0].Question)
}

func TestExecutor_PopulateEmptyTopicKeepsQueue(t *testing.T) {
	repo := &fakeRepo{records: map[int64][]store.FlashcardRecord{}}
	e := NewExecutor(repo, nil, nil)

	sess := state.Session{FlashcardStates: []state.Flashcard{{ID: 1, Status: state.StatusActive}}}
	steps := plan.Parse("Plan: Switch topic\n#E1 = populate_flashcards[topic_id=99]")

	out := e.Execute(context.Background(), "chat-1", sess, steps)
	require.Len(t, out.FlashcardStates, 1)
	assert.Equal(t, int64(1), out.FlashcardStates[0].ID)
}

func TestExecutor_UnknownToolIsNoOp(t *testing.T) {
	e := NewExecutor(&fakeRepo{}, nil, nil)

	steps := plan.Parse("Plan: Weird plan\n" +
		"#E1 = summon_dragons[count=3]\n" +
		"#E2 = bulk_set_state[current_topic_id=1]")

	out := e.Execute(context.Background(), "chat-1", state.Session{}, steps)

	// The unknown tool did nothing; the plan still ran to completion.
	require.NotNil(t, out.CurrentTopicID)
	assert.Equal(t, int64(1), *out.CurrentTopicID)
}

func TestExecutor_PolicyDeniedStepSkipped(t *testing.T) {
	policy := governance.NewDefaultPolicyEngine()
	policy.DenyField("messages")
	e := NewExecutor(&fakeRepo{}, policy, nil)

	steps := plan.Parse("Plan: Sneaky\n" +
		"#E1 = bulk_set_state[messages=[]]\n" +
		"#E2 = bulk_set_state[current_topic_id=4]")

	sess := state.Session{Messages: []state.Message{{Role: "human", Content: "hi"}}}
	out := e.Execute(context.Background(), "chat-1", sess, steps)

	// The transcript rewrite was denied, the harmless step ran.
	require.Len(t, out.Messages, 1)
	require.NotNil(t, out.CurrentTopicID)
	assert.Equal(t, int64(4), *out.CurrentTopicID)
}

func TestExecutor_FlashcardUpsertThroughPlan(t *testing.T) {
	e := NewExecutor(&fakeRepo{}, nil, nil)

	sess := state.Session{FlashcardStates: []state.Flashcard{
		{ID: 1, Status: state.StatusActive, Question: "Binary?", Attempts: 0},
		{ID: 2, Status: state.StatusQueued, Question: "Encryption?"},
	}}
	steps := plan.Parse("Plan: Record answer\n" +
		"#E1 = bulk_set_state[flashcard_states=[{\"id\": 1, \"attempts\": 1, \"user_answers\": [\"base 2 numbers\"]}]; quiz_state={\"state\": \"awaiting_evaluation\"}]")

	out := e.Execute(context.Background(), "chat-1", sess, steps)

	require.Len(t, out.FlashcardStates, 2)
	first := out.FlashcardStates[0]
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, state.StatusActive, first.Status)
	assert.Equal(t, 1, first.Attempts)
	assert.Equal(t, []string{"base 2 numbers"}, first.UserAnswers)
	// The untouched fields of the merged record survive.
	assert.Equal(t, "Binary?", first.Question)
	assert.Equal(t, state.QuizAwaitingEvaluation, out.QuizState.State)
}

func TestPopulateFlashcards_Direct(t *testing.T) {
	repo := &fakeRepo{records: map[int64][]store.FlashcardRecord{
		1: {{ID: 4, TopicID: 1, Question: "Decomposition?", MarkingCriteria: "break down"}},
	}}

	cards, err := PopulateFlashcards(repo, 1)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, state.StatusActive, cards[0].Status)
	assert.Equal(t, 0, cards[0].Attempts)
	assert.Empty(t, cards[0].UserAnswers)
	assert.Nil(t, cards[0].Evaluation)

	cards, err = PopulateFlashcards(repo, 42)
	require.NoError(t, err)
	assert.Empty(t, cards)
}
