package agent

import (
	"fmt"

	"github.com/hamza/chilltutor/internal/state"
)

// PopulateFlashcards builds a fresh flashcard queue for a topic: every card
// queued with zero attempts and no answers, in repository order, with the
// first card made active. The queue always starts at the active card.
func PopulateFlashcards(repo FlashcardRepository, topicID int64) ([]state.Flashcard, error) {
	records, err := repo.FlashcardsByTopic(topicID)
	if err != nil {
		return nil, fmt.Errorf("load flashcards for topic %d: %w", topicID, err)
	}

	cards := make([]state.Flashcard, 0, len(records))
	for _, r := range records {
		cards = append(cards, state.Flashcard{
			ID:              r.ID,
			Status:          state.StatusQueued,
			Question:        r.Question,
			MarkingCriteria: r.MarkingCriteria,
			UserAnswers:     []string{},
		})
	}
	if len(cards) > 0 {
		cards[0].Status = state.StatusActive
	}
	return cards, nil
}
