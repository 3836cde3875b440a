package store

// Topic is one quizzable subject area as stored in the repository.
type Topic struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

// FlashcardRecord is the repository's source-of-truth for one flashcard.
// The marking criteria text is the rubric the evaluator scores against.
type FlashcardRecord struct {
	ID              int64  `yaml:"id"`
	TopicID         int64  `yaml:"topic_id"`
	Question        string `yaml:"question"`
	MarkingCriteria string `yaml:"marking_criteria"`
}
