package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML layout of a seed data file.
type SeedFile struct {
	Topics     []Topic           `yaml:"topics"`
	Flashcards []FlashcardRecord `yaml:"flashcards"`
}

// LoadSeedFile reads and decodes a YAML seed file.
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	return &seed, nil
}

// Seed upserts topics and flashcards into the repository. Safe to run
// repeatedly.
func (s *TutorStore) Seed(seed *SeedFile) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, t := range seed.Topics {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO topics (id, name) VALUES (?, ?)`, t.ID, t.Name); err != nil {
			return fmt.Errorf("seed topic %d: %w", t.ID, err)
		}
	}
	for _, c := range seed.Flashcards {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO flashcards (id, topic_id, question, marking_criteria) VALUES (?, ?, ?, ?)`,
			c.ID, c.TopicID, c.Question, c.MarkingCriteria,
		)
		if err != nil {
			return fmt.Errorf("seed flashcard %d: %w", c.ID, err)
		}
	}
	return tx.Commit()
}
