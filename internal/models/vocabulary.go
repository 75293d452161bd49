package models

import (
	"time"

	"github.com/google/uuid"
)

// Phonetic transcription with optional pronunciation audio url
type Phonetic struct {
	Text  string `json:"text"`
	Audio string `json:"audio,omitempty"`
}

type Definition struct {
	Definition   string   `json:"definition"`
	DefinitionVN string   `json:"definitionVN,omitempty"`
	Example      string   `json:"example,omitempty"`
	ExampleVN    string   `json:"exampleVN,omitempty"`
	Synonyms     []string `json:"synonyms,omitempty"`
}

// Meaning groups definitions that share a part of speech
type Meaning struct {
	PartOfSpeech string       `json:"partOfSpeech"`
	Definitions  []Definition `json:"definitions"`
}

type Vocabulary struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Word      string
	Topic     string
	Level     string
	Phonetics []Phonetic
	Meanings  []Meaning
}

// Flashcard is a flattened projection of a vocabulary entry: the first
// phonetic and the first definition of the first meaning.
type Flashcard struct {
	ID            uuid.UUID `json:"id"`
	Word          string    `json:"word"`
	Pronunciation string    `json:"pronunciation,omitempty"`
	Audio         string    `json:"audio,omitempty"`
	Definition    string    `json:"definition,omitempty"`
	Example       string    `json:"example,omitempty"`
	Level         string    `json:"level,omitempty"`
	Topic         string    `json:"topic,omitempty"`
	PartOfSpeech  string    `json:"partOfSpeech,omitempty"`
}

// Flashcard flattens the entry for the flashcard endpoints.
func (v Vocabulary) Flashcard() Flashcard {
	card := Flashcard{
		ID:    v.ID,
		Word:  v.Word,
		Level: v.Level,
		Topic: v.Topic,
	}

	if len(v.Phonetics) > 0 {
		card.Pronunciation = v.Phonetics[0].Text
		card.Audio = v.Phonetics[0].Audio
		if card.Audio == "" && len(v.Phonetics) > 1 {
			card.Audio = v.Phonetics[1].Audio
		}
	}

	if len(v.Meanings) > 0 {
		card.PartOfSpeech = v.Meanings[0].PartOfSpeech
		if len(v.Meanings[0].Definitions) > 0 {
			card.Definition = v.Meanings[0].Definitions[0].Definition
			card.Example = v.Meanings[0].Definitions[0].Example
		}
	}

	return card
}
