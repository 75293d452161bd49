package vocabulary

import (
	"context"
	"fmt"

	"github.com/impenglish/backend/internal/apperrors"
	"github.com/impenglish/backend/internal/models"
	"github.com/impenglish/backend/internal/repository"
)

const (
	defaultLimit = 10
	maxLimit     = 100

	defaultRandomCount = 10
	maxRandomCount     = 50
)

// Query options shared by all paginated listings
type ListOptions struct {
	Level    string
	Page     int
	Limit    int
	SortDesc bool
}

// Pagination metadata returned with each page
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

type Page struct {
	Data       []models.Vocabulary
	Pagination Pagination
}

type FlashcardPage struct {
	Data       []models.Flashcard
	Pagination Pagination
}

// Service provides read-only access to the vocabulary set
type Service struct {
	vocabRepo repository.VocabularyRepo
}

func NewService(vocabRepo repository.VocabularyRepo) *Service {
	return &Service{vocabRepo: vocabRepo}
}

// List returns a page of all entries, optionally filtered by level
func (s *Service) List(ctx context.Context, opts ListOptions) (Page, error) {
	return s.list(ctx, repository.VocabFilter{Level: opts.Level}, opts)
}

// ByTopic returns a page of entries for the topic.
// Unknown topic fails with ErrTopicNotFound even if filters would have
// emptied the page anyway.
func (s *Service) ByTopic(ctx context.Context, topic string, opts ListOptions) (Page, error) {
	exists, err := s.vocabRepo.TopicExists(ctx, topic)
	if err != nil {
		return Page{}, err
	}
	if !exists {
		return Page{}, apperrors.ErrTopicNotFound
	}

	return s.list(ctx, repository.VocabFilter{Topic: topic, Level: opts.Level}, opts)
}

// MultipleMeanings returns a page of words that have more than one meaning
func (s *Service) MultipleMeanings(ctx context.Context, opts ListOptions) (Page, error) {
	return s.list(ctx, repository.VocabFilter{Level: opts.Level, MultipleMeanings: true}, opts)
}

// Flashcards returns a page of entries flattened into flashcards.
// Topic is optional, empty means all topics.
func (s *Service) Flashcards(ctx context.Context, topic string, opts ListOptions) (FlashcardPage, error) {
	page, err := s.list(ctx, repository.VocabFilter{Topic: topic, Level: opts.Level}, opts)
	if err != nil {
		return FlashcardPage{}, err
	}

	cards := make([]models.Flashcard, 0, len(page.Data))
	for _, vocab := range page.Data {
		cards = append(cards, vocab.Flashcard())
	}

	return FlashcardPage{Data: cards, Pagination: page.Pagination}, nil
}

// Random returns up to count random entries
func (s *Service) Random(ctx context.Context, count int, topic string, level string) ([]models.Vocabulary, error) {
	if count <= 0 {
		count = defaultRandomCount
	}
	if count > maxRandomCount {
		count = maxRandomCount
	}

	return s.vocabRepo.Random(ctx, count, repository.VocabFilter{Topic: topic, Level: level})
}

func (s *Service) list(ctx context.Context, filter repository.VocabFilter, opts ListOptions) (Page, error) {
	page, limit := normalize(opts.Page, opts.Limit)

	data, total, err := s.vocabRepo.List(ctx, filter, repository.VocabPage{
		Page:     page,
		Limit:    limit,
		SortDesc: opts.SortDesc,
	})
	if err != nil {
		return Page{}, fmt.Errorf("error while listing vocabulary. Err: %w", err)
	}

	return Page{
		Data: data,
		Pagination: Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: pages(total, limit),
		},
	}, nil
}

func normalize(page int, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

func pages(total int64, limit int) int {
	return int((total + int64(limit) - 1) / int64(limit))
}
