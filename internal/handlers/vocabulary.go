package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/impenglish/backend/internal/apperrors"
	"github.com/impenglish/backend/internal/handlers/render"
	"github.com/impenglish/backend/internal/logger"
	"github.com/impenglish/backend/internal/models"
	"github.com/impenglish/backend/internal/service/vocabulary"
)

type vocabularyResponse struct {
	ID        uuid.UUID         `json:"id"`
	Word      string            `json:"word"`
	Topic     string            `json:"topic"`
	Level     string            `json:"level,omitempty"`
	Phonetics []models.Phonetic `json:"phonetics"`
	Meanings  []models.Meaning  `json:"meanings"`
	CreatedAt time.Time         `json:"createdAt"`
}

type vocabularyPageResponse struct {
	Data       []vocabularyResponse  `json:"data"`
	Pagination vocabulary.Pagination `json:"pagination"`
}

func newVocabularyResponse(v models.Vocabulary) vocabularyResponse {
	return vocabularyResponse{
		ID:        v.ID,
		Word:      v.Word,
		Topic:     v.Topic,
		Level:     v.Level,
		Phonetics: v.Phonetics,
		Meanings:  v.Meanings,
		CreatedAt: v.CreatedAt,
	}
}

func newVocabularyPageResponse(page vocabulary.Page) vocabularyPageResponse {
	data := make([]vocabularyResponse, 0, len(page.Data))
	for _, v := range page.Data {
		data = append(data, newVocabularyResponse(v))
	}
	return vocabularyPageResponse{Data: data, Pagination: page.Pagination}
}

// listOptionsFromQuery parses ?page, ?limit, ?level and ?sort. Unparsable
// numbers fall back to defaults instead of failing the request.
func listOptionsFromQuery(r *http.Request) vocabulary.ListOptions {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	return vocabulary.ListOptions{
		Level:    q.Get("level"),
		Page:     page,
		Limit:    limit,
		SortDesc: q.Get("sort") == "desc",
	}
}

func handleVocabularyAll(vocab vocabService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, err := vocab.List(r.Context(), listOptionsFromQuery(r))
		if err != nil {
			logger.Error("Failed to list vocabulary", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, newVocabularyPageResponse(page))
	})
}

func handleVocabularyByTopic(vocab vocabService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		topic := r.PathValue("topic")

		page, err := vocab.ByTopic(r.Context(), topic, listOptionsFromQuery(r))
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrTopicNotFound):
				render.ServiceError(w, "Topic not found", http.StatusNotFound)
			default:
				logger.Error("Failed to list vocabulary by topic", "error", err.Error(), "topic", topic)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, newVocabularyPageResponse(page))
	})
}

func handleVocabularyMultiMeaning(vocab vocabService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, err := vocab.MultipleMeanings(r.Context(), listOptionsFromQuery(r))
		if err != nil {
			logger.Error("Failed to list multi-meaning vocabulary", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, newVocabularyPageResponse(page))
	})
}

func handleVocabularyFlashcards(vocab vocabService, logger logger.Logger) http.Handler {
	type response struct {
		Data       []models.Flashcard    `json:"data"`
		Pagination vocabulary.Pagination `json:"pagination"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Topic is optional: /flashcards serves all topics
		topic := r.PathValue("topic")

		page, err := vocab.Flashcards(r.Context(), topic, listOptionsFromQuery(r))
		if err != nil {
			logger.Error("Failed to list flashcards", "error", err.Error(), "topic", topic)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{Data: page.Data, Pagination: page.Pagination})
	})
}

func handleVocabularyRandom(vocab vocabService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		count, _ := strconv.Atoi(q.Get("count"))

		entries, err := vocab.Random(r.Context(), count, q.Get("topic"), q.Get("level"))
		if err != nil {
			logger.Error("Failed to pick random vocabulary", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		data := make([]vocabularyResponse, 0, len(entries))
		for _, v := range entries {
			data = append(data, newVocabularyResponse(v))
		}

		render.JSON(w, data)
	})
}
