package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/impenglish/backend/internal/models"
	"github.com/impenglish/backend/internal/repository"
)

type VocabularyRepo struct {
	DB DBTX
}

const vocabColumns = `id, created_at, word, topic, level, phonetics, meanings`

const createVocab = `-- name: CreateVocab
INSERT INTO vocabularies (id, word, topic, level, phonetics, meanings)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + vocabColumns

func (r *VocabularyRepo) Create(ctx context.Context, vocab models.Vocabulary) (models.Vocabulary, error) {
	rows, _ := r.DB.Query(ctx, createVocab,
		uuid.New(), vocab.Word, strings.ToLower(vocab.Topic), vocab.Level, vocab.Phonetics, vocab.Meanings)
	saved, err := pgx.CollectOneRow(rows, rowToVocab)
	if err != nil {
		return saved, fmt.Errorf("db error: %w", err)
	}
	return saved, nil
}

// where builds the WHERE clause for filter, appending arguments to args
func where(filter repository.VocabFilter, args []any) (string, []any) {
	conds := []string{}

	if filter.Topic != "" {
		args = append(args, strings.ToLower(filter.Topic))
		conds = append(conds, fmt.Sprintf("topic = $%d", len(args)))
	}
	if filter.Level != "" {
		args = append(args, filter.Level)
		conds = append(conds, fmt.Sprintf("level = $%d", len(args)))
	}
	if filter.MultipleMeanings {
		conds = append(conds, "jsonb_array_length(meanings) > 1")
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func (r *VocabularyRepo) List(ctx context.Context, filter repository.VocabFilter, page repository.VocabPage) ([]models.Vocabulary, int64, error) {
	cond, args := where(filter, nil)

	count := fmt.Sprintf("SELECT count(*) FROM vocabularies %s", cond)
	rows, _ := r.DB.Query(ctx, count, args...)
	total, err := pgx.CollectOneRow(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	order := "ASC"
	if page.SortDesc {
		order = "DESC"
	}

	args = append(args, page.Limit, (page.Page-1)*page.Limit)
	query := fmt.Sprintf(
		"SELECT %s FROM vocabularies %s ORDER BY word %s LIMIT $%d OFFSET $%d",
		vocabColumns, cond, order, len(args)-1, len(args),
	)

	rows, _ = r.DB.Query(ctx, query, args...)
	vocabs, err := pgx.CollectRows(rows, rowToVocab)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	return vocabs, total, nil
}

const topicExists = `-- name: TopicExists
SELECT EXISTS (SELECT 1 FROM vocabularies WHERE topic = $1)
`

func (r *VocabularyRepo) TopicExists(ctx context.Context, topic string) (bool, error) {
	rows, _ := r.DB.Query(ctx, topicExists, strings.ToLower(topic))
	exists, err := pgx.CollectOneRow(rows, pgx.RowTo[bool])
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *VocabularyRepo) Random(ctx context.Context, count int, filter repository.VocabFilter) ([]models.Vocabulary, error) {
	cond, args := where(filter, nil)

	args = append(args, count)
	query := fmt.Sprintf(
		"SELECT %s FROM vocabularies %s ORDER BY random() LIMIT $%d",
		vocabColumns, cond, len(args),
	)

	rows, _ := r.DB.Query(ctx, query, args...)
	vocabs, err := pgx.CollectRows(rows, rowToVocab)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return vocabs, nil
}

func rowToVocab(row pgx.CollectableRow) (models.Vocabulary, error) {
	var v models.Vocabulary
	err := row.Scan(&v.ID, &v.CreatedAt, &v.Word, &v.Topic, &v.Level, &v.Phonetics, &v.Meanings)
	return v, err
}
