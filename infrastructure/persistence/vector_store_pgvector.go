package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/murmurlabs/murmur/domain/search"
	"github.com/murmurlabs/murmur/infrastructure/provider"
	"github.com/murmurlabs/murmur/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// pgChunkTable is the PostgreSQL vector table name.
const pgChunkTable = "pgvector_chunk_embeddings"

// SQL queries specific to pgvector (extension, index, catalog).
const (
	pgvCreateExtension = `CREATE EXTENSION IF NOT EXISTS vector`

	pgvCreateIndex = `
CREATE INDEX IF NOT EXISTS ` + pgChunkTable + `_idx
ON ` + pgChunkTable + `
USING ivfflat (embedding vector_cosine_ops)
WITH (lists = 100)`

	pgvCheckDimension = `
SELECT a.atttypmod as dimension
FROM pg_attribute a
JOIN pg_class c ON a.attrelid = c.oid
WHERE c.relname = '` + pgChunkTable + `'
AND a.attname = 'embedding'`
)

// Pgvector errors.
var (
	// ErrPgvectorInitializationFailed indicates pgvector initialization failed.
	ErrPgvectorInitializationFailed = errors.New("failed to initialize pgvector store")

	// ErrDimensionMismatch indicates the table's vector dimension does not
	// match the embedding provider's.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// PgChunkModel represents an indexed transcript chunk in PostgreSQL.
type PgChunkModel struct {
	ID           int64             `gorm:"column:id;primaryKey;autoIncrement"`
	EntryID      string            `gorm:"column:entry_id;uniqueIndex"`
	TranscriptID int64             `gorm:"column:transcript_id;index"`
	ChunkIndex   int               `gorm:"column:chunk_index"`
	Text         string            `gorm:"column:text"`
	Name         string            `gorm:"column:name"`
	Date         string            `gorm:"column:date"`
	Embedding    database.PgVector `gorm:"column:embedding;type:vector"`
}

// TableName sets the table name for GORM.
func (PgChunkModel) TableName() string { return pgChunkTable }

// PgvectorVectorStore implements search.VectorStore using the PostgreSQL
// pgvector extension. Similarity search runs in the database via the cosine
// distance operator.
type PgvectorVectorStore struct {
	db       database.Database
	embedder provider.Embedder
	logger   *slog.Logger
}

// NewPgvectorVectorStore creates a PgvectorVectorStore, eagerly initializing
// the extension, table, index, and verifying the vector dimension.
func NewPgvectorVectorStore(ctx context.Context, db database.Database, embedder provider.Embedder, dimension int, logger *slog.Logger) (*PgvectorVectorStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rawDB := db.Session(ctx)

	if err := rawDB.Exec(pgvCreateExtension).Error; err != nil {
		return nil, errors.Join(ErrPgvectorInitializationFailed, fmt.Errorf("create extension: %w", err))
	}

	// Dynamic dimension requires raw SQL
	createTableSQL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    id BIGSERIAL PRIMARY KEY,
    entry_id VARCHAR(255) NOT NULL UNIQUE,
    transcript_id BIGINT NOT NULL,
    chunk_index INTEGER NOT NULL,
    text TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    date TEXT NOT NULL DEFAULT '',
    embedding VECTOR(%d) NOT NULL
)`, pgChunkTable, dimension)
	if err := rawDB.Exec(createTableSQL).Error; err != nil {
		return nil, errors.Join(ErrPgvectorInitializationFailed, fmt.Errorf("create table: %w", err))
	}

	// Create index (ignore errors if index already exists with different parameters)
	if err := rawDB.Exec(pgvCreateIndex).Error; err != nil {
		logger.Warn("failed to create index (may already exist)", "error", err)
	}

	// Verify dimension matches
	var dbDimension int
	result := rawDB.Raw(pgvCheckDimension).Scan(&dbDimension)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, errors.Join(ErrPgvectorInitializationFailed, fmt.Errorf("check dimension: %w", result.Error))
	}
	if result.RowsAffected > 0 && dbDimension != dimension {
		return nil, fmt.Errorf("%w: database has %d, provider has %d", ErrDimensionMismatch, dbDimension, dimension)
	}

	return &PgvectorVectorStore{
		db:       db,
		embedder: embedder,
		logger:   logger,
	}, nil
}

// Upsert embeds the documents and writes them, overwriting existing entries
// with the same entry id.
func (s *PgvectorVectorStore) Upsert(ctx context.Context, request search.UpsertRequest) error {
	docs := request.Documents()
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text()
	}

	vectors, err := embedTexts(ctx, s.embedder, texts)
	if err != nil {
		return err
	}

	return database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		for i, d := range docs {
			model := PgChunkModel{
				EntryID:      d.EntryID(),
				TranscriptID: d.TranscriptID(),
				ChunkIndex:   d.ChunkIndex(),
				Text:         d.Text(),
				Name:         d.Name(),
				Date:         d.Date(),
				Embedding:    database.NewPgVector(vectors[i]),
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "entry_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"transcript_id", "chunk_index", "text", "name", "date", "embedding"}),
			}).Create(&model).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Query embeds the query text and returns the top-k nearest entries by
// cosine distance, highest similarity first.
func (s *PgvectorVectorStore) Query(ctx context.Context, request search.QueryRequest) ([]search.Match, error) {
	topK := request.TopK()
	if topK <= 0 {
		return []search.Match{}, nil
	}

	vectors, err := embedTexts(ctx, s.embedder, []string{request.Query()})
	if err != nil {
		return nil, err
	}
	queryEmbedding := database.NewPgVector(vectors[0]).String()

	var rows []struct {
		EntryID      string  `gorm:"column:entry_id"`
		TranscriptID int64   `gorm:"column:transcript_id"`
		ChunkIndex   int     `gorm:"column:chunk_index"`
		Text         string  `gorm:"column:text"`
		Name         string  `gorm:"column:name"`
		Date         string  `gorm:"column:date"`
		Score        float64 `gorm:"column:score"`
	}
	err = s.db.Session(ctx).
		Table(pgChunkTable).
		Select("entry_id, transcript_id, chunk_index, text, name, date, embedding <=> ? as score", queryEmbedding).
		Order("score ASC").
		Limit(topK).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("pgvector query: %w", err)
	}

	results := make([]search.Match, len(rows))
	for i, row := range rows {
		// Cosine distance: 0 = identical, 2 = opposite.
		// Convert to similarity: 1 - distance/2 for 0-1 range.
		similarity := 1.0 - row.Score/2.0
		results[i] = search.NewMatch(
			row.EntryID,
			similarity,
			row.TranscriptID,
			row.ChunkIndex,
			row.Text,
			row.Name,
			row.Date,
		)
	}
	return results, nil
}

// Delete removes entries by id. Missing ids are ignored.
func (s *PgvectorVectorStore) Delete(ctx context.Context, request search.DeleteRequest) error {
	ids := request.IDs()
	if len(ids) == 0 {
		return nil
	}

	for _, chunk := range batches(ids, deleteBatchSize) {
		result := s.db.Session(ctx).Where("entry_id IN ?", chunk).Delete(&PgChunkModel{})
		if result.Error != nil {
			return fmt.Errorf("delete chunk embeddings: %w", result.Error)
		}
	}
	return nil
}

var _ search.VectorStore = (*PgvectorVectorStore)(nil)
