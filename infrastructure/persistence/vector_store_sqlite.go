package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/murmurlabs/murmur/domain/search"
	"github.com/murmurlabs/murmur/infrastructure/provider"
	"github.com/murmurlabs/murmur/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sqliteChunkTable is the SQLite vector table name.
const sqliteChunkTable = "chunk_embeddings"

// SQLiteChunkModel represents an indexed transcript chunk in SQLite. The
// embedding is stored as JSON and similarity search runs in memory.
type SQLiteChunkModel struct {
	ID           int64        `gorm:"column:id;primaryKey;autoIncrement"`
	EntryID      string       `gorm:"column:entry_id;uniqueIndex"`
	TranscriptID int64        `gorm:"column:transcript_id;index"`
	ChunkIndex   int          `gorm:"column:chunk_index"`
	Text         string       `gorm:"column:text;type:text"`
	Name         string       `gorm:"column:name"`
	Date         string       `gorm:"column:date"`
	Embedding    Float64Slice `gorm:"column:embedding;type:json"`
}

// TableName sets the table name for GORM.
func (SQLiteChunkModel) TableName() string { return sqliteChunkTable }

// SQLiteVectorStore implements search.VectorStore for SQLite. Embeddings are
// stored as JSON and cosine similarity is computed in memory, which keeps the
// single-binary deployment free of database extensions.
type SQLiteVectorStore struct {
	db       database.Database
	embedder provider.Embedder
	logger   *slog.Logger
}

// NewSQLiteVectorStore creates a SQLiteVectorStore, eagerly creating the
// chunk table.
func NewSQLiteVectorStore(db database.Database, embedder provider.Embedder, logger *slog.Logger) (*SQLiteVectorStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := db.GORM().AutoMigrate(&SQLiteChunkModel{}); err != nil {
		return nil, fmt.Errorf("create table %s: %w", sqliteChunkTable, err)
	}

	return &SQLiteVectorStore{
		db:       db,
		embedder: embedder,
		logger:   logger,
	}, nil
}

// Upsert embeds the documents and writes them, overwriting existing entries
// with the same entry id.
func (s *SQLiteVectorStore) Upsert(ctx context.Context, request search.UpsertRequest) error {
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

	models := make([]SQLiteChunkModel, len(docs))
	for i, d := range docs {
		models[i] = SQLiteChunkModel{
			EntryID:      d.EntryID(),
			TranscriptID: d.TranscriptID(),
			ChunkIndex:   d.ChunkIndex(),
			Text:         d.Text(),
			Name:         d.Name(),
			Date:         d.Date(),
			Embedding:    Float64Slice(vectors[i]),
		}
	}

	return database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entry_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"transcript_id", "chunk_index", "text", "name", "date", "embedding"}),
		}).CreateInBatches(models, saveAllBatchSize).Error
	})
}

// Query embeds the query text and returns the top-k nearest entries by
// cosine similarity, highest first.
func (s *SQLiteVectorStore) Query(ctx context.Context, request search.QueryRequest) ([]search.Match, error) {
	topK := request.TopK()
	if topK <= 0 {
		return []search.Match{}, nil
	}

	vectors, err := embedTexts(ctx, s.embedder, []string{request.Query()})
	if err != nil {
		return nil, err
	}
	queryVector := vectors[0]

	var entities []SQLiteChunkModel
	if err := s.db.Session(ctx).Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("load chunk embeddings: %w", err)
	}

	if len(entities) == 0 {
		return []search.Match{}, nil
	}

	byEntryID := make(map[string]SQLiteChunkModel, len(entities))
	stored := make([]StoredVector, 0, len(entities))
	for _, e := range entities {
		if len(e.Embedding) == 0 {
			s.logger.Warn("skipping empty embedding", "entry_id", e.EntryID)
			continue
		}
		byEntryID[e.EntryID] = e
		stored = append(stored, NewStoredVector(e.EntryID, e.Embedding))
	}

	matches := TopKSimilar(queryVector, stored, topK)

	results := make([]search.Match, len(matches))
	for i, m := range matches {
		e := byEntryID[m.EntryID()]
		results[i] = search.NewMatch(
			e.EntryID,
			m.Similarity(),
			e.TranscriptID,
			e.ChunkIndex,
			e.Text,
			e.Name,
			e.Date,
		)
	}
	return results, nil
}

// Delete removes entries by id. Missing ids are ignored.
func (s *SQLiteVectorStore) Delete(ctx context.Context, request search.DeleteRequest) error {
	ids := request.IDs()
	if len(ids) == 0 {
		return nil
	}

	for _, chunk := range batches(ids, deleteBatchSize) {
		result := s.db.Session(ctx).Where("entry_id IN ?", chunk).Delete(&SQLiteChunkModel{})
		if result.Error != nil {
			return fmt.Errorf("delete chunk embeddings: %w", result.Error)
		}
	}
	return nil
}

var _ search.VectorStore = (*SQLiteVectorStore)(nil)
