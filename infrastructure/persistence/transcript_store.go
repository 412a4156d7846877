package persistence

import (
	"context"
	"fmt"

	"github.com/murmurlabs/murmur/domain/transcript"
	"github.com/murmurlabs/murmur/internal/database"
	"gorm.io/gorm"
)

// TranscriptStore implements transcript.Store using GORM.
type TranscriptStore struct {
	database.Repository[transcript.Transcript, TranscriptModel]
}

// NewTranscriptStore creates a new TranscriptStore.
func NewTranscriptStore(db database.Database) TranscriptStore {
	return TranscriptStore{
		Repository: database.NewRepository[transcript.Transcript, TranscriptModel](db, TranscriptMapper{}, "transcript"),
	}
}

// Save creates or updates a transcript.
func (s TranscriptStore) Save(ctx context.Context, t transcript.Transcript) (transcript.Transcript, error) {
	model := s.Mapper().ToModel(t)

	var result *gorm.DB
	if t.ID() == 0 {
		result = s.DB(ctx).Create(&model)
	} else {
		result = s.DB(ctx).Save(&model)
	}

	if result.Error != nil {
		return transcript.Transcript{}, fmt.Errorf("save transcript: %w", result.Error)
	}
	return s.Mapper().ToDomain(model), nil
}

// Delete removes a transcript.
func (s TranscriptStore) Delete(ctx context.Context, t transcript.Transcript) error {
	model := s.Mapper().ToModel(t)
	result := s.DB(ctx).Delete(&model)
	if result.Error != nil {
		return fmt.Errorf("delete transcript: %w", result.Error)
	}
	return nil
}

var _ transcript.Store = TranscriptStore{}
