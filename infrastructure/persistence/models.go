// Package persistence provides database storage implementations.
package persistence

import (
	"time"

	"github.com/murmurlabs/murmur/domain/transcript"
)

// TranscriptModel is the GORM model for the transcripts table. Filename is
// the per-date uniqueness key so repeated uploads for the same date update
// the existing row instead of creating a duplicate.
type TranscriptModel struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name       string    `gorm:"column:name;not null"`
	Date       string    `gorm:"column:date;index;not null"`
	Filename   string    `gorm:"column:filename;uniqueIndex;not null"`
	Text       string    `gorm:"column:text;type:text"`
	ChunkCount int       `gorm:"column:chunk_count;not null;default:0"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

// TableName sets the table name for GORM.
func (TranscriptModel) TableName() string { return "transcripts" }

// TranscriptMapper maps between domain Transcript and TranscriptModel.
type TranscriptMapper struct{}

// ToDomain converts a TranscriptModel to a domain Transcript.
func (m TranscriptMapper) ToDomain(e TranscriptModel) transcript.Transcript {
	return transcript.Reconstruct(
		e.ID,
		e.Name,
		e.Date,
		e.Filename,
		e.Text,
		e.ChunkCount,
		e.CreatedAt,
		e.UpdatedAt,
	)
}

// ToModel converts a domain Transcript to a TranscriptModel.
func (m TranscriptMapper) ToModel(t transcript.Transcript) TranscriptModel {
	return TranscriptModel{
		ID:         t.ID(),
		Name:       t.Name(),
		Date:       t.Date(),
		Filename:   t.Filename(),
		Text:       t.Text(),
		ChunkCount: t.ChunkCount(),
		CreatedAt:  t.CreatedAt(),
		UpdatedAt:  t.UpdatedAt(),
	}
}
