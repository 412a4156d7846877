package persistence

import (
	"github.com/murmurlabs/murmur/internal/database"
)

// AutoMigrate runs GORM auto migration for all record models. Vector tables
// are created by the vector stores themselves because their schema depends
// on the backend and embedding dimension.
func AutoMigrate(db database.Database) error {
	return db.GORM().AutoMigrate(
		&TranscriptModel{},
	)
}
