package transcript

import (
	"context"

	"github.com/murmurlabs/murmur/domain/repository"
)

// Store defines persistence operations for transcripts.
type Store interface {
	// Save creates or updates a transcript. A create assigns the surrogate
	// id; the returned Transcript carries it.
	Save(ctx context.Context, t Transcript) (Transcript, error)

	// Find retrieves transcripts matching the given options.
	Find(ctx context.Context, options ...repository.Option) ([]Transcript, error)

	// FindOne retrieves a single transcript matching the given options.
	// Returns an error wrapping database.ErrNotFound when nothing matches.
	FindOne(ctx context.Context, options ...repository.Option) (Transcript, error)

	// Exists checks if any transcript matches the given options.
	Exists(ctx context.Context, options ...repository.Option) (bool, error)

	// Delete removes a transcript.
	Delete(ctx context.Context, t Transcript) error
}
