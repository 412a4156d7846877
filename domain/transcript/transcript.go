// Package transcript provides the transcript domain model and store contract.
package transcript

import "time"

// Transcript is the canonical record for one ingested recording.
// The date doubles as the uniqueness key for ingestion: a second ingestion
// for the same date must resolve to the existing record.
type Transcript struct {
	id         int64
	name       string
	date       string
	filename   string
	text       string
	chunkCount int
	createdAt  time.Time
	updatedAt  time.Time
}

// New creates a Transcript for first-time ingestion. The filename is the
// date string, matching the uniqueness constraint on the store.
func New(name, date, text string) Transcript {
	now := time.Now()
	return Transcript{
		name:      name,
		date:      date,
		filename:  date,
		text:      text,
		createdAt: now,
		updatedAt: now,
	}
}

// Reconstruct rebuilds a Transcript from persisted state.
func Reconstruct(
	id int64,
	name, date, filename, text string,
	chunkCount int,
	createdAt, updatedAt time.Time,
) Transcript {
	return Transcript{
		id:         id,
		name:       name,
		date:       date,
		filename:   filename,
		text:       text,
		chunkCount: chunkCount,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

// ID returns the surrogate identity assigned on creation (0 before save).
func (t Transcript) ID() int64 { return t.id }

// Name returns the free-text label.
func (t Transcript) Name() string { return t.name }

// Date returns the caller-supplied date string.
func (t Transcript) Date() string { return t.date }

// Filename returns the uniqueness key (equal to the date at creation).
func (t Transcript) Filename() string { return t.filename }

// Text returns the full transcript text.
func (t Transcript) Text() string { return t.text }

// ChunkCount returns the number of vector entries written at the last
// successful indexing run, or 0 when that number is unknown.
func (t Transcript) ChunkCount() int { return t.chunkCount }

// CreatedAt returns the creation timestamp.
func (t Transcript) CreatedAt() time.Time { return t.createdAt }

// UpdatedAt returns the last modification timestamp.
func (t Transcript) UpdatedAt() time.Time { return t.updatedAt }

// WithText returns a copy with the text replaced wholesale.
func (t Transcript) WithText(text string) Transcript {
	t.text = text
	t.updatedAt = time.Now()
	return t
}

// WithChunkCount returns a copy with the recorded chunk count updated.
func (t Transcript) WithChunkCount(n int) Transcript {
	t.chunkCount = n
	return t
}
