package transcript

import "github.com/murmurlabs/murmur/domain/repository"

// WithFilename filters by the "filename" column (the per-date uniqueness key).
func WithFilename(filename string) repository.Option {
	return repository.WithCondition("filename", filename)
}

// WithDate filters by the "date" column.
func WithDate(date string) repository.Option {
	return repository.WithCondition("date", date)
}

// WithName filters by the "name" column.
func WithName(name string) repository.Option {
	return repository.WithCondition("name", name)
}
