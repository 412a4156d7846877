package database

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// PgVector maps a float64 slice to a PostgreSQL VECTOR column. The pgvector
// extension speaks a text literal of the form "[0.1,0.2,0.3]"; Scan and
// Value convert between that and Go.
type PgVector struct {
	floats []float64
}

// NewPgVector creates a PgVector holding a copy of floats.
func NewPgVector(floats []float64) PgVector {
	return PgVector{floats: append([]float64(nil), floats...)}
}

// Floats returns a copy of the vector elements, or nil for an uninitialized
// vector (such as one scanned from SQL NULL).
func (v PgVector) Floats() []float64 {
	if v.floats == nil {
		return nil
	}
	return append([]float64(nil), v.floats...)
}

// Dimension returns the number of vector elements.
func (v PgVector) Dimension() int {
	return len(v.floats)
}

// Scan implements sql.Scanner for the pgvector text literal, accepting
// string or []byte column values.
func (v *PgVector) Scan(value any) error {
	var raw string
	switch val := value.(type) {
	case nil:
		v.floats = nil
		return nil
	case string:
		raw = val
	case []byte:
		raw = string(val)
	default:
		return fmt.Errorf("cannot scan %T into PgVector", value)
	}

	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	if raw == "" {
		v.floats = []float64{}
		return nil
	}

	parts := strings.Split(raw, ",")
	floats := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return fmt.Errorf("parse element %d: %w", i, err)
		}
		floats[i] = f
	}
	v.floats = floats
	return nil
}

// Value implements driver.Valuer, serializing to the pgvector text literal.
func (v PgVector) Value() (driver.Value, error) {
	return v.String(), nil
}

// String returns the pgvector literal, e.g. "[0.1,0.2,0.3]".
func (v PgVector) String() string {
	var b strings.Builder
	b.Grow(len(v.floats)*12 + 2)
	b.WriteByte('[')
	for i, f := range v.floats {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}
