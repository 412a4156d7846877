// Package repository defines the option-based query model shared by stores.
// Domain packages wrap WithCondition in typed helpers (for example
// transcript.WithFilename) so services never spell column names.
package repository

// Option applies one modification to a Query.
type Option func(Query) Query

// Query collects conditions, ordering, and pagination for a store lookup.
type Query struct {
	conditions []Condition
	orders     []Order
	limit      int
	offset     int
}

// Build folds a set of options into a Query.
func Build(options ...Option) Query {
	var q Query
	for _, opt := range options {
		q = opt(q)
	}
	return q
}

// Conditions returns a copy of the query conditions.
func (q Query) Conditions() []Condition {
	return append([]Condition(nil), q.conditions...)
}

// Orders returns a copy of the query orderings.
func (q Query) Orders() []Order {
	return append([]Order(nil), q.orders...)
}

// LimitValue returns the row limit; zero means unlimited.
func (q Query) LimitValue() int { return q.limit }

// OffsetValue returns the row offset.
func (q Query) OffsetValue() int { return q.offset }

// Condition is a single WHERE clause: either field = value or field IN value.
type Condition struct {
	field string
	value any
	in    bool
}

// Field returns the column name.
func (c Condition) Field() string { return c.field }

// Value returns the comparison value; for IN conditions it is a slice.
func (c Condition) Value() any { return c.value }

// In reports whether this is an IN condition.
func (c Condition) In() bool { return c.in }

// Order is a single ORDER BY term.
type Order struct {
	field     string
	ascending bool
}

// Field returns the column name.
func (o Order) Field() string { return o.field }

// Ascending reports the sort direction.
func (o Order) Ascending() bool { return o.ascending }

// WithCondition adds a field = value condition.
func WithCondition(field string, value any) Option {
	return func(q Query) Query {
		q.conditions = append(q.conditions, Condition{field: field, value: value})
		return q
	}
}

// WithConditionIn adds a field IN (values) condition.
func WithConditionIn(field string, values any) Option {
	return func(q Query) Query {
		q.conditions = append(q.conditions, Condition{field: field, value: values, in: true})
		return q
	}
}

// WithID filters by the surrogate id column.
func WithID(id int64) Option {
	return WithCondition("id", id)
}

// WithIDIn filters by a set of surrogate ids.
func WithIDIn(ids []int64) Option {
	return WithConditionIn("id", ids)
}

// WithLimit caps the number of results.
func WithLimit(n int) Option {
	return func(q Query) Query {
		q.limit = n
		return q
	}
}

// WithOffset skips the first n results.
func WithOffset(n int) Option {
	return func(q Query) Query {
		q.offset = n
		return q
	}
}

// WithOrderAsc orders ascending on a column.
func WithOrderAsc(field string) Option {
	return func(q Query) Query {
		q.orders = append(q.orders, Order{field: field, ascending: true})
		return q
	}
}

// WithOrderDesc orders descending on a column.
func WithOrderDesc(field string) Option {
	return func(q Query) Query {
		q.orders = append(q.orders, Order{field: field})
		return q
	}
}
