package database

import (
	"fmt"

	"github.com/murmurlabs/murmur/domain/repository"
	"gorm.io/gorm"
)

// ApplyOptions translates repository options into GORM clauses: WHERE
// conditions, ordering, limit, and offset.
func ApplyOptions(db *gorm.DB, options ...repository.Option) *gorm.DB {
	q := repository.Build(options...)
	db = applyConditions(db, q)

	for _, ord := range q.Orders() {
		dir := "ASC"
		if !ord.Ascending() {
			dir = "DESC"
		}
		db = db.Order(fmt.Sprintf("%s %s", ord.Field(), dir))
	}

	if q.LimitValue() > 0 {
		db = db.Limit(q.LimitValue())
	}
	if q.OffsetValue() > 0 {
		db = db.Offset(q.OffsetValue())
	}

	return db
}

// ApplyConditions translates only the WHERE conditions, for COUNT queries
// where ordering and limits are meaningless.
func ApplyConditions(db *gorm.DB, options ...repository.Option) *gorm.DB {
	return applyConditions(db, repository.Build(options...))
}

func applyConditions(db *gorm.DB, q repository.Query) *gorm.DB {
	for _, cond := range q.Conditions() {
		op := "="
		if cond.In() {
			op = "IN"
		}
		db = db.Where(fmt.Sprintf("%s %s ?", cond.Field(), op), cond.Value())
	}
	return db
}
