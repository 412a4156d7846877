package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sqlLogLimit caps the SQL text included in a log record; longer statements
// are elided in the middle.
const sqlLogLimit = 200

// slogGormLogger routes GORM's log output through slog. GORM's own level
// machinery is bypassed: whether a query gets logged is decided by the
// active slog level, so production runs above Debug never pay for SQL
// formatting.
type slogGormLogger struct{}

func (l slogGormLogger) LogMode(logger.LogLevel) logger.Interface { return l }

func (l slogGormLogger) Info(_ context.Context, msg string, args ...any) {
	slog.Info(fmt.Sprintf(msg, args...))
}

func (l slogGormLogger) Warn(_ context.Context, msg string, args ...any) {
	slog.Warn(fmt.Sprintf(msg, args...))
}

func (l slogGormLogger) Error(_ context.Context, msg string, args ...any) {
	slog.Error(fmt.Sprintf(msg, args...))
}

// Trace runs after every SQL operation. ErrRecordNotFound is the ordinary
// "no rows" outcome of lookups by id or date, so it logs at Debug with the
// successful queries rather than as an error.
func (l slogGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		sql, rows := fc()
		slog.Error("gorm query error",
			"sql", elideSQL(sql),
			"rows", rows,
			"duration", elapsed,
			"error", err,
		)
		return
	}

	if !slog.Default().Enabled(ctx, slog.LevelDebug) {
		return
	}

	sql, rows := fc()
	slog.Debug("gorm query",
		"sql", elideSQL(sql),
		"rows", rows,
		"duration", elapsed,
	)
}

func elideSQL(sql string) string {
	if len(sql) <= sqlLogLimit {
		return sql
	}
	half := (sqlLogLimit - 3) / 2
	return sql[:half] + "..." + sql[len(sql)-half:]
}
