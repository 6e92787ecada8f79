package pg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer — то, на чём можно выполнить DDL: *pgxpool.Pool, *pgx.Conn.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// коды "объект уже есть": duplicate_object, duplicate_table
var alreadyExists = map[string]bool{
	"42710": true,
	"42P07": true,
}

// ApplyDDL выполняет операторы по порядку. Ожидается idempotent DDL
// (create ... if not exists); повторное добавление ограничений пропускается.
func ApplyDDL(ctx context.Context, db Execer, stmts []string, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	for _, stmt := range stmts {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(ctx, stmt); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && alreadyExists[pgErr.Code] {
				log.InfoContext(ctx, "DDL skipped (already exists)",
					"code", pgErr.Code,
					"object", firstNonEmpty(pgErr.ConstraintName, pgErr.TableName),
					"message", strings.TrimSpace(pgErr.Message))
				continue
			}
			return fmt.Errorf("DDL apply failed: %w", err)
		}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
