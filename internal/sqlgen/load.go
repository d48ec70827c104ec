package sqlgen

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	// registered drivers: "postgres" and "sqlite"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Open connects with one of the registered drivers.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case "postgres", "sqlite":
	default:
		return nil, errors.Errorf("unsupported driver %q (want postgres or sqlite)", driver)
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "connect %s", driver)
	}
	return db, nil
}

// Apply runs every statement of script inside one transaction and rolls back on
// the first failure. It returns the number of statements executed.
func Apply(ctx context.Context, db *sqlx.DB, script string, log logrus.FieldLogger) (int, error) {
	stmts := SplitStatements(script)
	if len(stmts) == 0 {
		return 0, errors.New("script has no statements")
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin")
	}
	for i, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				log.WithError(rerr).Error("rollback failed")
			}
			return 0, errors.Wrapf(err, "statement %d/%d (%s)", i+1, len(stmts), head(stmt))
		}
		if (i+1)%10 == 0 {
			log.WithField("done", fmt.Sprintf("%d/%d", i+1, len(stmts))).Info("applying")
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit")
	}
	return len(stmts), nil
}

func head(stmt string) string {
	r := []rune(stmt)
	if len(r) > 60 {
		return string(r[:60]) + "..."
	}
	return string(r)
}
