package storage

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	// Database drivers. The driver name selects one at runtime.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"mercator-hq/custodian/pkg/retention"
)

const (
	driverMattn   = "sqlite3"
	driverModernc = "sqlite"
	driverPgx     = "pgx"

	backendSQLite   = "sqlite"
	backendPostgres = "postgres"
)

func init() {
	// sqlx only knows the mattn driver name for sqlite.
	sqlx.BindDriver(driverModernc, sqlx.QUESTION)
}

// dialect captures the differences between the supported databases.
type dialect struct {
	driver     string
	backend    string
	migrations string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "", driverMattn:
		return dialect{driver: driverMattn, backend: backendSQLite, migrations: "migrations/sqlite"}, nil
	case driverModernc:
		return dialect{driver: driverModernc, backend: backendSQLite, migrations: "migrations/sqlite"}, nil
	case driverPgx, "postgres":
		return dialect{driver: driverPgx, backend: backendPostgres, migrations: "migrations/postgres"}, nil
	}
	return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
}

// dsn builds the connection string. SQLite pragmas are passed in the DSN so
// that every pooled connection gets them.
func (d dialect) dsn(cfg *Config) string {
	if d.backend == backendPostgres {
		return cfg.DSN
	}

	path, query, _ := strings.Cut(cfg.DSN, "?")
	params, err := url.ParseQuery(query)
	if err != nil {
		params = url.Values{}
	}
	busy := cfg.BusyTimeout.Milliseconds()

	switch d.driver {
	case driverModernc:
		params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy))
		params.Add("_pragma", "foreign_keys(1)")
		if cfg.WALMode {
			params.Add("_pragma", "journal_mode(WAL)")
		}
	default:
		params.Set("_busy_timeout", fmt.Sprint(busy))
		params.Set("_foreign_keys", "on")
		if cfg.WALMode {
			params.Set("_journal_mode", "WAL")
		}
	}
	return path + "?" + params.Encode()
}

// dateArg encodes a calendar day for comparison with expire_date, which is
// DATE in postgres and TEXT in sqlite.
func (d dialect) dateArg(t time.Time) any {
	day := retention.TruncateDate(t)
	if d.backend == backendPostgres {
		return day
	}
	return retention.FormatDate(day)
}
