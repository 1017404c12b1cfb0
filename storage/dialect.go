package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/Keranthos/softeng-platform/internal/config"
	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect adapts the tools to one database driver. It is chosen once, when
// the store is opened.
type Dialect interface {
	// Name is one of the config.Driver* constants.
	Name() string
	DriverName() string
	// Rebind rewrites "?" placeholders into the driver's native form.
	Rebind(query string) string
	ColumnExists(ctx context.Context, q Querier, table, column string) (bool, error)
	IndexExists(ctx context.Context, q Querier, table, index string) (bool, error)
	// setup runs once on the fresh connection.
	setup(ctx context.Context, db *sql.DB) error
}

// DialectFor returns the dialect and DSN for the configured driver.
func DialectFor(cfg *config.Config) (Dialect, string, error) {
	db := cfg.Database
	switch db.Driver {
	case config.DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = db.User
		mc.Passwd = db.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(db.Host, strconv.Itoa(db.Port))
		mc.DBName = db.Name
		mc.ParseTime = true
		mc.Collation = "utf8mb4_unicode_ci"
		mc.Params = map[string]string{"charset": "utf8mb4"}
		return MySQL(), mc.FormatDSN(), nil
	case config.DriverSQLite:
		return SQLite("sqlite"), db.Path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", nil
	case config.DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(db.User, db.Password),
			Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
			Path:   "/" + db.Name,
		}
		return Postgres(), u.String(), nil
	}
	return nil, "", fmt.Errorf("unsupported database driver %q", db.Driver)
}

type mysqlDialect struct{}

// MySQL is the production dialect of the platform database.
func MySQL() Dialect { return mysqlDialect{} }

func (mysqlDialect) Name() string               { return config.DriverMySQL }
func (mysqlDialect) DriverName() string         { return "mysql" }
func (mysqlDialect) Rebind(query string) string { return query }

func (mysqlDialect) ColumnExists(ctx context.Context, q Querier, table, column string) (bool, error) {
	return countPositive(ctx, q, `
		SELECT COUNT(*) FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND COLUMN_NAME = ?`, table, column)
}

func (mysqlDialect) IndexExists(ctx context.Context, q Querier, table, index string) (bool, error) {
	return countPositive(ctx, q, `
		SELECT COUNT(*) FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND INDEX_NAME = ?`, table, index)
}

func (mysqlDialect) setup(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, "SET NAMES utf8mb4 COLLATE utf8mb4_unicode_ci")
	return err
}

type sqliteDialect struct {
	driver string
}

// SQLite returns the SQLite dialect for the given registered driver name
// ("sqlite" for modernc.org/sqlite, "sqlite3" for mattn/go-sqlite3).
func SQLite(driver string) Dialect { return sqliteDialect{driver: driver} }

func (sqliteDialect) Name() string               { return config.DriverSQLite }
func (d sqliteDialect) DriverName() string       { return d.driver }
func (sqliteDialect) Rebind(query string) string { return query }

func (sqliteDialect) ColumnExists(ctx context.Context, q Querier, table, column string) (bool, error) {
	return countPositive(ctx, q, "SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column)
}

func (sqliteDialect) IndexExists(ctx context.Context, q Querier, table, index string) (bool, error) {
	return countPositive(ctx, q, "SELECT COUNT(*) FROM pragma_index_list(?) WHERE name = ?", table, index)
}

func (sqliteDialect) setup(context.Context, *sql.DB) error { return nil }

type postgresDialect struct{}

func Postgres() Dialect { return postgresDialect{} }

func (postgresDialect) Name() string       { return config.DriverPostgres }
func (postgresDialect) DriverName() string { return "pgx" }

// Rebind numbers placeholders outside single-quoted literals.
func (postgresDialect) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	quoted := false
	for _, r := range query {
		switch {
		case r == '\'':
			quoted = !quoted
			b.WriteRune(r)
		case r == '?' && !quoted:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (postgresDialect) ColumnExists(ctx context.Context, q Querier, table, column string) (bool, error) {
	return countPositive(ctx, q, `
		SELECT COUNT(*) FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = ? AND column_name = ?`, table, column)
}

func (postgresDialect) IndexExists(ctx context.Context, q Querier, table, index string) (bool, error) {
	return countPositive(ctx, q, `
		SELECT COUNT(*) FROM pg_indexes
		WHERE schemaname = current_schema() AND tablename = ? AND indexname = ?`, table, index)
}

func (postgresDialect) setup(context.Context, *sql.DB) error { return nil }

func countPositive(ctx context.Context, q Querier, query string, args ...any) (bool, error) {
	var n int
	if err := q.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// ErrInvalidIdentifier is returned for table or column names that cannot be
// interpolated into SQL safely.
var ErrInvalidIdentifier = errors.New("invalid SQL identifier")

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// CheckIdent validates names that end up in SQL text rather than in
// placeholders.
func CheckIdent(names ...string) error {
	for _, name := range names {
		if !identPattern.MatchString(name) {
			return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
		}
	}
	return nil
}
