package migrations

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"sort"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/logger"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed postgres/*.sql
var postgresMigrations embed.FS

//go:embed clickhouse/*.sql
var clickhouseMigrations embed.FS

// Direction selects which way the postgres schema is moved
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	sub, err := fs.Sub(postgresMigrations, "postgres")
	if err != nil {
		return nil, err
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, err
	}
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return nil, err
	}
	return migrate.NewWithInstance("iofs", source, "postgres", driver)
}

// RunPostgres applies (or reverts) the embedded postgres migrations.
// The shared *sql.DB is left open.
func RunPostgres(db *sql.DB, direction Direction, log *logger.Logger) error {
	if db == nil {
		return ierr.NewError("migration database handle is required").Mark(ierr.ErrSystem)
	}

	m, err := newMigrator(db)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to prepare postgres migrations").
			Mark(ierr.ErrDatabase)
	}

	switch direction {
	case Down:
		err = m.Down()
	default:
		err = m.Up()
	}
	if err != nil && !ierr.Is(err, migrate.ErrNoChange) {
		return ierr.WithError(err).
			WithHintf("Failed to apply postgres migrations (%s)", direction).
			Mark(ierr.ErrDatabase)
	}

	version, dirty, verr := m.Version()
	if verr != nil && !ierr.Is(verr, migrate.ErrNilVersion) {
		return ierr.WithError(verr).Mark(ierr.ErrDatabase)
	}
	log.Infow("postgres migrations applied",
		"direction", direction,
		"version", version,
		"dirty", dirty,
		"no_change", ierr.Is(err, migrate.ErrNoChange),
	)
	return nil
}

// ClickHouseStatements returns the embedded ClickHouse DDL in file order
func ClickHouseStatements() ([]string, error) {
	entries, err := fs.ReadDir(clickhouseMigrations, "clickhouse")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	statements := make([]string, 0, len(names))
	for _, name := range names {
		body, err := fs.ReadFile(clickhouseMigrations, "clickhouse/"+name)
		if err != nil {
			return nil, err
		}
		if stmt := strings.TrimSpace(string(body)); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements, nil
}

// RunClickHouse executes the ClickHouse DDL. Every statement is idempotent.
func RunClickHouse(ctx context.Context, conn driver.Conn, log *logger.Logger) error {
	statements, err := ClickHouseStatements()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to read clickhouse migrations").
			Mark(ierr.ErrSystem)
	}
	for i, stmt := range statements {
		if err := conn.Exec(ctx, stmt); err != nil {
			return ierr.WithError(err).
				WithHintf("Failed to apply clickhouse migration %d", i+1).
				Mark(ierr.ErrDatabase)
		}
	}
	log.Infow("clickhouse migrations applied", "statements", len(statements))
	return nil
}
