package database

import (
	"database/sql"
	"fmt"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

func ParseDialect(driver string) (Dialect, error) {
	switch Dialect(driver) {
	case Postgres, SQLite:
		return Dialect(driver), nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	return string(d)
}

// LockClause is appended to a SELECT that must hold the row until commit.
// SQLite has no row locks; its write transaction already excludes other writers.
func (d Dialect) LockClause() string {
	if d == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

// WriteTxOptions returns the options for a read-modify-write transaction.
func (d Dialect) WriteTxOptions() TxOptions {
	opts := DefaultTxOptions()
	if d == SQLite {
		opts.IsolationLevel = sql.LevelDefault
	}
	return opts
}
