package config

import (
	"fmt"
	"strings"
)

type DatabaseDriver string

const (
	DriverSQLite   DatabaseDriver = "sqlite"
	DriverPostgres DatabaseDriver = "postgres"
)

type Database struct {
	Driver DatabaseDriver
	DSN    string
}

// ParseDatabaseURL maps DATABASE_URL onto a driver and the DSN that driver expects.
// sqlite://path and sqlite:path select SQLite; postgres:// URLs and libpq key=value
// strings select Postgres.
func ParseDatabaseURL(raw string) (Database, error) {
	s := strings.TrimSpace(raw)
	lower := strings.ToLower(s)
	switch {
	case s == "":
		return Database{}, fmt.Errorf("DATABASE_URL is empty")
	case strings.HasPrefix(lower, "sqlite://"):
		return sqliteDatabase(s[len("sqlite://"):], raw)
	case strings.HasPrefix(lower, "sqlite:"):
		return sqliteDatabase(s[len("sqlite:"):], raw)
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return Database{Driver: DriverPostgres, DSN: s}, nil
	case strings.Contains(s, "=") && !strings.Contains(s, "://"):
		return Database{Driver: DriverPostgres, DSN: s}, nil
	default:
		return Database{}, fmt.Errorf("DATABASE_URL %q: unsupported scheme", raw)
	}
}

func sqliteDatabase(path, raw string) (Database, error) {
	if path == "" {
		return Database{}, fmt.Errorf("DATABASE_URL %q: missing sqlite path", raw)
	}
	return Database{Driver: DriverSQLite, DSN: path}, nil
}

func (c Config) Database() Database {
	db, _ := ParseDatabaseURL(c.DatabaseURL)
	return db
}
