package db

import (
	"fmt"
	"path/filepath"

	puresqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	DriverSQLite      = "sqlite"
	DriverSQLiteNoCgo = "sqlite-nocgo"
)

// Config describes where the quote database lives.
type Config struct {
	Driver     string
	Dir        string
	Name       string
	Migrations bool
	Debug      bool
}

// Path returns the database file location.
func (c Config) Path() string {
	name := c.Name
	if name == "" {
		name = "LDRQuotesDB"
	}
	return filepath.Join(c.Dir, name+".db")
}

// Dialect picks the gorm dialector for the configured engine.
func Dialect(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", DriverSQLite:
		return sqlite.Open(fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", cfg.Path())), nil
	case DriverSQLiteNoCgo:
		return puresqlite.Open(fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.Path())), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
