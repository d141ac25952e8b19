package db

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/go-devis/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const createQuotesScript = "migrations/000001_create_quotes.up.sql"

// migrateSchema brings the quotes collection up to date. With Migrations set the
// versioned SQL files are applied through golang-migrate; otherwise the table is
// created from the first migration and gorm's AutoMigrate reconciles it with
// models.Envelope. Either way the id column must end up AUTOINCREMENT.
func migrateSchema(gdb *gorm.DB, cfg Config, log *zap.Logger) error {
	var err error
	if cfg.Migrations {
		err = migrateVersioned(gdb, cfg, log)
	} else {
		err = autoMigrate(gdb, log)
	}
	if err != nil {
		return err
	}
	ok, err := hasAutoincrement(gdb)
	if err != nil {
		return err
	}
	if !ok {
		return ErrReusableIDs
	}
	return nil
}

// autoMigrate never lets a dialector create the table itself: the pure-Go
// driver's migrator emits a bare INTEGER PRIMARY KEY.
func autoMigrate(gdb *gorm.DB, log *zap.Logger) error {
	if !gdb.Migrator().HasTable(&models.Envelope{}) {
		if err := execScript(gdb, createQuotesScript); err != nil {
			return err
		}
		log.Debug("quotes table created", zap.String("script", createQuotesScript))
	}
	if err := gdb.AutoMigrate(&models.Envelope{}); err != nil {
		return fmt.Errorf("automigrate %T: %w", &models.Envelope{}, err)
	}
	log.Debug("schema auto-migrated")
	return nil
}

// execScript runs an embedded SQL file one statement at a time.
func execScript(gdb *gorm.DB, name string) error {
	body, err := migrationFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	for _, stmt := range strings.Split(string(body), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if err := gdb.Exec(stmt).Error; err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func hasAutoincrement(gdb *gorm.DB) (bool, error) {
	var ddl string
	err := gdb.Raw("SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", models.Envelope{}.TableName()).
		Scan(&ddl).Error
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToUpper(ddl), "AUTOINCREMENT"), nil
}

func migrateVersioned(gdb *gorm.DB, cfg Config, log *zap.Logger) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	drv, err := sqlite3.WithInstance(sqlDB, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	// m.Close would close the shared *sql.DB, so only the source is released.
	defer src.Close()

	m, err := migrate.NewWithInstance("iofs", src, cfg.Path(), drv)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty", version)
	}
	log.Debug("schema migrated", zap.Uint("version", version))
	return nil
}

// SchemaVersion reports the applied migration version, 0 when none.
func (s *Store) SchemaVersion() (uint, error) {
	gdb, err := s.conn()
	if err != nil {
		return 0, err
	}
	if !gdb.Migrator().HasTable("schema_migrations") {
		return 0, nil
	}
	var version uint
	if err := gdb.Raw("SELECT version FROM schema_migrations LIMIT 1").Scan(&version).Error; err != nil {
		return 0, err
	}
	return version, nil
}
