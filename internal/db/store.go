// Package db is the local persistence store for quotes: one embedded SQLite
// database holding one collection ("quotes") of envelopes keyed by an
// auto-incremented id.
package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/diewo77/go-devis/internal/clock"
	"github.com/diewo77/go-devis/internal/logger"
	"github.com/diewo77/go-devis/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuoteStore is the contract the quote workflow depends on.
type QuoteStore interface {
	Open(ctx context.Context) error
	Create(ctx context.Context, rec models.QuoteRecord) (uint, error)
	GetAll(ctx context.Context) ([]models.Envelope, error)
	Get(ctx context.Context, id uint) (models.Envelope, error)
	Update(ctx context.Context, id uint, rec models.QuoteRecord) error
	Delete(ctx context.Context, id uint) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
	FindByClient(ctx context.Context, clientName string) ([]models.Envelope, error)
	FindByTitle(ctx context.Context, title string) ([]models.Envelope, error)
}

// Store implements QuoteStore over gorm. The connection is opened once and
// shared by every operation.
type Store struct {
	cfg   Config
	log   *zap.Logger
	clock clock.Clock

	mu sync.RWMutex
	db *gorm.DB
}

var _ QuoteStore = (*Store)(nil)

func New(cfg Config, log *zap.Logger, clk clock.Clock) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Store{cfg: cfg, log: log.With(zap.String("component", "store")), clock: clk}
}

// Open connects to the database and applies the schema. It is idempotent and
// may be retried after a failure. A quotes table that could reuse ids fails
// with ErrReusableIDs.
func (s *Store) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}

	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		s.log.Error("create storage dir", zap.String("dir", s.cfg.Dir), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	dialector, err := Dialect(s.cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.NewGormLogger(s.log, s.cfg.Debug),
		NowFunc: s.clock.Now,
	})
	if err != nil {
		s.log.Error("open database", zap.String("path", s.cfg.Path()), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("%w: ping: %w", ErrStorageUnavailable, err)
	}
	if err := migrateSchema(gdb, s.cfg, s.log); err != nil {
		_ = sqlDB.Close()
		s.log.Error("migrate schema", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	s.db = gdb
	s.log.Info("storage opened", zap.String("path", s.cfg.Path()), zap.String("driver", s.cfg.Driver))
	return nil
}

// Close releases the connection. A later Open reconnects.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	s.db = nil
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) conn() (*gorm.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrStorageUnavailable
	}
	return s.db, nil
}

// view runs fn in a transaction that only reads.
func (s *Store) view(ctx context.Context, fn func(tx *gorm.DB) error) error {
	gdb, err := s.conn()
	if err != nil {
		return err
	}
	return gdb.WithContext(ctx).Transaction(fn)
}

// update runs fn in a read-write transaction; any error rolls it back and is
// reported as ErrWrite.
func (s *Store) update(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	gdb, err := s.conn()
	if err != nil {
		return err
	}
	if err := gdb.WithContext(ctx).Transaction(fn); err != nil {
		s.log.Error("write failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrWrite, op, err)
	}
	return nil
}

// Create stores rec under a new ascending id stamped with the current time.
// Any id already carried by rec is ignored.
func (s *Store) Create(ctx context.Context, rec models.QuoteRecord) (uint, error) {
	env := models.NewEnvelope(0, s.clock.Now(), rec)
	err := s.update(ctx, "create", func(tx *gorm.DB) error {
		if err := tx.Create(&env).Error; err != nil {
			return err
		}
		// Keep the embedded document in step with the assigned key.
		env = models.NewEnvelope(env.ID, env.Timestamp, rec)
		return tx.Model(&models.Envelope{}).Where("id = ?", env.ID).Update("data", env.Data).Error
	})
	if err != nil {
		return 0, err
	}
	s.log.Debug("quote created", zap.Uint("id", env.ID))
	return env.ID, nil
}

// GetAll returns every stored envelope in key order. Callers sort by recency
// with models.SortByRecency when needed.
func (s *Store) GetAll(ctx context.Context) ([]models.Envelope, error) {
	envs := []models.Envelope{}
	err := s.view(ctx, func(tx *gorm.DB) error {
		return tx.Order("id").Find(&envs).Error
	})
	if err != nil {
		return nil, err
	}
	return envs, nil
}

// Get returns the envelope with the given id or ErrNotFound.
func (s *Store) Get(ctx context.Context, id uint) (models.Envelope, error) {
	var env models.Envelope
	err := s.view(ctx, func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).Take(&env).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Envelope{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return models.Envelope{}, err
	}
	return env, nil
}

// Update overwrites the data and timestamp stored under id. When id does not
// exist the envelope is created with that id (upsert).
func (s *Store) Update(ctx context.Context, id uint, rec models.QuoteRecord) error {
	if id == 0 {
		return fmt.Errorf("%w: update: id must be set", ErrWrite)
	}
	env := models.NewEnvelope(id, s.clock.Now(), rec)
	err := s.update(ctx, "update", func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"timestamp", "client_name", "title", "data"}),
		}).Create(&env).Error
	})
	if err != nil {
		return err
	}
	s.log.Debug("quote updated", zap.Uint("id", id))
	return nil
}

// Delete removes the envelope with the given id. Deleting an absent id is not
// an error.
func (s *Store) Delete(ctx context.Context, id uint) error {
	var affected int64
	err := s.update(ctx, "delete", func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&models.Envelope{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return err
	}
	s.log.Debug("quote deleted", zap.Uint("id", id), zap.Int64("rows", affected))
	return nil
}

// Clear removes every envelope. Ids are not recycled afterwards.
func (s *Store) Clear(ctx context.Context) error {
	err := s.update(ctx, "clear", func(tx *gorm.DB) error {
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Envelope{}).Error
	})
	if err != nil {
		return err
	}
	s.log.Info("quotes cleared")
	return nil
}

// Count returns the number of stored envelopes.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.view(ctx, func(tx *gorm.DB) error {
		return tx.Model(&models.Envelope{}).Count(&n).Error
	})
	return n, err
}

// FindByClient returns envelopes whose client name matches exactly, newest first.
func (s *Store) FindByClient(ctx context.Context, clientName string) ([]models.Envelope, error) {
	return s.findBy(ctx, "client_name", clientName)
}

// FindByTitle returns envelopes whose title matches exactly, newest first.
func (s *Store) FindByTitle(ctx context.Context, title string) ([]models.Envelope, error) {
	return s.findBy(ctx, "title", title)
}

func (s *Store) findBy(ctx context.Context, column, value string) ([]models.Envelope, error) {
	envs := []models.Envelope{}
	err := s.view(ctx, func(tx *gorm.DB) error {
		return tx.Where(clause.Eq{Column: clause.Column{Name: column}, Value: value}).
			Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
			Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true}).
			Find(&envs).Error
	})
	if err != nil {
		return nil, err
	}
	return envs, nil
}
