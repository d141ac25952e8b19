package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diewo77/go-devis/internal/clock"
	"github.com/diewo77/go-devis/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type backend struct {
	driver     string
	migrations bool
}

func (b backend) String() string {
	if b.migrations {
		return b.driver + "/migrations"
	}
	return b.driver + "/automigrate"
}

// backends lists every driver and schema mode Open supports.
var backends = []backend{
	{DriverSQLite, true},
	{DriverSQLite, false},
	{DriverSQLiteNoCgo, true},
	{DriverSQLiteNoCgo, false},
}

func (b backend) config(dir string) Config {
	return Config{Driver: b.driver, Dir: dir, Name: "quotes_test", Migrations: b.migrations}
}

func openBackend(t *testing.T, b backend) (*Store, *clock.FakeClock) {
	t.Helper()
	clk := clock.NewFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	s := New(b.config(t.TempDir()), zaptest.NewLogger(t), clk)
	require.NoError(t, s.Open(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s, clk
}

func newTestStore(t *testing.T, migrations bool) (*Store, *clock.FakeClock) {
	t.Helper()
	return openBackend(t, backend{DriverSQLite, migrations})
}

// eachBackend runs fn once per supported driver and schema mode.
func eachBackend(t *testing.T, fn func(t *testing.T, b backend)) {
	for _, b := range backends {
		t.Run(b.String(), func(t *testing.T) { fn(t, b) })
	}
}

func sampleQuote(title, client string) models.QuoteRecord {
	return models.QuoteRecord{
		Title:          title,
		ClientName:     client,
		NumberOfGuests: 40,
		Lines: []models.PrestationLine{
			{Description: "Location salle", Quantity: 1, UnitPrice: 1500},
			{Description: "Traiteur", Quantity: 40, UnitPrice: 35.5},
		},
	}
}

func TestOperationsBeforeOpen(t *testing.T) {
	s := New(Config{Dir: t.TempDir()}, zaptest.NewLogger(t), nil)
	ctx := context.Background()

	_, err := s.Create(ctx, sampleQuote("a", "b"))
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	_, err = s.GetAll(ctx)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	_, err = s.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, s.Update(ctx, 1, sampleQuote("a", "b")), ErrStorageUnavailable)
	assert.ErrorIs(t, s.Delete(ctx, 1), ErrStorageUnavailable)
	assert.ErrorIs(t, s.Clear(ctx), ErrStorageUnavailable)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	s := New(Config{Driver: "postgres", Dir: t.TempDir()}, zaptest.NewLogger(t), nil)
	err := s.Open(context.Background())
	require.ErrorIs(t, err, ErrStorageUnavailable)

	_, err = s.GetAll(context.Background())
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestOpenIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t, true)
	require.NoError(t, s.Open(context.Background()))
	require.NoError(t, s.Open(context.Background()))
}

func TestCreateAssignsIncreasingIDs(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		s, clk := openBackend(t, b)
		ctx := context.Background()

		var ids []uint
		for i := 0; i < 3; i++ {
			id, err := s.Create(ctx, sampleQuote("Mariage", "Dupont"))
			require.NoError(t, err)
			ids = append(ids, id)
			clk.Advance(time.Minute)
		}
		assert.Equal(t, []uint{1, 2, 3}, ids)

		env, err := s.Get(ctx, 2)
		require.NoError(t, err)
		rec := env.Record()
		assert.Equal(t, uint(2), rec.ID)
		assert.Equal(t, "Mariage", rec.Title)
		assert.Len(t, rec.Lines, 2)
		assert.True(t, rec.Timestamp.Equal(time.Date(2024, 5, 1, 9, 1, 0, 0, time.UTC)))
		assert.Equal(t, uint(2), env.Data.Data().ID)
	})
}

func TestCreateIgnoresCallerID(t *testing.T) {
	s, _ := newTestStore(t, true)
	ctx := context.Background()

	rec := sampleQuote("Séminaire", "Acme")
	rec.ID = 99
	id, err := s.Create(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, uint(1), id)
}

func TestIDsNotReusedAfterDeleteOrClear(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		s, _ := openBackend(t, b)
		ctx := context.Background()

		id1, err := s.Create(ctx, sampleQuote("a", "x"))
		require.NoError(t, err)
		id2, err := s.Create(ctx, sampleQuote("b", "x"))
		require.NoError(t, err)

		// Deleting the highest row is what lets a plain rowid table reuse it.
		require.NoError(t, s.Delete(ctx, id2))
		id3, err := s.Create(ctx, sampleQuote("c", "x"))
		require.NoError(t, err)
		assert.Greater(t, id3, id2)

		require.NoError(t, s.Clear(ctx))
		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		id4, err := s.Create(ctx, sampleQuote("d", "x"))
		require.NoError(t, err)
		assert.Greater(t, id4, id3)
		assert.NotEqual(t, id1, id4)
	})
}

func TestSchemaUsesAutoincrement(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		s, _ := openBackend(t, b)
		gdb, err := s.conn()
		require.NoError(t, err)

		ok, err := hasAutoincrement(gdb)
		require.NoError(t, err)
		assert.True(t, ok)

		for _, idx := range []string{"idx_quotes_timestamp", "idx_quotes_client_name", "idx_quotes_title"} {
			assert.True(t, gdb.Migrator().HasIndex(&models.Envelope{}, idx), idx)
		}
	})
}

func TestOpenRejectsReusableIDs(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Driver: DriverSQLiteNoCgo, Dir: dir, Name: "legacy"}
	dialector, err := Dialect(cfg)
	require.NoError(t, err)
	legacy, err := gorm.Open(dialector, &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, legacy.Exec(`CREATE TABLE quotes (id INTEGER PRIMARY KEY, "timestamp" DATETIME NOT NULL, client_name TEXT, title TEXT, data JSON NOT NULL)`).Error)
	sqlDB, err := legacy.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	s := New(cfg, zaptest.NewLogger(t), nil)
	err = s.Open(context.Background())
	require.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, ErrReusableIDs)
}

func TestGetMissing(t *testing.T) {
	s, _ := newTestStore(t, true)
	_, err := s.Get(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUpdateOverwritesAndRestamps(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		s, clk := openBackend(t, b)
		ctx := context.Background()

		id, err := s.Create(ctx, sampleQuote("Mariage", "Dupont"))
		require.NoError(t, err)

		clk.Advance(time.Hour)
		rec := sampleQuote("Mariage champêtre", "Dupont")
		rec.Lines = rec.Lines[:1]
		require.NoError(t, s.Update(ctx, id, rec))

		env, err := s.Get(ctx, id)
		require.NoError(t, err)
		got := env.Record()
		assert.Equal(t, "Mariage champêtre", got.Title)
		assert.Len(t, got.Lines, 1)
		assert.True(t, got.Timestamp.Equal(clk.Now()))
		assert.True(t, env.Timestamp.Equal(clk.Now()))

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}

func TestUpdateMissingIDCreates(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		s, _ := openBackend(t, b)
		ctx := context.Background()

		require.NoError(t, s.Update(ctx, 7, sampleQuote("Gala", "Martin")))
		env, err := s.Get(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "Gala", env.Record().Title)

		// The sequence moves past the upserted key.
		id, err := s.Create(ctx, sampleQuote("Après", "Martin"))
		require.NoError(t, err)
		assert.Greater(t, id, uint(7))
	})
}

func TestUpdateRequiresID(t *testing.T) {
	s, _ := newTestStore(t, true)
	err := s.Update(context.Background(), 0, sampleQuote("a", "b"))
	assert.ErrorIs(t, err, ErrWrite)
}

func TestDeleteAbsentIsNoop(t *testing.T) {
	s, _ := newTestStore(t, true)
	ctx := context.Background()

	_, err := s.Create(ctx, sampleQuote("a", "b"))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, 12345))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestGetAllEmptyAndSorted(t *testing.T) {
	s, clk := newTestStore(t, true)
	ctx := context.Background()

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)

	_, err = s.Create(ctx, sampleQuote("first", "a"))
	require.NoError(t, err)
	clk.Advance(time.Second)
	_, err = s.Create(ctx, sampleQuote("second", "b"))
	require.NoError(t, err)

	all, err = s.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	models.SortByRecency(all)
	assert.Equal(t, "second", all[0].Record().Title)
	assert.Equal(t, "first", all[1].Record().Title)
}

func TestFindByClientAndTitle(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		s, clk := openBackend(t, b)
		ctx := context.Background()

		for _, q := range []models.QuoteRecord{
			sampleQuote("Mariage", "Dupont"),
			sampleQuote("Anniversaire", "Durand"),
			sampleQuote("Cocktail", "Dupont"),
		} {
			_, err := s.Create(ctx, q)
			require.NoError(t, err)
			clk.Advance(time.Minute)
		}

		byClient, err := s.FindByClient(ctx, "Dupont")
		require.NoError(t, err)
		require.Len(t, byClient, 2)
		assert.Equal(t, "Cocktail", byClient[0].Record().Title)

		byTitle, err := s.FindByTitle(ctx, "Anniversaire")
		require.NoError(t, err)
		require.Len(t, byTitle, 1)
		assert.Equal(t, "Durand", byTitle[0].Record().ClientName)

		none, err := s.FindByClient(ctx, "Inconnu")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestSchemaVersion(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		s, _ := openBackend(t, b)
		v, err := s.SchemaVersion()
		require.NoError(t, err)
		if b.migrations {
			assert.Equal(t, uint(1), v)
		} else {
			assert.Zero(t, v)
		}
	})
}

func TestReopenKeepsData(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		cfg := b.config(t.TempDir())
		ctx := context.Background()

		s := New(cfg, zaptest.NewLogger(t), nil)
		require.NoError(t, s.Open(ctx))
		id, err := s.Create(ctx, sampleQuote("persist", "me"))
		require.NoError(t, err)
		require.NoError(t, s.Delete(ctx, id))
		id, err = s.Create(ctx, sampleQuote("persist", "me"))
		require.NoError(t, err)
		require.NoError(t, s.Close())

		_, err = s.Get(ctx, id)
		assert.ErrorIs(t, err, ErrStorageUnavailable)

		require.NoError(t, s.Open(ctx))
		defer s.Close()
		env, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "persist", env.Record().Title)

		// The sequence survives a reopen of the same file.
		next, err := s.Create(ctx, sampleQuote("after", "me"))
		require.NoError(t, err)
		assert.Greater(t, next, id)
	})
}
