package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type User struct {
	ID   uint
	Name string `gorm:"not null"`
}

func newManager(t *testing.T) *Manager {
	t.Helper()
	gdb, err := Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&User{}))
	m, err := NewManager(Options{Gorm: gdb})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	return m
}

func countUsers(t *testing.T, m *Manager, name string) int64 {
	t.Helper()
	var n int64
	err := m.Session(context.Background(), func(ctx context.Context, tx *gorm.DB) error {
		return tx.Model(&User{}).Where("name = ?", name).Count(&n).Error
	})
	require.NoError(t, err)
	return n
}

func TestNewManagerRequiresEngine(t *testing.T) {
	_, err := NewManager(Options{})
	assert.ErrorIs(t, err, ErrNoEngine)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "")
	assert.EqualError(t, err, "unsupported database driver: oracle")
}

func TestSessionCommit(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	err := m.Session(ctx, func(ctx context.Context, tx *gorm.DB) error {
		return tx.Create(&User{Name: "Test User"}).Error
	}, Commit())
	require.NoError(t, err)
	assert.Equal(t, int64(1), countUsers(t, m, "Test User"))
	assert.Equal(t, 0, m.Open())
}

func TestSessionRollbackOnError(t *testing.T) {
	m := newManager(t)
	boom := errors.New("boom")

	err := m.Session(context.Background(), func(ctx context.Context, tx *gorm.DB) error {
		if err := tx.Create(&User{Name: "Doomed"}).Error; err != nil {
			return err
		}
		return boom
	}, Commit())
	assert.Same(t, boom, err)
	assert.Equal(t, int64(0), countUsers(t, m, "Doomed"))
	assert.Equal(t, 0, m.Open())
}

func TestSessionWithoutCommitRollsBack(t *testing.T) {
	m := newManager(t)
	err := m.Session(context.Background(), func(ctx context.Context, tx *gorm.DB) error {
		return tx.Create(&User{Name: "Draft"}).Error
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), countUsers(t, m, "Draft"))
}

func TestSessionPanic(t *testing.T) {
	m := newManager(t)
	assert.PanicsWithValue(t, "kaboom", func() {
		_ = m.Session(context.Background(), func(ctx context.Context, tx *gorm.DB) error {
			tx.Create(&User{Name: "Panicky"})
			panic("kaboom")
		}, Commit())
	})
	assert.Equal(t, int64(0), countUsers(t, m, "Panicky"))
	assert.Equal(t, 0, m.Open())
}

func TestSessionJoinsAmbient(t *testing.T) {
	m := newManager(t)
	err := m.Session(context.Background(), func(ctx context.Context, outer *gorm.DB) error {
		assert.Equal(t, 1, m.Open())
		return m.Session(ctx, func(ctx context.Context, inner *gorm.DB) error {
			assert.Same(t, outer, inner)
			assert.Equal(t, 1, m.Open())
			return inner.Create(&User{Name: "Nested"}).Error
		}, Commit())
	})
	require.NoError(t, err)
	// внутренний Commit не коммитит внешнюю транзакцию
	assert.Equal(t, int64(0), countUsers(t, m, "Nested"))
}

func TestDecorators(t *testing.T) {
	m := newManager(t)
	create := WithSession(m, func(ctx context.Context, tx *gorm.DB) error {
		return tx.Create(&User{Name: "Decorated"}).Error
	}, Commit())
	require.NoError(t, create(context.Background()))

	count := InSession(m, func(ctx context.Context, tx *gorm.DB) (int64, error) {
		var n int64
		err := tx.Model(&User{}).Count(&n).Error
		return n, err
	})
	n, err := count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	failing := InSession(m, func(ctx context.Context, tx *gorm.DB) (int64, error) {
		return 42, errors.New("nope")
	})
	n, err = failing(context.Background())
	assert.EqualError(t, err, "nope")
	assert.Zero(t, n)
}

func TestConnWithoutPool(t *testing.T) {
	m := newManager(t)
	err := m.Conn(context.Background(), func(ctx context.Context, tx pgx.Tx) error { return nil })
	assert.ErrorIs(t, err, ErrNoPool)
}

func TestClose(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.Close(context.Background()))
	require.NoError(t, m.Close(context.Background()))

	err := m.Session(context.Background(), func(ctx context.Context, tx *gorm.DB) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
}
