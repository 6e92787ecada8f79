package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"gorm.io/gorm"
)

// WithSession оборачивает fn: каждый вызов получает свежую сессию gorm.
func WithSession(m *Manager, fn func(ctx context.Context, tx *gorm.DB) error, opts ...ScopeOption) func(context.Context) error {
	opts = append(opts[:len(opts):len(opts)], Fresh())
	return func(ctx context.Context) error {
		return m.Session(ctx, fn, opts...)
	}
}

// InSession — WithSession для функций, возвращающих значение.
func InSession[T any](m *Manager, fn func(ctx context.Context, tx *gorm.DB) (T, error), opts ...ScopeOption) func(context.Context) (T, error) {
	opts = append(opts[:len(opts):len(opts)], Fresh())
	return func(ctx context.Context) (T, error) {
		var out T
		err := m.Session(ctx, func(ctx context.Context, tx *gorm.DB) error {
			var err error
			out, err = fn(ctx, tx)
			return err
		}, opts...)
		if err != nil {
			var zero T
			return zero, err
		}
		return out, nil
	}
}

// WithConn оборачивает fn: каждый вызов получает свежую транзакцию pgx.
func WithConn(m *Manager, fn func(ctx context.Context, tx pgx.Tx) error, opts ...ScopeOption) func(context.Context) error {
	opts = append(opts[:len(opts):len(opts)], Fresh())
	return func(ctx context.Context) error {
		return m.Conn(ctx, fn, opts...)
	}
}
