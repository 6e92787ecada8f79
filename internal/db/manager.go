// Package db управляет сессиями gorm и транзакциями pgx: выдаёт их
// в ограниченную область, коммитит по запросу и всегда освобождает.
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var (
	ErrNoEngine = errors.New("session manager requires a gorm engine or a pgx pool")
	ErrNoGorm   = errors.New("session manager has no gorm engine")
	ErrNoPool   = errors.New("session manager has no pgx pool")
	ErrClosed   = errors.New("session manager is closed")
)

type Options struct {
	Gorm   *gorm.DB
	Pool   *pgxpool.Pool
	Logger *slog.Logger
	Tracer trace.Tracer
}

// Manager создаётся явно и передаётся вниз по коду; открытые области учитываются в leases.
type Manager struct {
	gorm   *gorm.DB
	pool   *pgxpool.Pool
	log    *slog.Logger
	tracer trace.Tracer

	mu     sync.Mutex
	leases map[uint64]*lease
	nextID uint64
	closed bool
}

type lease struct {
	kind     string
	rollback func(context.Context) error
}

func NewManager(opts Options) (*Manager, error) {
	if opts.Gorm == nil && opts.Pool == nil {
		return nil, ErrNoEngine
	}
	m := &Manager{
		gorm:   opts.Gorm,
		pool:   opts.Pool,
		log:    opts.Logger,
		tracer: opts.Tracer,
		leases: make(map[uint64]*lease),
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	if m.tracer == nil {
		m.tracer = otel.Tracer("adminkit/db")
	}
	return m, nil
}

func (m *Manager) Gorm() *gorm.DB { return m.gorm }

func (m *Manager) Pool() *pgxpool.Pool { return m.pool }

type scope struct {
	commit bool
	fresh  bool
}

type ScopeOption func(*scope)

// Commit — закоммитить при нормальном выходе из области.
func Commit() ScopeOption { return func(s *scope) { s.commit = true } }

// Fresh — всегда открывать новую транзакцию, не присоединяясь к внешней.
func Fresh() ScopeOption { return func(s *scope) { s.fresh = true } }

type gormKey struct{}

type pgxKey struct{}

// SessionFrom возвращает транзакцию gorm текущей области.
func SessionFrom(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(gormKey{}).(*gorm.DB)
	return tx, ok
}

// TxFrom возвращает транзакцию pgx текущей области.
func TxFrom(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(pgxKey{}).(pgx.Tx)
	return tx, ok
}

// Session выполняет fn в транзакции gorm. Если в ctx уже есть транзакция,
// fn работает в ней, а коммит и откат остаются за внешней областью.
func (m *Manager) Session(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error, opts ...ScopeOption) error {
	if m.gorm == nil {
		return ErrNoGorm
	}
	sc := newScope(opts)
	if tx, ok := SessionFrom(ctx); ok && !sc.fresh {
		return fn(ctx, tx)
	}
	var tx *gorm.DB
	begin := func(ctx context.Context) (*handle, error) {
		tx = m.gorm.WithContext(ctx).Begin()
		if tx.Error != nil {
			return nil, tx.Error
		}
		return &handle{
			commit:   func(context.Context) error { return tx.Commit().Error },
			rollback: func(context.Context) error { return tx.Rollback().Error },
		}, nil
	}
	return m.scoped(ctx, "session", sc, begin, func(ctx context.Context) error {
		return fn(context.WithValue(ctx, gormKey{}, tx), tx)
	})
}

// Conn выполняет fn в транзакции на соединении из пула pgx.
func (m *Manager) Conn(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error, opts ...ScopeOption) error {
	if m.pool == nil {
		return ErrNoPool
	}
	sc := newScope(opts)
	if tx, ok := TxFrom(ctx); ok && !sc.fresh {
		return fn(ctx, tx)
	}
	var tx pgx.Tx
	begin := func(ctx context.Context) (*handle, error) {
		conn, err := m.pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		if tx, err = conn.Begin(ctx); err != nil {
			conn.Release()
			return nil, err
		}
		return &handle{
			commit:   tx.Commit,
			rollback: tx.Rollback,
			release:  conn.Release,
		}, nil
	}
	return m.scoped(ctx, "conn", sc, begin, func(ctx context.Context) error {
		return fn(context.WithValue(ctx, pgxKey{}, tx), tx)
	})
}

func newScope(opts []ScopeOption) scope {
	var sc scope
	for _, o := range opts {
		o(&sc)
	}
	return sc
}

type handle struct {
	commit   func(context.Context) error
	rollback func(context.Context) error
	release  func()
}

// scoped — общая дисциплина областей: откат при ошибке и панике,
// коммит только по запросу, освобождение всегда.
func (m *Manager) scoped(ctx context.Context, kind string, sc scope, begin func(context.Context) (*handle, error), body func(context.Context) error) (err error) {
	ctx, span := m.tracer.Start(ctx, "db."+kind, trace.WithAttributes(
		attribute.Bool("commit", sc.commit),
		attribute.Bool("fresh", sc.fresh),
	))
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}()

	if m.isClosed() {
		return ErrClosed
	}
	h, err := begin(ctx)
	if err != nil {
		return fmt.Errorf("begin %s: %w", kind, err)
	}
	id, err := m.acquire(kind, h.rollback)
	if err != nil {
		m.finish(ctx, kind, h)
		return err
	}
	defer m.releaseLease(id)

	defer func() {
		if r := recover(); r != nil {
			m.finish(context.WithoutCancel(ctx), kind, h)
			panic(r)
		}
	}()

	if err := body(ctx); err != nil {
		m.finish(context.WithoutCancel(ctx), kind, h)
		return err
	}
	if !sc.commit {
		m.finish(ctx, kind, h)
		return nil
	}
	if err := h.commit(ctx); err != nil {
		m.finish(context.WithoutCancel(ctx), kind, h)
		return fmt.Errorf("commit %s: %w", kind, err)
	}
	if h.release != nil {
		h.release()
	}
	return nil
}

// finish откатывает и освобождает; ошибку отката только логируем,
// наружу уходит исходная ошибка области.
func (m *Manager) finish(ctx context.Context, kind string, h *handle) {
	if err := h.rollback(ctx); err != nil && !errors.Is(err, gorm.ErrInvalidTransaction) && !errors.Is(err, pgx.ErrTxClosed) {
		m.log.DebugContext(ctx, "rollback failed", "kind", kind, "error", err)
	}
	if h.release != nil {
		h.release()
	}
}

func (m *Manager) acquire(kind string, rollback func(context.Context) error) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	m.nextID++
	m.leases[m.nextID] = &lease{kind: kind, rollback: rollback}
	return m.nextID, nil
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Manager) releaseLease(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.leases, id)
}

// Open — число открытых областей.
func (m *Manager) Open() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.leases)
}

// Close откатывает незавершённые области и закрывает движки.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	leftovers := make([]*lease, 0, len(m.leases))
	for id, l := range m.leases {
		leftovers = append(leftovers, l)
		delete(m.leases, id)
	}
	m.mu.Unlock()

	for _, l := range leftovers {
		if err := l.rollback(ctx); err != nil {
			m.log.WarnContext(ctx, "rollback of open scope failed", "kind", l.kind, "error", err)
		}
	}
	var errs []error
	if m.gorm != nil {
		sqlDB, err := m.gorm.DB()
		if err == nil {
			err = sqlDB.Close()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("close gorm: %w", err))
		}
	}
	if m.pool != nil {
		m.pool.Close()
	}
	return errors.Join(errs...)
}
