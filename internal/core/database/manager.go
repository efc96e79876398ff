package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

var storeConnects = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "store_connect_total", Help: "Connection establishment attempts by result"},
	[]string{"result"},
)

func init() { prometheus.MustRegister(storeConnects) }

var ErrClosed = errors.New("connection manager closed")

// ConnectionError reports that the backing store could not be reached.
type ConnectionError struct {
	Driver string
	Err    error
}

func (e *ConnectionError) Error() string { return "connect " + e.Driver + ": " + e.Err.Error() }
func (e *ConnectionError) Unwrap() error { return e.Err }

// IsConnErr reports whether err means the store is unreachable rather than a
// query-level failure.
func IsConnErr(err error) bool {
	if err == nil {
		return false
	}
	var ce *ConnectionError
	if errors.As(err, &ce) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}

// Dialer opens a ready handle within ctx.
type Dialer func(ctx context.Context, o Opts) (*gorm.DB, error)

// Manager owns the process-wide store handle. It dials lazily on the first
// Acquire, shares one in-flight dial among concurrent callers, never caches a
// failed dial, and drops the handle when the health observer sees it die.
type Manager struct {
	opts Opts
	log  *zap.Logger
	dial Dialer

	// OnConnect 每次建连成功后执行（例如迁移），失败视为建连失败
	OnConnect func(ctx context.Context, db *gorm.DB) error

	mu     sync.RWMutex
	db     *gorm.DB
	closed bool
	sf     singleflight.Group

	observeOnce sync.Once
	observers   atomic.Int32
	stop        chan struct{}
	done        chan struct{}
}

func NewManager(o Opts, l *zap.Logger) *Manager {
	return newManager(o, l, NewGorm)
}

func newManager(o Opts, l *zap.Logger, dial Dialer) *Manager {
	if o.ServerSelectionTimeout <= 0 {
		o.ServerSelectionTimeout = 30 * time.Second
	}
	if o.SocketTimeout <= 0 {
		o.SocketTimeout = 60 * time.Second
	}
	if o.HealthInterval <= 0 {
		o.HealthInterval = 15 * time.Second
	}
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = 10
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &Manager{
		opts: o,
		log:  l.Named("store"),
		dial: dial,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// OpTimeout bounds a single store round trip.
func (m *Manager) OpTimeout() time.Duration { return m.opts.SocketTimeout }

func (m *Manager) Driver() string { return m.opts.Driver }

func (m *Manager) cached() (*gorm.DB, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db, m.closed
}

// Acquire returns the shared handle, establishing it if needed. Giving up on
// ctx does not abort an establishment other callers may be waiting on.
func (m *Manager) Acquire(ctx context.Context) (*gorm.DB, error) {
	db, closed := m.cached()
	if closed {
		return nil, &ConnectionError{Driver: m.opts.Driver, Err: ErrClosed}
	}
	if db != nil {
		return db, nil
	}

	ch := m.sf.DoChan("connect", m.connect)
	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*gorm.DB), nil
	case <-ctx.Done():
		return nil, &ConnectionError{Driver: m.opts.Driver, Err: ctx.Err()}
	}
}

func (m *Manager) connect() (any, error) {
	if db, closed := m.cached(); closed {
		return nil, &ConnectionError{Driver: m.opts.Driver, Err: ErrClosed}
	} else if db != nil {
		return db, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.opts.ServerSelectionTimeout)
	defer cancel()

	start := time.Now()
	db, err := m.establish(ctx)
	if err != nil {
		storeConnects.WithLabelValues("error").Inc()
		m.log.Error("store connect failed",
			zap.String("driver", m.opts.Driver),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, &ConnectionError{Driver: m.opts.Driver, Err: err}
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		closeHandle(db)
		return nil, &ConnectionError{Driver: m.opts.Driver, Err: ErrClosed}
	}
	m.db = db
	m.mu.Unlock()

	storeConnects.WithLabelValues("ok").Inc()
	m.log.Info("store connected",
		zap.String("driver", m.opts.Driver),
		zap.Duration("elapsed", time.Since(start)))

	m.observeOnce.Do(func() {
		m.observers.Add(1)
		go m.observe()
	})
	return db, nil
}

type dialResult struct {
	db  *gorm.DB
	err error
}

// establish dials and runs OnConnect, giving up once ctx expires even if the
// driver ignores ctx. A handle that arrives after that is closed.
func (m *Manager) establish(ctx context.Context) (*gorm.DB, error) {
	ch := make(chan dialResult, 1)
	go func() {
		db, err := m.dial(ctx, m.opts)
		if err == nil && m.OnConnect != nil {
			if err = m.OnConnect(ctx, db); err != nil {
				closeHandle(db)
				db = nil
			}
		}
		ch <- dialResult{db: db, err: err}
	}()
	select {
	case r := <-ch:
		return r.db, r.err
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.db != nil {
				closeHandle(r.db)
			}
		}()
		return nil, ctx.Err()
	}
}

// observe pings the current handle and forgets it once it stops answering,
// so the next Acquire dials again.
func (m *Manager) observe() {
	defer close(m.done)
	t := time.NewTicker(m.opts.HealthInterval)
	defer t.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-t.C:
		}
		db, _ := m.cached()
		if db == nil {
			continue
		}
		if err := m.ping(db); err != nil {
			m.log.Warn("store disconnected", zap.String("driver", m.opts.Driver), zap.Error(err))
			m.drop(db)
		}
	}
}

func (m *Manager) ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.opts.ServerSelectionTimeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// drop forgets db if it is still the current handle.
func (m *Manager) drop(db *gorm.DB) {
	m.mu.Lock()
	if m.db != db {
		m.mu.Unlock()
		return
	}
	m.db = nil
	m.mu.Unlock()
	closeHandle(db)
}

// Ping acquires the handle and round-trips it (used by /health).
func (m *Manager) Ping(ctx context.Context) error {
	db, err := m.Acquire(ctx)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close stops the observer and closes the pool. Later Acquire calls fail.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	db := m.db
	m.db = nil
	m.mu.Unlock()

	close(m.stop)
	m.observeOnce.Do(func() {}) // 未启动则不再启动
	if m.observers.Load() > 0 {
		<-m.done
	}
	if db != nil {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

func closeHandle(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
