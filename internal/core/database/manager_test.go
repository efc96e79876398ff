package database

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func sqliteOpts() Opts {
	return Opts{
		Driver:                 "sqlite",
		DSN:                    "file::memory:",
		MaxOpenConns:           1,
		MaxIdleConns:           1,
		ServerSelectionTimeout: 2 * time.Second,
		HealthInterval:         time.Hour,
		LogLevel:               "silent",
	}
}

type countingDialer struct {
	calls atomic.Int32
	fail  atomic.Bool
	gate  chan struct{}
}

func (d *countingDialer) dial(ctx context.Context, o Opts) (*gorm.DB, error) {
	d.calls.Add(1)
	if d.gate != nil {
		<-d.gate
	}
	if d.fail.Load() {
		return nil, errors.New("connection refused")
	}
	return NewGorm(ctx, o)
}

func TestManager_ConcurrentAcquireDialsOnce(t *testing.T) {
	d := &countingDialer{gate: make(chan struct{})}
	m := newManager(sqliteOpts(), nil, d.dial)
	defer m.Close()

	const n = 16
	var wg sync.WaitGroup
	handles := make([]*gorm.DB, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i], errs[i] = m.Acquire(context.Background())
		}(i)
	}
	// let every caller pile up on the in-flight dial
	require.Eventually(t, func() bool { return d.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(d.gate)
	wg.Wait()

	assert.EqualValues(t, 1, d.calls.Load())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, handles[0], handles[i])
	}

	again, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.Same(t, handles[0], again)
	assert.EqualValues(t, 1, d.calls.Load())
}

func TestManager_FailedDialIsNotCached(t *testing.T) {
	d := &countingDialer{}
	d.fail.Store(true)
	m := newManager(sqliteOpts(), nil, d.dial)
	defer m.Close()

	_, err := m.Acquire(context.Background())
	var ce *ConnectionError
	require.ErrorAs(t, err, &ce)
	assert.True(t, IsConnErr(err))
	assert.EqualValues(t, 0, m.observers.Load())

	d.fail.Store(false)
	db, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, db)
	assert.EqualValues(t, 2, d.calls.Load())
}

func TestManager_OnConnectFailureIsConnectionError(t *testing.T) {
	d := &countingDialer{}
	m := newManager(sqliteOpts(), nil, d.dial)
	defer m.Close()
	m.OnConnect = func(context.Context, *gorm.DB) error { return errors.New("migrate failed") }

	_, err := m.Acquire(context.Background())
	assert.True(t, IsConnErr(err))
	db, _ := m.cached()
	assert.Nil(t, db)
}

func TestManager_CallerContextCancelled(t *testing.T) {
	d := &countingDialer{gate: make(chan struct{})}
	m := newManager(sqliteOpts(), nil, d.dial)
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := m.Acquire(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// the abandoned dial still completes for later callers
	close(d.gate)
	db, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, db)
	assert.EqualValues(t, 1, d.calls.Load())
}

func TestManager_ReconnectsAfterDropWithSingleObserver(t *testing.T) {
	o := sqliteOpts()
	o.HealthInterval = 10 * time.Millisecond
	d := &countingDialer{}
	m := newManager(o, nil, d.dial)
	defer m.Close()

	first, err := m.Acquire(context.Background())
	require.NoError(t, err)

	// kill the pool underneath the manager; the observer must notice
	sqlDB, err := first.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	require.Eventually(t, func() bool {
		db, _ := m.cached()
		return db == nil
	}, 2*time.Second, 5*time.Millisecond)

	second, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.EqualValues(t, 2, d.calls.Load())
	assert.EqualValues(t, 1, m.observers.Load())
}

func TestManager_AcquireAfterClose(t *testing.T) {
	m := newManager(sqliteOpts(), nil, (&countingDialer{}).dial)
	_, err := m.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	_, err = m.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestManager_Defaults(t *testing.T) {
	m := newManager(Opts{Driver: "sqlite"}, nil, NewGorm)
	assert.Equal(t, 60*time.Second, m.OpTimeout())
	assert.Equal(t, "sqlite", m.Driver())
}

func TestIsConnErr(t *testing.T) {
	assert.False(t, IsConnErr(nil))
	assert.False(t, IsConnErr(gorm.ErrRecordNotFound))
	assert.True(t, IsConnErr(context.DeadlineExceeded))
	assert.True(t, IsConnErr(&ConnectionError{Driver: "x", Err: errors.New("boom")}))
}

// silentListener accepts TCP connections and never answers.
func silentListener(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return ln.Addr().String()
}

func TestManager_SilentServerFailsWithinSelectionTimeout(t *testing.T) {
	addr := silentListener(t)
	o := sqliteOpts()
	o.Driver = "postgres"
	o.DSN = "postgres://dogs:x@" + addr + "/dogs?sslmode=disable"
	o.ServerSelectionTimeout = 300 * time.Millisecond
	m := NewManager(o, nil)
	defer m.Close()

	start := time.Now()
	_, err := m.Acquire(context.Background())
	require.Error(t, err)
	assert.True(t, IsConnErr(err))
	assert.Less(t, time.Since(start), 3*time.Second)

	// the failed flight is not shared with the next caller
	start = time.Now()
	_, err = m.Acquire(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestManager_DialIgnoringContextIsBounded(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	var calls atomic.Int32
	stuck := func(ctx context.Context, o Opts) (*gorm.DB, error) {
		calls.Add(1)
		<-block
		return nil, errors.New("too late")
	}
	o := sqliteOpts()
	o.ServerSelectionTimeout = 100 * time.Millisecond
	m := newManager(o, nil, stuck)
	defer m.Close()

	for range 2 {
		start := time.Now()
		_, err := m.Acquire(context.Background())
		var ce *ConnectionError
		require.ErrorAs(t, err, &ce)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 2*time.Second)
	}
	assert.EqualValues(t, 2, calls.Load())
}
