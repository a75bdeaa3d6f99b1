package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Settings describes one MySQL endpoint.
type Settings struct {
	User string
	Pass string
	Host string
	Port string
	Name string
}

// DSN renders the driver configuration. parseTime maps DATETIME to
// time.Time and loc=UTC keeps every instant in UTC.
func (s Settings) DSN() string {
	auth := s.User
	if s.Pass != "" {
		auth = fmt.Sprintf("%s:%s", s.User, s.Pass)
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, s.Host, s.Port, s.Name)
}

// Open connects to MySQL and verifies the connection.
func Open(ctx context.Context, s Settings) (*sql.DB, error) {
	db, err := sql.Open("mysql", s.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ErrNotConnected is returned by Connection.DB before Connect succeeded or
// after Close.
var ErrNotConnected = errors.New("database not connected")

// Connection owns the process's database handle. main creates one, calls
// Connect during startup and Close during shutdown; nothing else holds a
// package-level "connected" flag.
type Connection struct {
	settings Settings
	retries  int
	backoff  time.Duration

	mu sync.RWMutex
	db *sql.DB
}

// NewConnection prepares a connection that will try up to retries times.
func NewConnection(s Settings, retries int, backoff time.Duration) *Connection {
	if retries < 1 {
		retries = 1
	}
	return &Connection{settings: s, retries: retries, backoff: backoff}
}

// Connect opens the pool, retrying while the database is still starting.
// Calling Connect on an open connection is a no-op.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return nil
	}
	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		db, err := Open(ctx, c.settings)
		if err == nil {
			c.db = db
			return nil
		}
		lastErr = err
		if attempt == c.retries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff):
		}
	}
	return fmt.Errorf("connect to %s after %d attempts: %w", c.settings.Host, c.retries, lastErr)
}

// DB returns the open pool.
func (c *Connection) DB() (*sql.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return nil, ErrNotConnected
	}
	return c.db, nil
}

// Ready pings the pool.
func (c *Connection) Ready(ctx context.Context) error {
	db, err := c.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Close releases the pool. It is safe to call more than once.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}
