package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // register sqlite3 as database/sql driver

	"jobassist/internal/shared/telemetry"
)

// Options controls database pool and connectivity behavior.
type Options struct {
	MaxOpenConns int
	BusyTimeout  time.Duration
	PingTimeout  time.Duration
}

var openDB = sql.Open

// DefaultOptions returns defaults for the single-writer local session database.
func DefaultOptions() Options {
	return Options{
		MaxOpenConns: 1,
		BusyTimeout:  5 * time.Second,
		PingTimeout:  5 * time.Second,
	}
}

// OptionsFromEnv overrides defaults with SESSION_DB_* env vars if present.
func OptionsFromEnv(defaults Options) Options {
	opts := defaults
	if raw := strings.TrimSpace(os.Getenv("SESSION_DB_MAX_OPEN_CONNS")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			opts.MaxOpenConns = v
		}
	}
	if raw := strings.TrimSpace(os.Getenv("SESSION_DB_BUSY_TIMEOUT")); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil {
			opts.BusyTimeout = v
		}
	}
	return opts
}

// Connect opens the SQLite file at path, creating its directory, and verifies connectivity.
func Connect(ctx context.Context, path string, opts Options) (*sql.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("session database path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := openDB("sqlite3", dsn(path, opts))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 1
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)

	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	telemetry.Info("db.open", map[string]any{"path": path, "max_open": opts.MaxOpenConns})
	return db, nil
}

func dsn(path string, opts Options) string {
	params := []string{"_foreign_keys=on", "_journal_mode=WAL"}
	if opts.BusyTimeout > 0 {
		params = append(params, fmt.Sprintf("_busy_timeout=%d", opts.BusyTimeout.Milliseconds()))
	}
	return "file:" + path + "?" + strings.Join(params, "&")
}
