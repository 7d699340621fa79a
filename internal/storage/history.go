// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/simbo1905/mcp-switchboard/internal/apperr"
	"github.com/simbo1905/mcp-switchboard/internal/logging"
	"github.com/simbo1905/mcp-switchboard/internal/stream"
)

// observeTimeout bounds the write made from a stream observer.
const observeTimeout = 5 * time.Second

// Entry is one recorded session.
type Entry struct {
	ID        string
	Model     string
	StartedAt time.Time
	EndedAt   time.Time
	Outcome   string
	Chunks    int
	Chars     int
	ErrorKind string
	Error     string
}

// Duration returns the wall time of the session.
func (e Entry) Duration() time.Duration {
	return e.EndedAt.Sub(e.StartedAt)
}

// Stats aggregates the history.
type Stats struct {
	Sessions   int
	ByOutcome  map[string]int
	TotalChars int64
	Last       time.Time
}

// History is the SQLite session log. It is safe for concurrent use.
type History struct {
	db   *sql.DB
	path string
	log  logrus.FieldLogger
}

// OpenHistory opens (creating if needed) the database at path.
func OpenHistory(path string, log logrus.FieldLogger) (*History, error) {
	const op = "open history"

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, apperr.New(apperr.ConfigDirectoryUnavailable, op, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperr.New(apperr.StorageIO, op, err)
	}

	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, apperr.New(apperr.StorageIO, op, fmt.Errorf("%s: %w", p, err))
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, apperr.New(apperr.StorageIO, op, fmt.Errorf("failed to create schema: %w", err))
	}
	if _, err := db.Exec(
		`INSERT INTO metadata (key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		strconv.Itoa(SchemaVersion),
	); err != nil {
		db.Close()
		return nil, apperr.New(apperr.StorageIO, op, err)
	}

	if err := os.Chmod(path, 0600); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Component(log, "history").WithError(err).Warn("Could not restrict history file permissions")
	}

	return &History{
		db:   db,
		path: path,
		log:  logging.Component(log, "history"),
	}, nil
}

// Path returns the database path.
func (h *History) Path() string {
	return h.path
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}

// Record stores a session summary. Recording the same id twice replaces
// the earlier row.
func (h *History) Record(ctx context.Context, sum stream.Summary) error {
	errorKind := ""
	if sum.Outcome == stream.OutcomeError {
		errorKind = sum.ErrorKind.String()
	}

	_, err := h.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions
		 (id, model, started_at, ended_at, outcome, chunks, chars, error_kind, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.ID, sum.Model, sum.Started.UnixMilli(), sum.Ended.UnixMilli(),
		string(sum.Outcome), sum.Chunks, sum.Chars, errorKind, sum.Error,
	)
	if err != nil {
		return apperr.New(apperr.StorageIO, "record session", err)
	}
	return nil
}

// Observe records sum and logs failures. Its signature matches
// stream.WithObserver.
func (h *History) Observe(sum stream.Summary) {
	ctx, cancel := context.WithTimeout(context.Background(), observeTimeout)
	defer cancel()

	if err := h.Record(ctx, sum); err != nil {
		h.log.WithError(err).WithField("session_id", sum.ID).Warn("Failed to record session")
	}
}

// Recent returns up to limit sessions, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := h.db.QueryContext(ctx,
		`SELECT id, model, started_at, ended_at, outcome, chunks, chars, error_kind, error
		 FROM sessions ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, apperr.New(apperr.StorageIO, "list sessions", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var started, ended int64
		if err := rows.Scan(&e.ID, &e.Model, &started, &ended, &e.Outcome, &e.Chunks, &e.Chars, &e.ErrorKind, &e.Error); err != nil {
			return nil, apperr.New(apperr.StorageIO, "list sessions", err)
		}
		e.StartedAt = time.UnixMilli(started)
		e.EndedAt = time.UnixMilli(ended)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.New(apperr.StorageIO, "list sessions", err)
	}
	return entries, nil
}

// Stats returns aggregate counts over the whole history.
func (h *History) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{ByOutcome: make(map[string]int)}

	rows, err := h.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM sessions GROUP BY outcome`)
	if err != nil {
		return stats, apperr.New(apperr.StorageIO, "session stats", err)
	}
	defer rows.Close()

	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return stats, apperr.New(apperr.StorageIO, "session stats", err)
		}
		stats.ByOutcome[outcome] = n
		stats.Sessions += n
	}
	if err := rows.Err(); err != nil {
		return stats, apperr.New(apperr.StorageIO, "session stats", err)
	}

	var last sql.NullInt64
	if err := h.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(chars), 0), MAX(started_at) FROM sessions`,
	).Scan(&stats.TotalChars, &last); err != nil {
		return stats, apperr.New(apperr.StorageIO, "session stats", err)
	}
	if last.Valid {
		stats.Last = time.UnixMilli(last.Int64)
	}
	return stats, nil
}

// Clear deletes every recorded session.
func (h *History) Clear(ctx context.Context) error {
	if _, err := h.db.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return apperr.New(apperr.StorageIO, "clear history", err)
	}
	h.log.Info("Session history cleared")
	return nil
}
