// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Operation names recorded in the history.
const (
	OpExtract     = "submit-docx"
	OpConvertXML  = "convert-xml"
	OpConvertDocx = "convert-docx"
	OpJSONToXML   = "json-to-xml-file"
	OpRender      = "generate-docx"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// Entry is one processed request.
type Entry struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"request_id"`
	Operation  string    `json:"operation"`
	Filename   string    `json:"filename"`
	Status     int       `json:"status"`
	Detail     string    `json:"detail,omitempty"`
	BytesIn    int64     `json:"bytes_in"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// HistoryStore records processed requests in SQLite
type HistoryStore struct {
	db *sql.DB
}

// OpenHistory opens (or creates) the history database at dbPath
func OpenHistory(dbPath string) (*HistoryStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite serialises writers
	db.SetMaxOpenConns(1)

	store := &HistoryStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// initSchema creates the activity table if it doesn't exist
func (s *HistoryStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS activity (
		id TEXT PRIMARY KEY,
		request_id TEXT,
		operation TEXT NOT NULL,
		filename TEXT,
		status INTEGER NOT NULL,
		detail TEXT,
		bytes_in INTEGER DEFAULT 0,
		duration_ms INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_activity_created_at ON activity(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_activity_operation ON activity(operation);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends an entry. Missing ID and CreatedAt are filled in.
func (s *HistoryStore) Record(ctx context.Context, e Entry) error {
	if e.Operation == "" {
		return fmt.Errorf("history entry needs an operation")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity (id, request_id, operation, filename, status, detail, bytes_in, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RequestID, e.Operation, e.Filename, e.Status, e.Detail, e.BytesIn, e.DurationMs, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

// ClampLimit maps a requested page size into 1..MaxHistoryLimit, with
// DefaultHistoryLimit for zero or negative values.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return limit
	}
}

// Recent returns the newest entries first. An empty operation matches all.
func (s *HistoryStore) Recent(ctx context.Context, limit int, operation string) ([]Entry, error) {
	query := "SELECT id, request_id, operation, filename, status, detail, bytes_in, duration_ms, created_at FROM activity"
	var args []interface{}
	if operation != "" {
		query += " WHERE operation = ?"
		args = append(args, operation)
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, ClampLimit(limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var requestID, filename, detail sql.NullString
		if err := rows.Scan(&e.ID, &requestID, &e.Operation, &filename, &e.Status, &detail, &e.BytesIn, &e.DurationMs, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		e.RequestID = requestID.String
		e.Filename = filename.String
		e.Detail = detail.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
