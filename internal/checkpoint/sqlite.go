package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/crawlcore/internal/model"
)

// SQLiteStore keeps the checkpoint in a SQLite database file.
//
// Every Save builds a complete database in a temporary file and renames it
// into place. The live file is only ever opened read-only.
type SQLiteStore struct {
	// path is the checkpoint database file.
	path string
}

// NewSQLiteStore creates a store for the database file at path.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// Path returns the checkpoint file location.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Save writes snap to a fresh database and atomically replaces the checkpoint.
func (s *SQLiteStore) Save(ctx context.Context, snap *model.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	return writeAtomic(s.path, func(tmpPath string) error {
		return writeSnapshot(ctx, tmpPath, snap)
	})
}

// Load reads the checkpoint database.
func (s *SQLiteStore) Load(ctx context.Context) (*model.Snapshot, error) {
	if err := exists(s.path); err != nil {
		return nil, err
	}

	db, err := openDB("file:" + s.path + "?mode=ro")
	if err != nil {
		return nil, err
	}
	defer db.Close()

	snap, err := readSnapshot(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint %s: %w", s.path, err)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

func openDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// createTables creates the checkpoint schema.
func createTables(ctx context.Context, tx *sql.Tx) error {
	schema := `
	-- Snapshot metadata: version, created_at, pages_processed
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	-- Canonical URLs discovered as link targets
	CREATE TABLE IF NOT EXISTS unique_pages (
		url TEXT PRIMARY KEY
	);

	-- Discovery counters per monitored subdomain
	CREATE TABLE IF NOT EXISTS subdomains (
		host_key TEXT PRIMARY KEY,
		count INTEGER NOT NULL
	);

	-- Global word frequencies
	CREATE TABLE IF NOT EXISTS word_freq (
		word TEXT PRIMARY KEY,
		count INTEGER NOT NULL
	);

	-- The single longest page record
	CREATE TABLE IF NOT EXISTS longest_page (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		url TEXT NOT NULL,
		token_count INTEGER NOT NULL
	);
	`

	_, err := tx.ExecContext(ctx, schema)
	return err
}

func writeSnapshot(ctx context.Context, path string, snap *model.Snapshot) (err error) {
	db, err := openDB(path + "?mode=rwc")
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close database: %w", cerr)
		}
	}()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = createTables(ctx, tx); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	meta := map[string]string{
		"version":         strconv.Itoa(snap.Version),
		"created_at":      snap.CreatedAt.UTC().Format(time.RFC3339Nano),
		"pages_processed": strconv.FormatInt(snap.PagesProcessed, 10),
	}
	for k, v := range meta {
		if _, err = tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("failed to write metadata: %w", err)
		}
	}

	if err = insertPages(ctx, tx, snap.UniquePages); err != nil {
		return fmt.Errorf("failed to write unique pages: %w", err)
	}

	if err = insertCounts(ctx, tx, `INSERT INTO subdomains (host_key, count) VALUES (?, ?)`, snap.Subdomains); err != nil {
		return fmt.Errorf("failed to write subdomains: %w", err)
	}

	if err = insertCounts(ctx, tx, `INSERT INTO word_freq (word, count) VALUES (?, ?)`, snap.WordFrequency); err != nil {
		return fmt.Errorf("failed to write word frequencies: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO longest_page (id, url, token_count) VALUES (1, ?, ?)`,
		snap.LongestPage.URL, snap.LongestPage.TokenCount,
	); err != nil {
		return fmt.Errorf("failed to write longest page: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkpoint: %w", err)
	}
	return nil
}

func insertPages(ctx context.Context, tx *sql.Tx, pages []string) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO unique_pages (url) VALUES (?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range pages {
		if _, err := stmt.ExecContext(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

func insertCounts(ctx context.Context, tx *sql.Tx, query string, counts map[string]int) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for k, n := range counts {
		if _, err := stmt.ExecContext(ctx, k, n); err != nil {
			return err
		}
	}
	return nil
}

func readSnapshot(ctx context.Context, db *sql.DB) (*model.Snapshot, error) {
	snap := &model.Snapshot{
		UniquePages:   make([]string, 0),
		Subdomains:    make(map[string]int),
		WordFrequency: make(map[string]int),
	}

	if err := readMeta(ctx, db, snap); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT url FROM unique_pages ORDER BY url`)
	if err != nil {
		return nil, fmt.Errorf("failed to query unique pages: %w", err)
	}
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan unique page: %w", err)
		}
		snap.UniquePages = append(snap.UniquePages, u)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	if err := readCounts(ctx, db, `SELECT host_key, count FROM subdomains`, snap.Subdomains); err != nil {
		return nil, fmt.Errorf("failed to read subdomains: %w", err)
	}
	if err := readCounts(ctx, db, `SELECT word, count FROM word_freq`, snap.WordFrequency); err != nil {
		return nil, fmt.Errorf("failed to read word frequencies: %w", err)
	}

	err = db.QueryRowContext(ctx, `SELECT url, token_count FROM longest_page WHERE id = 1`).
		Scan(&snap.LongestPage.URL, &snap.LongestPage.TokenCount)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to read longest page: %w", err)
	}

	return snap, nil
}

func readMeta(ctx context.Context, db *sql.DB, snap *model.Snapshot) error {
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return fmt.Errorf("failed to query metadata: %w", err)
	}

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan metadata: %w", err)
		}
		switch key {
		case "version":
			snap.Version, _ = strconv.Atoi(value)
		case "created_at":
			snap.CreatedAt = parseTimestamp(value)
		case "pages_processed":
			snap.PagesProcessed, _ = strconv.ParseInt(value, 10, 64)
		}
	}
	return closeRows(rows)
}

func readCounts(ctx context.Context, db *sql.DB, query string, dst map[string]int) error {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			_ = rows.Close()
			return err
		}
		dst[k] = n
	}
	return closeRows(rows)
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	return rows.Close()
}

// timestampFormats contains the timestamp formats a checkpoint may carry.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,      // Format written by Save
	time.RFC3339,          // Full RFC3339 format
	"2006-01-02 15:04:05", // SQLite default datetime format
	"2006-01-02T15:04:05", // ISO 8601 without timezone
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
