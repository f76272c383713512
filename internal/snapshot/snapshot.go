// Package snapshot copies the library's text files into a SQLite database so
// reporting tools can query them with SQL. The text files stay authoritative;
// every export replaces the previous snapshot's rows.
package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"ebook-library/library"

	_ "github.com/mattn/go-sqlite3"
)

// Counts reports how many rows an export wrote per table.
type Counts struct {
	Users        int
	Books        int
	Reservations int
}

// Exporter writes library snapshots into one SQLite database.
type Exporter struct {
	db     *sql.DB
	logger *slog.Logger

	insertUserStmt        *sql.Stmt
	insertBookStmt        *sql.Stmt
	insertReservationStmt *sql.Stmt
}

// Open opens (or creates) the SQLite database at dbPath, applies schema
// migrations, and prepares the insert statements.
func Open(dbPath string, logger *slog.Logger) (*Exporter, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	e := &Exporter{db: db, logger: logger.With("db", dbPath)}
	if err := e.prepareStatements(); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

// Close releases prepared statements and closes the DB.
func (e *Exporter) Close() error {
	for _, st := range []*sql.Stmt{e.insertUserStmt, e.insertBookStmt, e.insertReservationStmt} {
		if st != nil {
			st.Close()
		}
	}
	return e.db.Close()
}

// DB exposes the connection for read-side queries.
func (e *Exporter) DB() *sql.DB { return e.db }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Passwords are deliberately not part of the snapshot. Reservations keep
	// book_id without a foreign key because the book may have been deleted.
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            username TEXT PRIMARY KEY COLLATE NOCASE,
            role TEXT NOT NULL CHECK (role IN ('ADMIN','MEMBER'))
        );`,
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            genre TEXT NOT NULL,
            released_date TEXT NOT NULL,
            filename TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS reservations (
            id INTEGER PRIMARY KEY,
            book_id INTEGER NOT NULL,
            username TEXT NOT NULL COLLATE NOCASE,
            reservation_date TEXT NOT NULL,
            status TEXT NOT NULL,
            start_date TEXT NOT NULL,
            end_date TEXT NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_username ON reservations(username);`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_status ON reservations(status);`,
		`CREATE VIEW IF NOT EXISTS reservation_details AS
            SELECT r.id, r.username, r.status, r.start_date, r.end_date,
                   r.book_id, COALESCE(b.title, 'N/A') AS book_title
            FROM reservations r LEFT JOIN books b ON b.id = r.book_id;`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (e *Exporter) prepareStatements() error {
	var err error
	if e.insertUserStmt, err = e.db.Prepare(`INSERT INTO users(username,role) VALUES(?,?)`); err != nil {
		return err
	}
	if e.insertBookStmt, err = e.db.Prepare(`INSERT INTO books(id,title,author,genre,released_date,filename) VALUES(?,?,?,?,?,?)`); err != nil {
		return err
	}
	if e.insertReservationStmt, err = e.db.Prepare(`INSERT INTO reservations(id,book_id,username,reservation_date,status,start_date,end_date) VALUES(?,?,?,?,?,?,?)`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Export
// ---------------------------------------------------------------------------

// Write replaces the snapshot with d in one transaction.
func (e *Exporter) Write(ctx context.Context, d library.Dump) (Counts, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return Counts{}, err
	}
	defer tx.Rollback()

	for _, table := range []string{"reservations", "books", "users"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return Counts{}, fmt.Errorf("clear %s: %w", table, err)
		}
	}

	var c Counts
	users := tx.StmtContext(ctx, e.insertUserStmt)
	for _, u := range d.Users {
		if _, err := users.ExecContext(ctx, u.Username, string(u.Role)); err != nil {
			return Counts{}, fmt.Errorf("insert user %q: %w", u.Username, err)
		}
		c.Users++
	}
	books := tx.StmtContext(ctx, e.insertBookStmt)
	for _, b := range d.Books {
		if _, err := books.ExecContext(ctx, b.ID, b.Title, b.Author, b.Genre,
			library.FormatDate(b.ReleasedDate), b.Filename); err != nil {
			return Counts{}, fmt.Errorf("insert book %d: %w", b.ID, err)
		}
		c.Books++
	}
	reservations := tx.StmtContext(ctx, e.insertReservationStmt)
	for _, r := range d.Reservations {
		if _, err := reservations.ExecContext(ctx, r.ID, r.BookID, r.Username,
			library.FormatDateTime(r.ReservationDate), string(r.Status),
			library.FormatDate(r.StartDate), library.FormatDate(r.EndDate)); err != nil {
			return Counts{}, fmt.Errorf("insert reservation %d: %w", r.ID, err)
		}
		c.Reservations++
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO meta(key,value) VALUES('exported_at',datetime('now'))
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`); err != nil {
		return Counts{}, err
	}
	if err := tx.Commit(); err != nil {
		return Counts{}, err
	}
	e.logger.Info("snapshot written", "users", c.Users, "books", c.Books, "reservations", c.Reservations)
	return c, nil
}

// Export opens dbPath, writes d and closes the database again.
func Export(ctx context.Context, dbPath string, d library.Dump, logger *slog.Logger) (Counts, error) {
	e, err := Open(dbPath, logger)
	if err != nil {
		return Counts{}, err
	}
	defer e.Close()
	return e.Write(ctx, d)
}
