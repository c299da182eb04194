// Package sqlite implements the catalog on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/plutodesk/plutodesk/internal/domain/catalog"
)

// Catalog implements catalog.Catalog on SQLite.
type Catalog struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps writers from racing into SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	logger.Debug("catalog database opened", "path", path)
	return &Catalog{db: db, logger: logger}, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// DefaultUser returns the local user's id, creating the user on first use.
func (c *Catalog) DefaultUser(ctx context.Context) (uuid.UUID, error) {
	var id uuid.UUID
	err := c.db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE email = ?`, catalog.DefaultUserEmail,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("query default user: %w", err)
	}

	id = uuid.New()
	now := formatTime(time.Now())
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, catalog.DefaultUserEmail, catalog.DefaultUserName, now, now,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create default user: %w", err)
	}
	c.logger.Info("created default user", "user_id", id)
	return id, nil
}

// FindOrCreateFolder returns the folder named name under userID, creating it if needed.
func (c *Catalog) FindOrCreateFolder(ctx context.Context, userID uuid.UUID, name string) (catalog.Entry, error) {
	return c.findOrCreate(ctx, level{table: "folders", parentColumn: "user_id", parentTable: "users", kind: "folder"}, userID, name)
}

// FindOrCreateCourse returns the course named name under folderID, creating it if needed.
func (c *Catalog) FindOrCreateCourse(ctx context.Context, folderID uuid.UUID, name string) (catalog.Entry, error) {
	return c.findOrCreate(ctx, level{table: "courses", parentColumn: "folder_id", parentTable: "folders", kind: "course"}, folderID, name)
}

// FindOrCreateSet returns the set named name under courseID, creating it if needed.
func (c *Catalog) FindOrCreateSet(ctx context.Context, courseID uuid.UUID, name string) (catalog.Entry, error) {
	return c.findOrCreate(ctx, level{table: "sets", parentColumn: "course_id", parentTable: "courses", kind: "set"}, courseID, name)
}

// Folder returns the folder with the given id.
func (c *Catalog) Folder(ctx context.Context, id uuid.UUID) (catalog.Entry, error) {
	return c.get(ctx, level{table: "folders", parentColumn: "user_id", kind: "folder"}, id)
}

// Course returns the course with the given id.
func (c *Catalog) Course(ctx context.Context, id uuid.UUID) (catalog.Entry, error) {
	return c.get(ctx, level{table: "courses", parentColumn: "folder_id", kind: "course"}, id)
}

// Set returns the set with the given id.
func (c *Catalog) Set(ctx context.Context, id uuid.UUID) (catalog.Entry, error) {
	return c.get(ctx, level{table: "sets", parentColumn: "course_id", kind: "set"}, id)
}

// CreateProblem files a new problem under setID with zeroed practice stats.
func (c *Catalog) CreateProblem(ctx context.Context, setID uuid.UUID, title, imagePath string) (catalog.Problem, error) {
	if _, err := c.Set(ctx, setID); err != nil {
		return catalog.Problem{}, err
	}

	now := time.Now().UTC().Round(0)
	p := catalog.Problem{
		ID:        uuid.New(),
		SetID:     setID,
		Title:     title,
		ImagePath: imagePath,
		CreatedAt: now,
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO problems (id, set_id, title, image_path, confidence_level, attempt_count, success_rate, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, 0, 0, ?, ?)`,
		p.ID, p.SetID, p.Title, p.ImagePath, formatTime(now), formatTime(now),
	)
	if err != nil {
		return catalog.Problem{}, fmt.Errorf("insert problem: %w", err)
	}
	return p, nil
}

// ProblemsBySet lists problems under setID, oldest first.
func (c *Catalog) ProblemsBySet(ctx context.Context, setID uuid.UUID) ([]catalog.Problem, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, set_id, title, image_path, confidence_level, attempt_count, created_at
		FROM problems
		WHERE set_id = ?
		ORDER BY created_at, rowid`, setID)
	if err != nil {
		return nil, fmt.Errorf("query problems: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := []catalog.Problem{}
	for rows.Next() {
		var p catalog.Problem
		var created string
		if err := rows.Scan(&p.ID, &p.SetID, &p.Title, &p.ImagePath, &p.ConfidenceLevel, &p.AttemptCount, &created); err != nil {
			return nil, fmt.Errorf("scan problem: %w", err)
		}
		if p.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// level describes one tier of the folder > course > set hierarchy.
type level struct {
	table        string
	parentColumn string
	parentTable  string
	kind         string
}

// findOrCreate looks up name under parentID and inserts it with the next
// sort order when missing. Runs in a transaction so concurrent callers agree.
func (c *Catalog) findOrCreate(ctx context.Context, l level, parentID uuid.UUID, name string) (catalog.Entry, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return catalog.Entry{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	e := catalog.Entry{ParentID: parentID, Name: name}
	err = tx.QueryRowContext(ctx,
		`SELECT id, sort_order FROM `+l.table+` WHERE `+l.parentColumn+` = ? AND name = ?`,
		parentID, name,
	).Scan(&e.ID, &e.SortOrder)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return catalog.Entry{}, fmt.Errorf("query %s: %w", l.kind, err)
	}

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM `+l.parentTable+` WHERE id = ?`, parentID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Entry{}, fmt.Errorf("%w: parent of %s %q (%s)", catalog.ErrNotFound, l.kind, name, parentID)
	}
	if err != nil {
		return catalog.Entry{}, fmt.Errorf("query parent of %s: %w", l.kind, err)
	}

	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sort_order) + 1, 0) FROM `+l.table+` WHERE `+l.parentColumn+` = ?`,
		parentID,
	).Scan(&e.SortOrder); err != nil {
		return catalog.Entry{}, fmt.Errorf("next %s sort order: %w", l.kind, err)
	}

	e.ID = uuid.New()
	now := formatTime(time.Now())
	_, err = tx.ExecContext(ctx,
		`INSERT INTO `+l.table+` (id, `+l.parentColumn+`, name, sort_order, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, parentID, name, e.SortOrder, now, now,
	)
	if err != nil {
		return catalog.Entry{}, fmt.Errorf("insert %s: %w", l.kind, err)
	}
	if err := tx.Commit(); err != nil {
		return catalog.Entry{}, fmt.Errorf("commit %s: %w", l.kind, err)
	}

	c.logger.Debug("created catalog entry", "kind", l.kind, "id", e.ID, "name", name)
	return e, nil
}

func (c *Catalog) get(ctx context.Context, l level, id uuid.UUID) (catalog.Entry, error) {
	e := catalog.Entry{ID: id}
	err := c.db.QueryRowContext(ctx,
		`SELECT `+l.parentColumn+`, name, sort_order FROM `+l.table+` WHERE id = ?`, id,
	).Scan(&e.ParentID, &e.Name, &e.SortOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Entry{}, fmt.Errorf("%w: %s with id %s", catalog.ErrNotFound, l.kind, id)
	}
	if err != nil {
		return catalog.Entry{}, fmt.Errorf("query %s: %w", l.kind, err)
	}
	return e, nil
}

// timeLayout is fixed width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// Compile-time interface verification.
var _ catalog.Catalog = (*Catalog)(nil)
