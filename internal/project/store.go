package project

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY,
	session    TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	data       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS projects_session_updated ON projects (session, updated_at DESC);
CREATE TABLE IF NOT EXISTS images (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	size         INTEGER NOT NULL,
	content_type TEXT NOT NULL,
	url          TEXT NOT NULL,
	filename     TEXT NOT NULL,
	created_at   INTEGER NOT NULL
);`

// Store keeps projects and image records in sqlite, keyed by generated id.
// Projects are stored as JSON documents.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at path and applies the
// schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// a single connection serializes writers and keeps :memory: databases shared
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) CreateProject(ctx context.Context, p *Project) error {
	return s.putProject(ctx, s.db, p, true)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) putProject(ctx context.Context, db execer, p *Project, insert bool) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode project %s: %w", p.ID, err)
	}
	q := `UPDATE projects SET session = ?, updated_at = ?, data = ? WHERE id = ?`
	args := []any{p.Session, p.UpdatedAt.UnixNano(), string(data), p.ID}
	if insert {
		q = `INSERT INTO projects (session, updated_at, data, id) VALUES (?, ?, ?, ?)`
	}
	res, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("store project %s: %w", p.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("project %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	return getProject(ctx, s.db, id)
}

func getProject(ctx context.Context, db execer, id string) (*Project, error) {
	var data string
	err := db.QueryRowContext(ctx, `SELECT data FROM projects WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", id, err)
	}
	return decodeProject(data)
}

func decodeProject(data string) (*Project, error) {
	var p Project
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("decode project: %w", err)
	}
	return &p, nil
}

// ListProjects returns a session's projects, most recently updated first.
func (s *Store) ListProjects(ctx context.Context, session string, limit int) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM projects WHERE session = ? ORDER BY updated_at DESC, id LIMIT ?`, session, limit)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	out := []*Project{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("list projects: %w", err)
		}
		p, err := decodeProject(data)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateProject validates and applies u to the stored project atomically.
func (s *Store) UpdateProject(ctx context.Context, id string, u *Update, now time.Time) (*Project, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update project %s: %w", id, err)
	}
	defer tx.Rollback()

	p, err := getProject(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	u.Apply(p, now)
	if err := s.putProject(ctx, tx, p, false); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update project %s: %w", id, err)
	}
	return p, nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	return deleteByID(ctx, s.db, "projects", id)
}

// DuplicateProject stores a copy of project id for session and returns it.
func (s *Store) DuplicateProject(ctx context.Context, id, session string, now time.Time) (*Project, error) {
	orig, err := s.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	dup := orig.Duplicate(session, now)
	if err := s.CreateProject(ctx, dup); err != nil {
		return nil, err
	}
	return dup, nil
}

func (s *Store) CreateImage(ctx context.Context, img *Image) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO images (id, name, size, content_type, url, filename, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		img.ID, img.Name, img.Size, img.ContentType, img.URL, img.Filename, img.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("store image %s: %w", img.ID, err)
	}
	return nil
}

const imageColumns = `id, name, size, content_type, url, filename, created_at`

func scanImage(row interface{ Scan(...any) error }) (*Image, error) {
	var (
		img     Image
		created int64
	)
	if err := row.Scan(&img.ID, &img.Name, &img.Size, &img.ContentType, &img.URL, &img.Filename, &created); err != nil {
		return nil, err
	}
	img.CreatedAt = time.Unix(0, created).UTC()
	return &img, nil
}

func (s *Store) GetImage(ctx context.Context, id string) (*Image, error) {
	img, err := scanImage(s.db.QueryRowContext(ctx, `SELECT `+imageColumns+` FROM images WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("image %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load image %s: %w", id, err)
	}
	return img, nil
}

// GetImages returns the records for ids in the same order. Unknown ids leave
// a nil entry.
func (s *Store) GetImages(ctx context.Context, ids []string) ([]*Image, error) {
	out := make([]*Image, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rows, err := s.db.QueryContext(ctx, `SELECT `+imageColumns+` FROM images WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("load images: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*Image, len(ids))
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("load images: %w", err)
		}
		byID[img.ID] = img
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load images: %w", err)
	}
	for i, id := range ids {
		out[i] = byID[id]
	}
	return out, nil
}

// ListImages returns the distinct images referenced by a session's projects.
func (s *Store) ListImages(ctx context.Context, session string, limit int) ([]*Image, error) {
	projects, err := s.ListProjects(ctx, session, 50)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var ids []string
	for _, p := range projects {
		for _, id := range p.Images {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	imgs, err := s.GetImages(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := []*Image{}
	for _, img := range imgs {
		if img != nil && len(out) < limit {
			out = append(out, img)
		}
	}
	return out, nil
}

func (s *Store) DeleteImage(ctx context.Context, id string) error {
	return deleteByID(ctx, s.db, "images", id)
}

func deleteByID(ctx context.Context, db execer, table, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", table, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", table, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", strings.TrimSuffix(table, "s"), id, ErrNotFound)
	}
	return nil
}
