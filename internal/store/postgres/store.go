// Package postgres provides Postgres-backed persistence for bookmark records
// and category grants.
//
// Expected schema:
//
//	CREATE TABLE bookmarks (
//	    id          BIGSERIAL PRIMARY KEY,
//	    url         TEXT NOT NULL,
//	    user_id     TEXT NOT NULL,
//	    category_id BIGINT NOT NULL DEFAULT 0,
//	    title       TEXT NOT NULL DEFAULT '',
//	    description TEXT NOT NULL DEFAULT '',
//	    type        TEXT NOT NULL DEFAULT 'bookmark',
//	    meta_data   JSONB NOT NULL DEFAULT '{}'::jsonb,
//	    trash       BOOLEAN NOT NULL DEFAULT FALSE,
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//	CREATE INDEX bookmarks_dup_idx ON bookmarks (url, category_id) WHERE NOT trash;
//
//	CREATE TABLE categories (
//	    id      BIGSERIAL PRIMARY KEY,
//	    user_id TEXT NOT NULL
//	);
//
//	CREATE TABLE collaborations (
//	    category_id BIGINT NOT NULL REFERENCES categories (id),
//	    email       TEXT NOT NULL,
//	    edit_access BOOLEAN NOT NULL DEFAULT FALSE,
//	    PRIMARY KEY (category_id, email)
//	);
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/linkhoard/linkhoard/internal/bookmarks"
)

// DB is the subset of pgxpool.Pool the store needs. pgxmock satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists bookmark records in Postgres.
type Store struct {
	db DB
}

// NewStore wraps an existing connection pool.
func NewStore(db DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &Store{db: db}, nil
}

// Insert writes a new bookmark row and returns it with the generated id and
// creation timestamp filled in.
func (s *Store) Insert(ctx context.Context, rec bookmarks.Record) (bookmarks.Record, error) {
	if rec.URL == "" {
		return bookmarks.Record{}, fmt.Errorf("record url is required")
	}
	if rec.UserID == "" {
		return bookmarks.Record{}, fmt.Errorf("record user id is required")
	}
	metaJSON, err := json.Marshal(rec.MetaData)
	if err != nil {
		return bookmarks.Record{}, fmt.Errorf("marshal meta_data: %w", err)
	}

	row := s.db.QueryRow(ctx, `
INSERT INTO bookmarks (url, user_id, category_id, title, description, type, meta_data, trash)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at`,
		rec.URL, rec.UserID, rec.CategoryID, rec.Title, rec.Description, string(rec.Type), metaJSON, rec.Trash)
	if err := row.Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return bookmarks.Record{}, fmt.Errorf("insert bookmark: %w", err)
	}
	return rec, nil
}

// Get loads a bookmark row by id.
func (s *Store) Get(ctx context.Context, id int64) (bookmarks.Record, error) {
	var (
		rec      bookmarks.Record
		typ      string
		metaJSON []byte
	)
	row := s.db.QueryRow(ctx, `
SELECT id, url, user_id, category_id, title, description, type, meta_data, trash, created_at
FROM bookmarks
WHERE id = $1`, id)
	err := row.Scan(&rec.ID, &rec.URL, &rec.UserID, &rec.CategoryID, &rec.Title,
		&rec.Description, &typ, &metaJSON, &rec.Trash, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return bookmarks.Record{}, bookmarks.ErrNotFound
	}
	if err != nil {
		return bookmarks.Record{}, fmt.Errorf("select bookmark %d: %w", id, err)
	}
	rec.Type = bookmarks.Type(typ)
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &rec.MetaData); err != nil {
			return bookmarks.Record{}, fmt.Errorf("unmarshal meta_data for bookmark %d: %w", id, err)
		}
	}
	return rec, nil
}

// DuplicateExists reports whether a non-trashed bookmark with the same URL
// already lives in the category.
func (s *Store) DuplicateExists(ctx context.Context, url string, categoryID int64) (bool, error) {
	var exists bool
	row := s.db.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1 FROM bookmarks
	WHERE url = $1 AND category_id = $2 AND NOT trash
)`, url, categoryID)
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("check duplicate: %w", err)
	}
	return exists, nil
}

// SetScreenshot records the screenshot URL inside meta_data.
func (s *Store) SetScreenshot(ctx context.Context, id int64, screenshotURL string) error {
	tag, err := s.db.Exec(ctx, `
UPDATE bookmarks
SET meta_data = jsonb_set(meta_data, '{screenshot}', to_jsonb($2::text), true)
WHERE id = $1`, id, screenshotURL)
	if err != nil {
		return fmt.Errorf("set screenshot for bookmark %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return bookmarks.ErrNotFound
	}
	return nil
}

// ApplyVisualPatch overwrites the visual metadata fields. Running the patch
// again after a redelivery converges on the same row state.
func (s *Store) ApplyVisualPatch(ctx context.Context, id int64, patch bookmarks.VisualPatch) error {
	tag, err := s.db.Exec(ctx, `
UPDATE bookmarks
SET meta_data = meta_data || jsonb_build_object(
	'favIcon', $2::text,
	'ogImgBlurUrl', $3::text,
	'width', $4::int,
	'height', $5::int
)
WHERE id = $1`, id, patch.FavIcon, patch.OGImageBlurURL, patch.Width, patch.Height)
	if err != nil {
		return fmt.Errorf("apply visual patch for bookmark %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return bookmarks.ErrNotFound
	}
	return nil
}

// Categories resolves category ownership and sharing grants from Postgres.
type Categories struct {
	db DB
}

// NewCategories wraps an existing connection pool.
func NewCategories(db DB) (*Categories, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &Categories{db: db}, nil
}

// Owner returns the user id owning a category.
func (c *Categories) Owner(ctx context.Context, categoryID int64) (string, error) {
	var owner string
	row := c.db.QueryRow(ctx, `SELECT user_id FROM categories WHERE id = $1`, categoryID)
	err := row.Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", bookmarks.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select category %d: %w", categoryID, err)
	}
	return owner, nil
}

// Collaboration returns the sharing grant for an email on a category.
func (c *Categories) Collaboration(ctx context.Context, categoryID int64, email string) (bookmarks.Collaboration, error) {
	collab := bookmarks.Collaboration{CategoryID: categoryID, Email: email}
	row := c.db.QueryRow(ctx, `
SELECT edit_access FROM collaborations
WHERE category_id = $1 AND email = $2`, categoryID, email)
	err := row.Scan(&collab.EditAccess)
	if errors.Is(err, pgx.ErrNoRows) {
		return bookmarks.Collaboration{}, bookmarks.ErrNotFound
	}
	if err != nil {
		return bookmarks.Collaboration{}, fmt.Errorf("select collaboration: %w", err)
	}
	return collab, nil
}
