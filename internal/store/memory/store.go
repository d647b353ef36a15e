// Package memory provides an in-memory bookmark store for local development
// and tests.
package memory

import (
	"context"
	"sync"

	"github.com/linkhoard/linkhoard/internal/bookmarks"
	"github.com/linkhoard/linkhoard/internal/clock/system"
)

// Store keeps bookmark records in a map guarded by a mutex.
type Store struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]bookmarks.Record
	clock  bookmarks.Clock
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		nextID: 1,
		rows:   make(map[int64]bookmarks.Record),
		clock:  system.New(),
	}
}

// SetClock overrides the timestamp source. Test hook.
func (s *Store) SetClock(clock bookmarks.Clock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

// Insert assigns an id and creation time and stores the record.
func (s *Store) Insert(_ context.Context, rec bookmarks.Record) (bookmarks.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.nextID
	s.nextID++
	rec.CreatedAt = s.clock.Now()
	s.rows[rec.ID] = rec
	return rec, nil
}

// Get returns the record with the given id.
func (s *Store) Get(_ context.Context, id int64) (bookmarks.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.rows[id]
	if !ok {
		return bookmarks.Record{}, bookmarks.ErrNotFound
	}
	return rec, nil
}

// DuplicateExists reports whether a non-trashed record with the same URL
// exists in the category.
func (s *Store) DuplicateExists(_ context.Context, url string, categoryID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.rows {
		if rec.URL == url && rec.CategoryID == categoryID && !rec.Trash {
			return true, nil
		}
	}
	return false, nil
}

// SetScreenshot records the screenshot URL on the record's metadata.
func (s *Store) SetScreenshot(_ context.Context, id int64, screenshotURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.rows[id]
	if !ok {
		return bookmarks.ErrNotFound
	}
	rec.MetaData.Screenshot = screenshotURL
	s.rows[id] = rec
	return nil
}

// ApplyVisualPatch overwrites the visual metadata fields on the record.
func (s *Store) ApplyVisualPatch(_ context.Context, id int64, patch bookmarks.VisualPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.rows[id]
	if !ok {
		return bookmarks.ErrNotFound
	}
	rec.MetaData.FavIcon = patch.FavIcon
	rec.MetaData.OGImageBlurURL = patch.OGImageBlurURL
	rec.MetaData.Width = patch.Width
	rec.MetaData.Height = patch.Height
	s.rows[id] = rec
	return nil
}

// Categories is an in-memory category grant resolver.
type Categories struct {
	mu      sync.Mutex
	owners  map[int64]string
	collabs map[int64]map[string]bool
}

// NewCategories returns an empty resolver.
func NewCategories() *Categories {
	return &Categories{
		owners:  make(map[int64]string),
		collabs: make(map[int64]map[string]bool),
	}
}

// AddCategory registers a category owned by userID.
func (c *Categories) AddCategory(categoryID int64, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owners[categoryID] = userID
}

// AddCollaborator registers a sharing grant on a category.
func (c *Categories) AddCollaborator(categoryID int64, email string, editAccess bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.collabs[categoryID] == nil {
		c.collabs[categoryID] = make(map[string]bool)
	}
	c.collabs[categoryID][email] = editAccess
}

// Owner returns the user id owning a category.
func (c *Categories) Owner(_ context.Context, categoryID int64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	owner, ok := c.owners[categoryID]
	if !ok {
		return "", bookmarks.ErrNotFound
	}
	return owner, nil
}

// Collaboration returns the sharing grant for an email on a category.
func (c *Categories) Collaboration(_ context.Context, categoryID int64, email string) (bookmarks.Collaboration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	grants, ok := c.collabs[categoryID]
	if !ok {
		return bookmarks.Collaboration{}, bookmarks.ErrNotFound
	}
	edit, ok := grants[email]
	if !ok {
		return bookmarks.Collaboration{}, bookmarks.ErrNotFound
	}
	return bookmarks.Collaboration{CategoryID: categoryID, Email: email, EditAccess: edit}, nil
}
