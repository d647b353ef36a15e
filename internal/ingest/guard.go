package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/linkhoard/linkhoard/internal/bookmarks"
)

// AccessGuard decides whether a user may attach a bookmark to a category.
type AccessGuard struct {
	categories bookmarks.CategoryStore
}

// NewAccessGuard builds a guard on top of a category store.
func NewAccessGuard(categories bookmarks.CategoryStore) *AccessGuard {
	return &AccessGuard{categories: categories}
}

// CheckAccess grants the owner and collaborators with edit access. A store
// failure surfaces as an error; callers must not treat it as a denial.
func (g *AccessGuard) CheckAccess(ctx context.Context, categoryID int64, userID, userEmail string) (bookmarks.AccessDecision, error) {
	if categoryID == bookmarks.UncategorizedID {
		return bookmarks.AccessDecision{Allowed: true}, nil
	}

	owner, err := g.categories.Owner(ctx, categoryID)
	if errors.Is(err, bookmarks.ErrNotFound) {
		return bookmarks.AccessDecision{Reason: "category not found"}, nil
	}
	if err != nil {
		return bookmarks.AccessDecision{}, fmt.Errorf("look up category owner: %w", err)
	}
	if owner == userID {
		return bookmarks.AccessDecision{Allowed: true}, nil
	}

	collab, err := g.categories.Collaboration(ctx, categoryID, userEmail)
	if errors.Is(err, bookmarks.ErrNotFound) {
		return bookmarks.AccessDecision{Reason: "not a collaborator on this category"}, nil
	}
	if err != nil {
		return bookmarks.AccessDecision{}, fmt.Errorf("look up collaboration: %w", err)
	}
	if !collab.EditAccess {
		return bookmarks.AccessDecision{Reason: "collaborator lacks edit access"}, nil
	}
	return bookmarks.AccessDecision{Allowed: true}, nil
}

// DuplicateGuard rejects an exact URL match within one non-trashed category.
// URLs are compared verbatim; trailing slashes, query strings, and casing all
// count as distinct.
type DuplicateGuard struct {
	store bookmarks.Store
}

// NewDuplicateGuard builds a guard on top of the bookmark store.
func NewDuplicateGuard(store bookmarks.Store) *DuplicateGuard {
	return &DuplicateGuard{store: store}
}

// Exists reports whether the URL is already saved in the category.
func (g *DuplicateGuard) Exists(ctx context.Context, url string, categoryID int64) (bool, error) {
	exists, err := g.store.DuplicateExists(ctx, url, categoryID)
	if err != nil {
		return false, fmt.Errorf("check duplicate: %w", err)
	}
	return exists, nil
}
