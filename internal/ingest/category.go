package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/linkhoard/linkhoard/internal/bookmarks"
)

// ResolveCategoryID maps the raw category value from a request body to an
// effective category id. Clients send categories as numbers, numeric strings,
// or one of the reserved "no collection" tokens; all of the latter resolve to
// the uncategorized sentinel.
func ResolveCategoryID(raw json.RawMessage) (int64, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return bookmarks.UncategorizedID, nil
	}

	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("%w: category id must not be negative", bookmarks.ErrInvalid)
		}
		return n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("%w: category id must be a number, string, or null", bookmarks.ErrInvalid)
	}
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "null", "uncategorized":
		return bookmarks.UncategorizedID, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: unrecognized category id %q", bookmarks.ErrInvalid, s)
	}
	return n, nil
}
