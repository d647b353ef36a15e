package ingest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linkhoard/linkhoard/internal/bookmarks"
)

func TestResolveCategoryID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    int64
		wantErr bool
	}{
		{name: "absent", raw: "", want: 0},
		{name: "json null", raw: "null", want: 0},
		{name: "zero", raw: "0", want: 0},
		{name: "number", raw: "5", want: 5},
		{name: "numeric string", raw: `"5"`, want: 5},
		{name: "string null token", raw: `"null"`, want: 0},
		{name: "string NULL token", raw: `"NULL"`, want: 0},
		{name: "empty string", raw: `""`, want: 0},
		{name: "uncategorized token", raw: `"Uncategorized"`, want: 0},
		{name: "padded numeric string", raw: `" 7 "`, want: 7},
		{name: "negative number", raw: "-1", wantErr: true},
		{name: "negative string", raw: `"-1"`, wantErr: true},
		{name: "float", raw: "5.5", wantErr: true},
		{name: "word", raw: `"favorites"`, wantErr: true},
		{name: "object", raw: `{"id":5}`, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ResolveCategoryID(json.RawMessage(tt.raw))
			if tt.wantErr {
				require.ErrorIs(t, err, bookmarks.ErrInvalid)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
