package scrape

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSitePolicyPreferred(t *testing.T) {
	t.Parallel()

	p := NewSitePolicy([]string{"Twitter.com", " x.com "}, []string{"example.org"})

	require.True(t, p.OGImagePreferred("https://twitter.com/some/status"))
	require.True(t, p.OGImagePreferred("https://mobile.twitter.com/other"))
	require.True(t, p.OGImagePreferred("https://x.com/a"))
	require.False(t, p.OGImagePreferred("https://example.org/page"))
	require.False(t, p.OGImagePreferred("https://nottwitter.com/page"))
}

func TestSitePolicyDropOGImage(t *testing.T) {
	t.Parallel()

	p := NewSitePolicy([]string{"twitter.com"}, []string{"example.org"})

	require.True(t, p.DropOGImage("https://twitter.com/x"))
	require.True(t, p.DropOGImage("https://example.org/x"))
	require.True(t, p.DropOGImage("https://www.example.org/x"))
	require.False(t, p.DropOGImage("https://example.com/x"))
}

func TestSitePolicyEmpty(t *testing.T) {
	t.Parallel()

	var p SitePolicy
	require.False(t, p.OGImagePreferred("https://example.com"))
	require.False(t, p.DropOGImage("https://example.com"))
}
