package digest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSlug(t *testing.T) {
	require.Equal(t, "electric-vehicles", Slug("  Electric Vehicles "))
	require.Equal(t, "ai-startups-2025", Slug("AI / startups: 2025!"))
	require.Equal(t, "digest", Slug("???"))
}

func TestFilename(t *testing.T) {
	at := time.Date(2025, time.October, 6, 11, 0, 0, 0, time.FixedZone("CEST", 2*60*60))
	require.Equal(t, "news_digest_electric-vehicles_20251006_0900.json", Filename("electric vehicles", at, "json"))
}
