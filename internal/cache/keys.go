package cache

import (
	"fmt"

	"github.com/google/uuid"
)

// Key prefixes for the listing caches invalidated after an ingestion run.
const (
	TrendingArtistsPrefix = "artists:trending:"
	FeaturedVenuesPrefix  = "venues:featured:"
)

func DashboardStatsKey() string {
	return "stats:dashboard"
}

func TrendingArtistsKey(limit int) string {
	return fmt.Sprintf("%s%d", TrendingArtistsPrefix, limit)
}

func FeaturedVenuesKey(limit int) string {
	return fmt.Sprintf("%s%d", FeaturedVenuesPrefix, limit)
}

func JobStatusKey(jobID uuid.UUID) string {
	return fmt.Sprintf("job:%s", jobID)
}

func RateLimitKey(clientAddr string) string {
	return fmt.Sprintf("ratelimit:%s", clientAddr)
}
