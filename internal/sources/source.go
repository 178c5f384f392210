package sources

import (
	"context"
	"fmt"

	"github.com/stagewatch/stagewatch/internal/config"
	"github.com/stagewatch/stagewatch/pkg/models"
)

// Source is one upstream origin of concert listings. Scrape returns a
// normalized batch plus a list of non-fatal error strings; it must never
// fail outright. Network errors, parse errors, and rate limits are all
// captured in the error list so a degraded source cannot abort a run.
// Implementations must release any per-call resources on every path.
type Source interface {
	Name() string
	Scrape(ctx context.Context) (models.Batch, []string)
}

// Build constructs the configured sources in the order they appear in
// cfg.Sources. Called once at server startup. Order matters downstream:
// it fixes first-seen precedence during deduplication.
func Build(cfg config.ScraperConfig) ([]Source, error) {
	out := make([]Source, 0, len(cfg.Sources))
	for _, name := range cfg.Sources {
		switch name {
		case "ticketmaster":
			out = append(out, NewTicketmasterSource(cfg.Ticketmaster))
		case "kpopnews":
			out = append(out, NewKPopNewsSource(cfg.KPopNews))
		default:
			return nil, fmt.Errorf("unknown source %q: must be one of ticketmaster, kpopnews", name)
		}
	}
	return out, nil
}
