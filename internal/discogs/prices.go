package discogs

import (
	"context"
	"time"

	"github.com/dkessler/cratekeeper/internal/domain"
	"github.com/dkessler/cratekeeper/internal/pricing"
)

// PriceSuggestions returns marketplace price data for one release.
//
// TODO: wire the live /marketplace/price_suggestions/{id} and
// /marketplace/stats/{id} endpoints. Their exact field set, units and
// currency handling are unverified against production, so until then this
// returns deterministic placeholder values in the agreed shape.
func (c *Client) PriceSuggestions(ctx context.Context, cred domain.Credential, releaseID int) (domain.MarketPrice, error) {
	select {
	case <-ctx.Done():
		return domain.MarketPrice{}, ctx.Err()
	default:
	}

	base := 5.0 + float64(releaseID%40)
	suggestions := make([]domain.GradePrice, 0, len(pricing.Grades))
	for i, g := range pricing.Grades {
		// Best grade prices highest, stepping down the ladder.
		suggestions = append(suggestions, domain.GradePrice{
			Grade: g.Label,
			Price: base * (1.0 - 0.1*float64(i)),
		})
	}

	return domain.MarketPrice{
		ReleaseID:   releaseID,
		Suggestions: suggestions,
		LowestPrice: base * 0.3,
		NumForSale:  releaseID%25 + 1,
		Currency:    "USD",
		FetchedAt:   time.Now(),
	}, nil
}
