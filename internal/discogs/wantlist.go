package discogs

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dkessler/cratekeeper/internal/constants"
	"github.com/dkessler/cratekeeper/internal/domain"
)

type wantRelease struct {
	ID        int              `json:"id"`
	DateAdded string           `json:"date_added"`
	Notes     string           `json:"notes"`
	Basic     basicInformation `json:"basic_information"`
}

// FetchWantlist pages through the want-list endpoint. Same contract as
// FetchCollection: sequential pages, progress after each one, a failed page
// aborts with *PageError.
func (c *Client) FetchWantlist(ctx context.Context, cred domain.Credential, username string, onProgress ProgressFunc) ([]domain.WantItem, error) {
	var raw []wantRelease
	page := 1
	for {
		var resp struct {
			Pagination pagination    `json:"pagination"`
			Wants      []wantRelease `json:"wants"`
		}
		url := fmt.Sprintf("%s/users/%s/wants?page=%d&per_page=%d",
			c.BaseURL, username, page, constants.WantlistPageSize)
		status, err := c.get(ctx, cred, url, &resp)
		if err != nil {
			if status != 0 {
				return nil, &PageError{Endpoint: "wantlist", Page: page, StatusCode: status}
			}
			return nil, err
		}

		raw = append(raw, resp.Wants...)
		if onProgress != nil {
			onProgress(len(raw), resp.Pagination.Items)
		}
		if page >= resp.Pagination.Pages {
			break
		}
		page++
	}

	seen := make(map[int]bool, len(raw))
	wants := make([]domain.WantItem, 0, len(raw))
	for _, r := range raw {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		wants = append(wants, domain.WantItem{
			ID:        "want-" + uuid.New().String(),
			ReleaseID: r.ID,
			Title:     r.Basic.Title,
			Artist:    primaryArtist(r.Basic),
			Year:      r.Basic.Year,
			CoverURL:  coverURL(r.Basic),
			Notes:     r.Notes,
			DateAdded: parseDate(r.DateAdded),
		})
	}
	c.Logger.Info("Wantlist fetched", "username", username, "items", len(wants))
	return wants, nil
}
