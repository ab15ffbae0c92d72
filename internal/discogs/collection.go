package discogs

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dkessler/cratekeeper/internal/constants"
	"github.com/dkessler/cratekeeper/internal/domain"
)

// artistSuffixRe matches the numeric disambiguation Discogs appends to
// artist names, e.g. "Nirvana (2)".
var artistSuffixRe = regexp.MustCompile(`\s\(\d+\)$`)

// CollectionFetch is the result of a full collection pull.
type CollectionFetch struct {
	Items   []domain.CollectionItem
	Folders []string
}

type pagination struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"per_page"`
	Items   int `json:"items"`
}

type basicInformation struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Year       int    `json:"year"`
	CoverImage string `json:"cover_image"`
	Thumb      string `json:"thumb"`
	Artists    []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Labels []struct {
		Name  string `json:"name"`
		Catno string `json:"catno"`
	} `json:"labels"`
	Formats []struct {
		Name         string   `json:"name"`
		Descriptions []string `json:"descriptions"`
	} `json:"formats"`
}

type collectionRelease struct {
	ID        int              `json:"id"`
	FolderID  int              `json:"folder_id"`
	DateAdded string           `json:"date_added"`
	Basic     basicInformation `json:"basic_information"`
	Notes     []struct {
		FieldID int    `json:"field_id"`
		Value   string `json:"value"`
	} `json:"notes"`
}

// fieldSchema classifies the user's custom-field definitions so the well-known
// fields (media condition, sleeve condition, notes, price paid) land in their
// own attributes and everything else stays a free-form name/value pair.
type fieldSchema struct {
	names  map[int]string
	media  map[int]bool
	sleeve map[int]bool
	notes  map[int]bool
	paid   map[int]bool
}

func newFieldSchema() *fieldSchema {
	return &fieldSchema{
		names:  make(map[int]string),
		media:  make(map[int]bool),
		sleeve: make(map[int]bool),
		notes:  make(map[int]bool),
		paid:   make(map[int]bool),
	}
}

func (s *fieldSchema) add(id int, name string) {
	s.names[id] = name
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "media condition":
		s.media[id] = true
	case "sleeve condition":
		s.sleeve[id] = true
	case "notes":
		s.notes[id] = true
	case "price paid":
		s.paid[id] = true
	}
}

// fetchFolders returns the folder-id to folder-name map plus the names in
// the order the API lists them, which is the order surfaced to callers.
func (c *Client) fetchFolders(ctx context.Context, cred domain.Credential, username string) (map[int]string, []string, error) {
	var resp struct {
		Folders []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"folders"`
	}
	if _, err := c.get(ctx, cred, fmt.Sprintf("%s/users/%s/collection/folders", c.BaseURL, username), &resp); err != nil {
		return nil, nil, err
	}
	folders := make(map[int]string, len(resp.Folders))
	names := make([]string, 0, len(resp.Folders))
	for _, f := range resp.Folders {
		folders[f.ID] = f.Name
		names = append(names, f.Name)
	}
	return folders, names, nil
}

func (c *Client) fetchFieldSchema(ctx context.Context, cred domain.Credential, username string) (*fieldSchema, error) {
	var resp struct {
		Fields []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"fields"`
	}
	if _, err := c.get(ctx, cred, fmt.Sprintf("%s/users/%s/collection/fields", c.BaseURL, username), &resp); err != nil {
		return nil, err
	}
	schema := newFieldSchema()
	for _, f := range resp.Fields {
		schema.add(f.ID, f.Name)
	}
	return schema, nil
}

// FetchCollection pulls the whole collection: folder map once, field schema
// once, then sequential pages of the all-releases folder. onProgress is
// invoked after every page with (accumulated, total). A failed page aborts
// the fetch with a *PageError and nothing partial is returned.
func (c *Client) FetchCollection(ctx context.Context, cred domain.Credential, username string, onProgress ProgressFunc) (*CollectionFetch, error) {
	folders, folderNames, err := c.fetchFolders(ctx, cred, username)
	if err != nil {
		return nil, err
	}
	schema, err := c.fetchFieldSchema(ctx, cred, username)
	if err != nil {
		return nil, err
	}

	var raw []collectionRelease
	page := 1
	for {
		var resp struct {
			Pagination pagination          `json:"pagination"`
			Releases   []collectionRelease `json:"releases"`
		}
		url := fmt.Sprintf("%s/users/%s/collection/folders/%d/releases?page=%d&per_page=%d",
			c.BaseURL, username, constants.AllReleasesFolder, page, constants.CollectionPageSize)
		status, err := c.get(ctx, cred, url, &resp)
		if err != nil {
			if status != 0 {
				return nil, &PageError{Endpoint: "collection", Page: page, StatusCode: status}
			}
			return nil, err
		}

		raw = append(raw, resp.Releases...)
		if onProgress != nil {
			onProgress(len(raw), resp.Pagination.Items)
		}
		if page >= resp.Pagination.Pages {
			break
		}
		page++
	}

	items := make([]domain.CollectionItem, 0, len(raw))
	for _, r := range raw {
		items = append(items, mapCollectionRelease(r, folders, schema))
	}
	items = dedupeByRelease(items)

	fetch := &CollectionFetch{Items: items, Folders: folderNames}
	c.Logger.Info("Collection fetched", "username", username, "items", len(items), "folders", len(fetch.Folders))
	return fetch, nil
}

func mapCollectionRelease(r collectionRelease, folders map[int]string, schema *fieldSchema) domain.CollectionItem {
	item := domain.CollectionItem{
		ID:        uuid.New().String(),
		ReleaseID: r.ID,
		Title:     r.Basic.Title,
		Artist:    primaryArtist(r.Basic),
		Year:      r.Basic.Year,
		CoverURL:  coverURL(r.Basic),
		Folder:    folders[r.FolderID],
		Format:    formatDescription(r.Basic),
		DateAdded: parseDate(r.DateAdded),
	}
	if len(r.Basic.Labels) > 0 {
		item.Label = r.Basic.Labels[0].Name
		item.CatalogNumber = r.Basic.Labels[0].Catno
	}

	// Multiple values of one well-known field are joined; anything the
	// schema does not recognize stays a raw name/value pair.
	var media, sleeve, notes, paid []string
	for _, n := range r.Notes {
		switch {
		case schema.media[n.FieldID]:
			media = append(media, n.Value)
		case schema.sleeve[n.FieldID]:
			sleeve = append(sleeve, n.Value)
		case schema.notes[n.FieldID]:
			notes = append(notes, n.Value)
		case schema.paid[n.FieldID]:
			paid = append(paid, n.Value)
		default:
			name := schema.names[n.FieldID]
			if name == "" {
				name = fmt.Sprintf("Field %d", n.FieldID)
			}
			item.CustomFields = append(item.CustomFields, domain.CustomField{Name: name, Value: n.Value})
		}
	}
	item.MediaCondition = strings.Join(media, "; ")
	item.SleeveCondition = strings.Join(sleeve, "; ")
	item.Notes = strings.Join(notes, "; ")
	item.PricePaid = strings.Join(paid, "; ")

	return item
}

// dedupeByRelease collapses duplicate release ids (a release filed in several
// folders) into one entry, keeping the last occurrence.
func dedupeByRelease(items []domain.CollectionItem) []domain.CollectionItem {
	last := make(map[int]int, len(items))
	for i, it := range items {
		last[it.ReleaseID] = i
	}
	out := make([]domain.CollectionItem, 0, len(last))
	for i, it := range items {
		if last[it.ReleaseID] == i {
			out = append(out, it)
		}
	}
	return out
}

func primaryArtist(b basicInformation) string {
	if len(b.Artists) == 0 {
		return ""
	}
	return artistSuffixRe.ReplaceAllString(b.Artists[0].Name, "")
}

func coverURL(b basicInformation) string {
	if b.CoverImage != "" {
		return b.CoverImage
	}
	return b.Thumb
}

func formatDescription(b basicInformation) string {
	if len(b.Formats) == 0 {
		return ""
	}
	parts := append([]string{b.Formats[0].Name}, b.Formats[0].Descriptions...)
	return strings.Join(parts, ", ")
}

func parseDate(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
