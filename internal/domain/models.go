package domain

import (
	"time"
)

type PurgeTag string

const (
	PurgeTagNone  PurgeTag = ""
	PurgeTagKeep  PurgeTag = "keep"
	PurgeTagCut   PurgeTag = "cut"
	PurgeTagMaybe PurgeTag = "maybe"
)

// Valid reports whether the tag is one of the recognized values. The empty
// tag is valid and means "not rated yet".
func (t PurgeTag) Valid() bool {
	switch t {
	case PurgeTagNone, PurgeTagKeep, PurgeTagCut, PurgeTagMaybe:
		return true
	}
	return false
}

// CustomField is one user-defined name/value pair attached to a collection item.
type CustomField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CollectionItem is one owned release. ReleaseID is the Discogs catalog id,
// stable across folders; ID is assigned locally.
type CollectionItem struct { //nolint:govet // field ordering prioritizes readability over memory alignment
	ID              string       `json:"id" db:"id"`
	ReleaseID       int          `json:"release_id" db:"release_id"`
	Title           string       `json:"title" db:"title"`
	Artist          string       `json:"artist" db:"artist"`
	Year            int          `json:"year" db:"year"`
	CoverURL        string       `json:"cover_url" db:"cover_url"`
	Folder          string       `json:"folder" db:"folder"`
	Label           string       `json:"label" db:"label"`
	CatalogNumber   string       `json:"catalog_number" db:"catalog_number"`
	Format          string       `json:"format" db:"format"`
	MediaCondition  string       `json:"media_condition" db:"media_condition"`
	SleeveCondition string       `json:"sleeve_condition" db:"sleeve_condition"`
	Notes           string       `json:"notes" db:"notes"`
	PricePaid       string       `json:"price_paid" db:"price_paid"`
	CustomFields    CustomFields `json:"custom_fields" db:"custom_fields"`
	DateAdded       time.Time    `json:"date_added" db:"date_added"`
	PurgeTag        PurgeTag     `json:"purge_tag" db:"purge_tag"`
	LastPlayed      *time.Time   `json:"last_played,omitempty" db:"last_played"`
}

// WantItem is a want-list entry. Its local ID carries a "want-" prefix so the
// two id namespaces never collide.
type WantItem struct {
	ID        string    `json:"id" db:"id"`
	ReleaseID int       `json:"release_id" db:"release_id"`
	Title     string    `json:"title" db:"title"`
	Artist    string    `json:"artist" db:"artist"`
	Year      int       `json:"year" db:"year"`
	CoverURL  string    `json:"cover_url" db:"cover_url"`
	Notes     string    `json:"notes" db:"notes"`
	DateAdded time.Time `json:"date_added" db:"date_added"`
	Priority  bool      `json:"priority" db:"priority"`
}

// Session is a user-curated, ordered playlist of collection items.
// UpdatedAt tracks membership and order changes only, not renames.
type Session struct {
	ID        string      `json:"id" db:"id"`
	Name      string      `json:"name" db:"name"`
	ItemIDs   StringSlice `json:"item_ids" db:"item_ids"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// GradePrice is a suggested price for one canonical condition grade.
type GradePrice struct {
	Grade string  `json:"grade"`
	Price float64 `json:"price"`
}

// MarketPrice is the cached marketplace data for one release.
type MarketPrice struct {
	ReleaseID   int          `json:"release_id"`
	Suggestions []GradePrice `json:"suggestions"`
	LowestPrice float64      `json:"lowest_price"`
	NumForSale  int          `json:"num_for_sale"`
	Currency    string       `json:"currency"`
	FetchedAt   time.Time    `json:"fetched_at"`
}

// Expired reports whether the entry is older than ttl as of now.
func (p MarketPrice) Expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(p.FetchedAt) > ttl
}

// PriceFor returns the suggested price for a canonical grade label.
func (p MarketPrice) PriceFor(grade string) (float64, bool) {
	for _, s := range p.Suggestions {
		if s.Grade == grade {
			return s.Price, true
		}
	}
	return 0, false
}

// CollectionValue is the aggregate valuation Discogs reports for a collection.
type CollectionValue struct {
	Minimum string `json:"minimum"`
	Median  string `json:"median"`
	Maximum string `json:"maximum"`
}

// SyncResult summarizes a completed sync pass.
type SyncResult struct {
	Albums  int `json:"albums"`
	Folders int `json:"folders"`
	Wants   int `json:"wants"`
}
