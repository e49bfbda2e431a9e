package series

import (
	"strings"

	"github.com/tankobonapp/tankobon/pkg/models"
)

// Aggregate holds the derived, read-time attributes of a series. Nothing in
// here is persisted; it is recomputed from the member galleries per request.
type Aggregate struct {
	Artist       string  `json:"artist"`
	CategoryID   *int    `json:"category_id,omitempty"`
	ThumbnailURL string  `json:"thumbnail_url"`
	GalleryCount int     `json:"gallery_count"`
	PagesRead    int     `json:"pages_read"`
	PagesTotal   int     `json:"pages_total"`
	searchText   string
}

// Compute derives the aggregate attributes from a series whose Galleries were
// loaded in (sort_order, id) order. thumbnailFor maps a gallery ID to its
// generated thumbnail URL.
func Compute(s *models.Series, thumbnailFor func(galleryID int) string) Aggregate {
	agg := Aggregate{
		Artist:       inheritedArtist(s.Galleries),
		CategoryID:   inheritedCategoryID(s),
		ThumbnailURL: resolveCover(s, thumbnailFor),
		GalleryCount: len(s.Galleries),
	}

	for _, g := range s.Galleries {
		agg.PagesRead += g.PagesRead
		agg.PagesTotal += g.PagesTotal
	}

	agg.searchText = buildSearchText(s, agg.Artist)
	return agg
}

// MatchesSearch reports whether the series matches a substring query against
// its derived search text.
func (a Aggregate) MatchesSearch(query string) bool {
	return strings.Contains(a.searchText, strings.ToLower(strings.TrimSpace(query)))
}

// FilterBySearch keeps the series whose derived search text contains the
// query as a substring.
func FilterBySearch(all []*models.Series, query string) []*models.Series {
	var matched []*models.Series
	for _, s := range all {
		if Compute(s, func(int) string { return "" }).MatchesSearch(query) {
			matched = append(matched, s)
		}
	}
	return matched
}

// inheritedArtist collapses the member artists to a single display value. No
// distinct artists means "Unknown", one means that artist, several means
// "Various".
func inheritedArtist(galleries []*models.Gallery) string {
	distinct := map[string]bool{}
	for _, g := range galleries {
		if g.Artist != "" {
			distinct[g.Artist] = true
		}
	}

	switch len(distinct) {
	case 0:
		return "Unknown"
	case 1:
		for artist := range distinct {
			return artist
		}
	}
	return "Various"
}

// inheritedCategoryID prefers the series' own category, then falls back to
// the first member gallery that has one. First match wins, not majority.
func inheritedCategoryID(s *models.Series) *int {
	if s.CategoryID != nil {
		return s.CategoryID
	}
	for _, g := range s.Galleries {
		if g.CategoryID != nil {
			return g.CategoryID
		}
	}
	return nil
}

// resolveCover picks the cover image for a series. An explicit URL is used
// verbatim. The follow-reading sentinel selects the first member in Reading
// status, falling back to the first member. An unset URL always uses the
// first member. Members are assumed sorted by (sort_order, id).
func resolveCover(s *models.Series, thumbnailFor func(galleryID int) string) string {
	if s.ThumbnailURL != nil && *s.ThumbnailURL != models.ThumbnailFollowReading {
		return *s.ThumbnailURL
	}

	if len(s.Galleries) == 0 {
		return ""
	}

	if s.ThumbnailURL != nil {
		for _, g := range s.Galleries {
			if g.Status == models.GalleryStatusReading {
				return thumbnailFor(g.ID)
			}
		}
	}

	return thumbnailFor(s.Galleries[0].ID)
}

func buildSearchText(s *models.Series, artist string) string {
	parts := []string{s.Name, artist}
	for _, g := range s.Galleries {
		parts = append(parts, g.Title)
		for _, t := range g.Tags {
			parts = append(parts, t.Name)
		}
	}
	for _, t := range s.Tags {
		parts = append(parts, t.Name)
	}
	return strings.ToLower(strings.Join(parts, " "))
}
