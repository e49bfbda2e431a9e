package series

import (
	"fmt"
	"testing"

	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/stretchr/testify/assert"

	"github.com/tankobonapp/tankobon/pkg/models"
)

func thumbURL(galleryID int) string {
	return fmt.Sprintf("/thumb/%d", galleryID)
}

func TestInheritedArtist(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		artists  []string
		expected string
	}{
		{"no galleries", nil, "Unknown"},
		{"only empty artists", []string{"", ""}, "Unknown"},
		{"single artist", []string{"A", "A"}, "A"},
		{"multiple artists", []string{"A", "B"}, "Various"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var galleries []*models.Gallery
			for _, a := range tt.artists {
				galleries = append(galleries, &models.Gallery{Artist: a})
			}
			assert.Equal(t, tt.expected, inheritedArtist(galleries))
		})
	}
}

func TestInheritedCategory(t *testing.T) {
	t.Parallel()

	t.Run("series' own category wins", func(t *testing.T) {
		s := &models.Series{
			CategoryID: pointerutil.Int(5),
			Galleries:  []*models.Gallery{{CategoryID: pointerutil.Int(9)}},
		}
		assert.Equal(t, 5, *inheritedCategoryID(s))
	})

	t.Run("first member with a category wins", func(t *testing.T) {
		s := &models.Series{
			Galleries: []*models.Gallery{
				{},
				{CategoryID: pointerutil.Int(3)},
				{CategoryID: pointerutil.Int(8)},
			},
		}
		assert.Equal(t, 3, *inheritedCategoryID(s))
	})

	t.Run("absent everywhere means unset", func(t *testing.T) {
		s := &models.Series{Galleries: []*models.Gallery{{}, {}}}
		assert.Nil(t, inheritedCategoryID(s))
	})
}

func TestResolveCover(t *testing.T) {
	t.Parallel()

	members := []*models.Gallery{
		{ID: 1, Status: models.GalleryStatusNew},
		{ID: 2, Status: models.GalleryStatusReading},
		{ID: 3, Status: models.GalleryStatusCompleted},
	}

	t.Run("explicit URL is used verbatim", func(t *testing.T) {
		s := &models.Series{
			ThumbnailURL: pointerutil.String("https://example.com/cover.jpg"),
			Galleries:    members,
		}
		assert.Equal(t, "https://example.com/cover.jpg", resolveCover(s, thumbURL))
	})

	t.Run("follow-reading picks the Reading member regardless of order", func(t *testing.T) {
		s := &models.Series{
			ThumbnailURL: pointerutil.String(models.ThumbnailFollowReading),
			Galleries:    members,
		}
		assert.Equal(t, "/thumb/2", resolveCover(s, thumbURL))
	})

	t.Run("follow-reading falls back to the first member", func(t *testing.T) {
		s := &models.Series{
			ThumbnailURL: pointerutil.String(models.ThumbnailFollowReading),
			Galleries: []*models.Gallery{
				{ID: 4, Status: models.GalleryStatusNew},
				{ID: 5, Status: models.GalleryStatusCompleted},
			},
		}
		assert.Equal(t, "/thumb/4", resolveCover(s, thumbURL))
	})

	t.Run("unset uses the first member", func(t *testing.T) {
		s := &models.Series{Galleries: members}
		assert.Equal(t, "/thumb/1", resolveCover(s, thumbURL))
	})

	t.Run("no members means no cover", func(t *testing.T) {
		s := &models.Series{}
		assert.Empty(t, resolveCover(s, thumbURL))
	})
}

func TestMatchesSearch(t *testing.T) {
	t.Parallel()

	s := &models.Series{
		Name: "Otoyomegatari",
		Galleries: []*models.Gallery{
			{Artist: "Mori Kaoru", Title: "Volume 1", Tags: []*models.Tag{{Name: "Historical"}}},
		},
	}

	agg := Compute(s, thumbURL)
	assert.Equal(t, "Mori Kaoru", agg.Artist)
	assert.True(t, agg.MatchesSearch("otoyome"))
	assert.True(t, agg.MatchesSearch("KAORU"))
	assert.True(t, agg.MatchesSearch("historical"))
	assert.False(t, agg.MatchesSearch("spaceship"))
}

func TestComputePageTotals(t *testing.T) {
	t.Parallel()

	s := &models.Series{
		Galleries: []*models.Gallery{
			{PagesRead: 3, PagesTotal: 10},
			{PagesRead: 10, PagesTotal: 10},
		},
	}

	agg := Compute(s, thumbURL)
	assert.Equal(t, 2, agg.GalleryCount)
	assert.Equal(t, 13, agg.PagesRead)
	assert.Equal(t, 20, agg.PagesTotal)
}
