package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ThumbnailFollowReading is the sentinel thumbnail_url value meaning "use the
// thumbnail of whichever member gallery is currently being read".
const ThumbnailFollowReading = "follow-reading"

type Series struct {
	bun.BaseModel `bun:"table:series,alias:s"`

	ID           int        `bun:",pk,nullzero" json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Name         string     `bun:",nullzero" json:"name"`
	Description  *string    `json:"description,omitempty"`
	ThumbnailURL *string    `json:"thumbnail_url,omitempty"`
	CategoryID   *int       `json:"category_id,omitempty"`
	Category     *Category  `bun:"rel:belongs-to" json:"category,omitempty"`
	Galleries    []*Gallery `bun:"rel:has-many" json:"galleries,omitempty"`
	Tags         []*Tag     `bun:"m2m:series_tags,join:Series=Tag" json:"tags,omitempty"`
}

type SeriesTag struct {
	bun.BaseModel `bun:"table:series_tags,alias:st"`

	ID       int     `bun:",pk,nullzero"`
	SeriesID int     `bun:",nullzero"`
	Series   *Series `bun:"rel:belongs-to,join:series_id=id"`
	TagID    int     `bun:",nullzero"`
	Tag      *Tag    `bun:"rel:belongs-to,join:tag_id=id"`
}
