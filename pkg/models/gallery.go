package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	GalleryStatusNew       = "New"
	GalleryStatusReading   = "Reading"
	GalleryStatusCompleted = "Completed"
)

const (
	ReadingDirectionLTR = "LTR"
	ReadingDirectionRTL = "RTL"
)

type Gallery struct {
	bun.BaseModel `bun:"table:galleries,alias:g"`

	ID               int        `bun:",pk,nullzero" json:"id"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Filename         string     `bun:",nullzero" json:"filename"`
	Filepath         string     `bun:",nullzero" json:"-"`
	Title            string     `bun:",nullzero" json:"title"`
	Artist           string     `bun:",nullzero" json:"artist"`
	Circle           *string    `json:"circle,omitempty"`
	Parody           *string    `json:"parody,omitempty"`
	Description      *string    `json:"description,omitempty"`
	Status           string     `bun:",nullzero" json:"status"`
	PagesRead        int        `json:"pages_read"`
	PagesTotal       int        `json:"pages_total"`
	ReadingDirection string     `bun:",nullzero" json:"reading_direction"`
	SortOrder        int        `json:"sort_order"`
	SourceURL        *string    `json:"source_url,omitempty"`
	SeriesID         *int       `json:"series_id,omitempty"`
	Series           *Series    `bun:"rel:belongs-to" json:"series,omitempty"`
	CategoryID       *int       `json:"category_id,omitempty"`
	Category         *Category  `bun:"rel:belongs-to" json:"category,omitempty"`
	Tags             []*Tag     `bun:"m2m:gallery_tags,join:Gallery=Tag" json:"tags,omitempty"`
}

type GalleryTag struct {
	bun.BaseModel `bun:"table:gallery_tags,alias:gt"`

	ID        int      `bun:",pk,nullzero"`
	GalleryID int      `bun:",nullzero"`
	Gallery   *Gallery `bun:"rel:belongs-to,join:gallery_id=id"`
	TagID     int      `bun:",nullzero"`
	Tag       *Tag     `bun:"rel:belongs-to,join:tag_id=id"`
}
