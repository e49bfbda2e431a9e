package models

import (
	"time"

	"github.com/uptrace/bun"
)

// StagedFile is an archive detected in the input directory that hasn't been
// promoted into the library yet. The filesystem is the source of truth: rows
// are created when a new physical file appears and deleted when it vanishes.
type StagedFile struct {
	bun.BaseModel `bun:"table:staged_files,alias:sf"`

	ID              int       `bun:",pk,nullzero" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Filename        string    `bun:",nullzero" json:"filename"`
	Filepath        string    `bun:",nullzero" json:"-"`
	SuggestedTitle  string    `bun:",nullzero" json:"suggested_title"`
	SuggestedArtist *string   `json:"suggested_artist,omitempty"`
}
