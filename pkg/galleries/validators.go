package galleries

type ListGalleriesQuery struct {
	Limit      int     `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=100"`
	Offset     int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	SeriesID   *int    `query:"series_id" json:"series_id,omitempty" validate:"omitempty,min=1"`
	CategoryID *int    `query:"category_id" json:"category_id,omitempty" validate:"omitempty,min=1"`
	Status     *string `query:"status" json:"status,omitempty" validate:"omitempty,oneof=New Reading Completed"`
	Search     *string `query:"search" json:"search,omitempty" validate:"omitempty,max=100"`
}

type UpdateGalleryPayload struct {
	Title            *string   `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	Artist           *string   `json:"artist,omitempty" validate:"omitempty,min=1,max=300"`
	Circle           *string   `json:"circle,omitempty" validate:"omitempty,max=300"`
	Parody           *string   `json:"parody,omitempty" validate:"omitempty,max=300"`
	Description      *string   `json:"description,omitempty" validate:"omitempty,max=5000"`
	SourceURL        *string   `json:"source_url,omitempty" validate:"omitempty,max=2000"`
	ReadingDirection *string   `json:"reading_direction,omitempty" validate:"omitempty,oneof=LTR RTL"`
	SeriesName       *string   `json:"series_name,omitempty" validate:"omitempty,max=300"`
	CategoryName     *string   `json:"category_name,omitempty" validate:"omitempty,max=300"`
	Tags             *[]string `json:"tags,omitempty" validate:"omitempty,dive,min=1,max=300"`
}

type UpdateProgressPayload struct {
	PagesRead int `json:"pages_read" validate:"min=0"`
}
