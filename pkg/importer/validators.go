package importer

type ImportPayload struct {
	StagedFileID     int      `json:"staged_file_id" validate:"required,min=1"`
	Title            string   `json:"title" validate:"required,min=1,max=500"`
	Artist           string   `json:"artist" validate:"required,min=1,max=300"`
	Description      *string  `json:"description,omitempty" validate:"omitempty,max=5000"`
	ReadingDirection string   `json:"reading_direction,omitempty" default:"LTR" validate:"omitempty,oneof=LTR RTL"`
	SeriesName       *string  `json:"series_name,omitempty" validate:"omitempty,max=300"`
	CategoryName     *string  `json:"category_name,omitempty" validate:"omitempty,max=300"`
	Tags             []string `json:"tags,omitempty" validate:"omitempty,dive,max=300"`
}
