package series

type ListSeriesQuery struct {
	Limit  int     `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=100"`
	Offset int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Search *string `query:"search" json:"search,omitempty" validate:"omitempty,max=100"`
}

type UpdateSeriesPayload struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,min=1,max=300"`
	Description  *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	ThumbnailURL *string `json:"thumbnail_url,omitempty" validate:"omitempty,max=2000"`
	CategoryName *string `json:"category_name,omitempty" validate:"omitempty,max=300"`
}

type ReorderGalleriesPayload struct {
	GalleryIDs []int `json:"gallery_ids" validate:"required,min=1,dive,min=1"`
}
