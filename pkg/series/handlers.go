package series

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tankobonapp/tankobon/pkg/database"
	"github.com/tankobonapp/tankobon/pkg/errcodes"
	"github.com/tankobonapp/tankobon/pkg/galleries"
	"github.com/tankobonapp/tankobon/pkg/models"
)

type handler struct {
	seriesService  *Service
	galleryService *galleries.Service
}

// seriesResponse is a series row plus its derived, read-time attributes.
type seriesResponse struct {
	*models.Series
	Aggregate
}

func galleryThumbnailURL(galleryID int) string {
	return fmt.Sprintf("/api/galleries/%d/thumbnail", galleryID)
}

func toResponse(s *models.Series) seriesResponse {
	return seriesResponse{s, Compute(s, galleryThumbnailURL)}
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListSeriesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	all, total, err := h.seriesService.ListSeriesWithTotal(ctx, ListSeriesOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		Search: params.Search,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	items := make([]seriesResponse, len(all))
	for i, s := range all {
		items[i] = toResponse(s)
	}

	response := map[string]any{
		"series": items,
		"total":  total,
	}

	return errors.WithStack(c.JSON(http.StatusOK, response))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Series")
	}

	s, err := h.seriesService.RetrieveSeries(ctx, RetrieveSeriesOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, toResponse(s)))
}

// update applies a partial series edit. Renaming a series moves every member
// gallery's archive to the path derived from the new name.
func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Series")
	}

	params := UpdateSeriesPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	s, err := h.seriesService.RetrieveSeries(ctx, RetrieveSeriesOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	var columns []string
	renamed := false

	if params.Name != nil {
		newName := strings.TrimSpace(*params.Name)
		if newName == "" {
			return errcodes.ValidationError("Series name cannot be empty.")
		}
		if newName != s.Name {
			existing, err := h.seriesService.RetrieveSeries(ctx, RetrieveSeriesOptions{Name: &newName})
			if err == nil && existing.ID != id {
				return errcodes.ValidationError("A series with that name already exists.")
			}
			s.Name = newName
			columns = append(columns, "name")
			renamed = true
		}
	}
	if params.Description != nil {
		s.Description = params.Description
		columns = append(columns, "description")
	}
	if params.ThumbnailURL != nil {
		if *params.ThumbnailURL == "" {
			s.ThumbnailURL = nil
		} else {
			s.ThumbnailURL = params.ThumbnailURL
		}
		columns = append(columns, "thumbnail_url")
	}
	if params.CategoryName != nil {
		if *params.CategoryName == "" {
			s.CategoryID = nil
		} else {
			category, err := database.FindOrCreateByName(ctx, h.seriesService.db, *params.CategoryName, func(name string) *models.Category {
				return &models.Category{Name: name}
			})
			if err != nil {
				return errors.WithStack(err)
			}
			s.CategoryID = &category.ID
		}
		columns = append(columns, "category_id")
	}

	if err := h.seriesService.UpdateSeries(ctx, s, UpdateSeriesOptions{Columns: columns}); err != nil {
		return errors.WithStack(err)
	}

	if renamed {
		if err := h.galleryService.RelocateSeriesMembers(ctx, id, s.Name); err != nil {
			return errors.WithStack(err)
		}
	}

	s, err = h.seriesService.RetrieveSeries(ctx, RetrieveSeriesOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, toResponse(s)))
}

func (h *handler) reorder(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Series")
	}

	params := ReorderGalleriesPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	if err := h.seriesService.ReorderGalleries(ctx, id, params.GalleryIDs); err != nil {
		return errors.WithStack(err)
	}

	s, err := h.seriesService.RetrieveSeries(ctx, RetrieveSeriesOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, toResponse(s)))
}

func (h *handler) deleteSeries(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Series")
	}

	if err := h.seriesService.DeleteSeries(ctx, id); err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusNoContent)
}
