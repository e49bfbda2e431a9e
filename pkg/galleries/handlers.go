package galleries

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tankobonapp/tankobon/pkg/errcodes"
)

type handler struct {
	galleryService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListGalleriesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	galleries, total, err := h.galleryService.ListGalleriesWithTotal(ctx, ListGalleriesOptions{
		Limit:      &params.Limit,
		Offset:     &params.Offset,
		SeriesID:   params.SeriesID,
		CategoryID: params.CategoryID,
		Status:     params.Status,
		Search:     params.Search,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	response := map[string]any{
		"galleries": galleries,
		"total":     total,
	}

	return errors.WithStack(c.JSON(http.StatusOK, response))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Gallery")
	}

	gallery, err := h.galleryService.RetrieveGallery(ctx, RetrieveGalleryOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, gallery))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Gallery")
	}

	params := UpdateGalleryPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	gallery, err := h.galleryService.UpdateGalleryMetadata(ctx, id, UpdateGalleryOptions{
		Title:            params.Title,
		Artist:           params.Artist,
		Circle:           params.Circle,
		Parody:           params.Parody,
		Description:      params.Description,
		SourceURL:        params.SourceURL,
		ReadingDirection: params.ReadingDirection,
		SeriesName:       params.SeriesName,
		CategoryName:     params.CategoryName,
		Tags:             params.Tags,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, gallery))
}

func (h *handler) progress(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Gallery")
	}

	params := UpdateProgressPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	gallery, err := h.galleryService.UpdateProgress(ctx, id, params.PagesRead)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, gallery))
}

func (h *handler) deleteGallery(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Gallery")
	}

	if err := h.galleryService.DeleteGallery(ctx, id); err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// page serves the raw stored bytes of a single archive page. Pages are
// numbered from 1.
func (h *handler) page(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Gallery")
	}
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil {
		return errcodes.PageOutOfRange(0, 0)
	}

	data, contentType, err := h.galleryService.ReadPage(ctx, id, page)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.Blob(http.StatusOK, contentType, data))
}

func (h *handler) thumbnail(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Gallery")
	}

	path, err := h.galleryService.ThumbnailPath(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.File(path))
}
