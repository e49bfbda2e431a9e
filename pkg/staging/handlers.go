package staging

import (
	"net/http"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tankobonapp/tankobon/pkg/errcodes"
)

type handler struct {
	stagingService *Service
}

func (h *handler) scan(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.stagingService.Scan(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, result))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	rows, err := h.stagingService.ListStagedFiles(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, rows))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Staged file")
	}

	row, err := h.stagingService.RetrieveStagedFile(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, row))
}

func (h *handler) deleteStagedFile(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Staged file")
	}

	if err := h.stagingService.DeleteStagedFile(ctx, id); err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *handler) cover(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Staged file")
	}

	data, err := h.stagingService.PeekCover(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.Blob(http.StatusOK, mimetype.Detect(data).String(), data))
}
