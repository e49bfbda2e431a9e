package importer

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	importService *Service
}

func (h *handler) importStagedFile(c echo.Context) error {
	ctx := c.Request().Context()

	params := ImportPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	gallery, err := h.importService.Import(ctx, params.StagedFileID, Metadata{
		Title:            params.Title,
		Artist:           params.Artist,
		Description:      params.Description,
		ReadingDirection: params.ReadingDirection,
		SeriesName:       params.SeriesName,
		CategoryName:     params.CategoryName,
		Tags:             params.Tags,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, gallery))
}
