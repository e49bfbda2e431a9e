package plugins

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tankobonapp/tankobon/pkg/config"
)

type handler struct {
	pluginService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	infos, err := h.pluginService.ListPlugins(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, infos))
}

// RegisterRoutesWithGroup registers plugin routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, cfg *config.Config) {
	h := &handler{
		pluginService: NewService(cfg),
	}

	g.GET("", h.list)
}
