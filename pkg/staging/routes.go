package staging

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"

	"github.com/tankobonapp/tankobon/pkg/config"
)

// RegisterRoutesWithGroup registers staging routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, cfg *config.Config) {
	h := &handler{
		stagingService: NewService(db, cfg),
	}

	g.GET("", h.list)
	g.POST("/scan", h.scan)
	g.GET("/:id", h.retrieve)
	g.DELETE("/:id", h.deleteStagedFile)
	g.GET("/:id/cover", h.cover)
}
