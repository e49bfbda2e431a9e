package importer

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"

	"github.com/tankobonapp/tankobon/pkg/config"
)

// RegisterRoutesWithGroup registers import routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, cfg *config.Config) {
	h := &handler{
		importService: NewService(db, cfg),
	}

	g.POST("", h.importStagedFile)
}
