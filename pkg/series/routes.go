package series

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"

	"github.com/tankobonapp/tankobon/pkg/galleries"
)

// RegisterRoutesWithGroup registers series routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, galleryService *galleries.Service) {
	h := &handler{
		seriesService:  NewService(db),
		galleryService: galleryService,
	}

	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
	g.PATCH("/:id", h.update)
	g.PUT("/:id/order", h.reorder)
	g.DELETE("/:id", h.deleteSeries)
}
