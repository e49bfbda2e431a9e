package galleries

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutesWithGroup registers gallery routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, galleryService *Service) {
	h := &handler{
		galleryService: galleryService,
	}

	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
	g.PATCH("/:id", h.update)
	g.PUT("/:id/progress", h.progress)
	g.DELETE("/:id", h.deleteGallery)
	g.GET("/:id/pages/:page", h.page)
	g.GET("/:id/thumbnail", h.thumbnail)
}
