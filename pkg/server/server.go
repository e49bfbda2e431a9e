package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/uptrace/bun"

	"github.com/tankobonapp/tankobon/pkg/binder"
	"github.com/tankobonapp/tankobon/pkg/categories"
	"github.com/tankobonapp/tankobon/pkg/config"
	"github.com/tankobonapp/tankobon/pkg/errcodes"
	"github.com/tankobonapp/tankobon/pkg/galleries"
	"github.com/tankobonapp/tankobon/pkg/importer"
	"github.com/tankobonapp/tankobon/pkg/plugins"
	"github.com/tankobonapp/tankobon/pkg/series"
	"github.com/tankobonapp/tankobon/pkg/staging"
	"github.com/tankobonapp/tankobon/pkg/tags"
)

func New(cfg *config.Config, db *bun.DB) (*http.Server, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	registerAPIRoutes(e, db, cfg)

	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func registerAPIRoutes(e *echo.Echo, db *bun.DB, cfg *config.Config) {
	api := e.Group("/api")

	galleryService := galleries.NewService(db, cfg)

	galleries.RegisterRoutesWithGroup(api.Group("/galleries"), galleryService)
	series.RegisterRoutesWithGroup(api.Group("/series"), db, galleryService)
	categories.RegisterRoutesWithGroup(api.Group("/categories"), db)
	tags.RegisterRoutesWithGroup(api.Group("/tags"), db)
	staging.RegisterRoutesWithGroup(api.Group("/staging"), db, cfg)
	importer.RegisterRoutesWithGroup(api.Group("/import"), db, cfg)
	plugins.RegisterRoutesWithGroup(api.Group("/plugins"), cfg)
}
