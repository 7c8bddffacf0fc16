package server

import (
	"shop/internal/config"
	"shop/internal/handler"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

func Start(
	cfg config.Config,
	authH *handler.AuthHandler,
	productH *handler.ProductHandler,
	cartH *handler.CartHandler,
	paymentH *handler.PaymentHandler,
) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())

	authH.RegisterRoutes(e)
	productH.RegisterRoutes(e, cfg)
	cartH.RegisterRoutes(e, cfg)
	paymentH.RegisterRoutes(e, cfg)

	return e.Start(":" + cfg.Port)
}
