package server

import (
	"strings"

	"app/internal/config"
	"app/internal/handler"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Handlersはルート登録に必要なハンドラ一式。
type Handlers struct {
	Auth        *handler.AuthHandler
	Order       *handler.OrderHandler
	Payment     *handler.PaymentHandler
	Return      *handler.ReturnHandler
	AdminOrder  *handler.AdminOrderHandler
	AdminReturn *handler.AdminReturnHandler
	AdminStock  *handler.AdminStockHandler
}

// Newはechoインスタンスを組み立てて返す。起動はしない。
func New(cfg config.Config, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	if cfg.FEURL != "" {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     []string{cfg.FEURL},
			AllowCredentials: true,
		}))
	}

	RegisterRoutes(e, cfg, h)
	return e
}

// Startはサーバーを起動する。
func Start(e *echo.Echo, cfg config.Config) error {
	addr := cfg.Port
	if !strings.HasPrefix(addr, ":") {
		addr = ":" + addr
	}
	return e.Start(addr)
}
