package api

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/reeler/reeler/internal/api/downloads"
	historyController "github.com/reeler/reeler/internal/api/history"
	"github.com/reeler/reeler/pkg/logger"
)

var log = logger.Get("API")

type (
	RestConfig struct {
		HostAddr string `toml:"host_address" env:"HOST_ADDR" env-default:"0.0.0.0"`
		HostPort string `toml:"port" env:"PORT" env-default:"5000"`
	}

	controller interface {
		SetRoutes(*echo.Group)
	}

	// The RestGateway is a thin wrapper around the Echo HTTP router.
	// Its sole responsibility is to create the routes Reeler exposes
	// and to keep the router's lifecycle tied to the service context.
	RestGateway struct {
		config              *RestConfig
		ec                  *echo.Echo
		downloadsController controller
		historyController   controller
	}
)

// NewRestGateway constructs the Echo router and populates it with all
// the routes defined by the various controllers. Each controller
// receives the collaborators it fronts as arguments.
func NewRestGateway(
	config *RestConfig,
	gate downloads.RateGate,
	extractor downloads.Extractor,
	historyService interface {
		downloads.HistorySink
		historyController.Service
	},
) *RestGateway {
	ec := echo.New()
	ec.OnAddRouteHandler = func(host string, route echo.Route, handler echo.HandlerFunc, middleware []echo.MiddlewareFunc) {
		log.Emit(logger.DEBUG, "Registered new route %s %s\n", route.Method, route.Path)
	}
	ec.HidePort = true
	ec.HideBanner = true

	gateway := &RestGateway{
		config:              config,
		ec:                  ec,
		downloadsController: downloads.New(gate, extractor, historyService),
		historyController:   historyController.New(historyService),
	}

	ec.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	ec.Use(middleware.Logger())
	ec.Use(middleware.Recover())
	ec.Pre(middleware.AddTrailingSlash())

	ec.GET("/api/health/", func(ec echo.Context) error {
		return ec.JSON(http.StatusOK, map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	downloadGroup := ec.Group("/api/download")
	gateway.downloadsController.SetRoutes(downloadGroup)

	historyGroup := ec.Group("/api/history")
	gateway.historyController.SetRoutes(historyGroup)

	return gateway
}

func (gateway *RestGateway) Run(parentCtx context.Context) error {
	ctx, ctxCancel := context.WithCancelCause(parentCtx)
	wg := &sync.WaitGroup{}

	// Start echo router
	wg.Add(1)
	go func() {
		defer wg.Done()
		addr := net.JoinHostPort(gateway.config.HostAddr, gateway.config.HostPort)
		log.Emit(logger.INFO, "Serving on %s\n", addr)
		if err := gateway.ec.Start(addr); err != nil {
			ctxCancel(err)
		}
	}()

	// Start thread to listen for context cancellation
	go func(ec *echo.Echo) {
		<-ctx.Done()
		ec.Close()
	}(gateway.ec)

	wg.Wait()

	// Return cancellation cause if any, otherwise nil as parent
	// context cancellation is not an error case we should report.
	if cause := context.Cause(ctx); cause != ctx.Err() {
		return cause
	}

	return nil
}
