package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/api/http"
	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/config"
	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/geocode"
	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/janitor"
	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/orchestrator"
	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/source/earthdata"
	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/source/power"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for all outbound calls.
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	precise := earthdata.NewClient(httpClient, cfg.SearchRadiusDeg)
	fast := power.NewClient(httpClient, cfg.PowerTimeout)

	collector := orchestrator.NewCollector(precise, cfg.SearchCacheTTL, cfg.IOConcurrency, cfg.SearchConcurrency)
	orc := orchestrator.New(collector, fast, orchestrator.Config{
		PreciseDeadline:  cfg.PreciseDeadline,
		MinViablePoints:  cfg.MinViablePoints,
		SufficiencyRatio: cfg.SufficiencyRatio,
	})

	geo := geocode.NewResolver(cfg.GeocoderAPIKey)
	if !geo.Enabled() {
		log.Println("geocoder disabled; city/country queries will be rejected")
	}

	jan := janitor.New(collector.Cache(), cfg.SearchCacheTTL)
	if err := jan.Start(); err != nil {
		log.Fatalf("failed to start cache janitor: %v", err)
	}
	defer jan.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weatherscope",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.CORSOrigins, ","),
		AllowMethods: "GET,OPTIONS",
	}))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpapi.RegisterRoutes(app, orc, geo)

	go func() {
		log.Printf("listening on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
