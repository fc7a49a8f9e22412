package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/nzci/enrolbridge/app/controllers"
	"github.com/nzci/enrolbridge/internal/pkg/cache"
	"github.com/nzci/enrolbridge/internal/pkg/config"
	"github.com/nzci/enrolbridge/internal/pkg/courses"
	"github.com/nzci/enrolbridge/internal/pkg/database"
	"github.com/nzci/enrolbridge/internal/pkg/edapp"
	"github.com/nzci/enrolbridge/internal/pkg/enrollment"
	"github.com/nzci/enrolbridge/internal/pkg/env"
	"github.com/nzci/enrolbridge/internal/pkg/ledger"
	"github.com/nzci/enrolbridge/internal/pkg/linkedin"
	"github.com/nzci/enrolbridge/internal/pkg/router"
	"github.com/nzci/enrolbridge/internal/pkg/tokenstore"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "0.0.0.0"), env.GetEnv("APP_PORT", "5050")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	cfg := config.NewFromEnv()

	sales := newLedgerStore(cfg)
	tokens := newTokenStore(cfg)

	resolver := courses.NewResolver(cfg)
	directory := edapp.NewClient(cfg.EdAppAPIKey, cfg.EdAppBaseURL)
	enrollments := enrollment.NewService(resolver, directory, sales, cfg.DefaultProduct)
	linkedInClient := linkedin.NewClient(cfg)

	app := fiber.New()
	app.Use(recover.New(), logger.New())

	if cfg.DashboardPassword != "" {
		app.Get("/metrics", basicauth.New(basicauth.Config{
			Users: map[string]string{
				"admin": cfg.DashboardPassword,
			},
		}), monitor.New())
	}

	router.InstallRouter(app, router.NewHttpRouter(
		cfg,
		controllers.NewWebhookController(enrollments),
		controllers.NewLinkedInController(linkedInClient, tokens),
	))

	return app
}

func newLedgerStore(cfg *config.Config) ledger.Store {
	switch cfg.LedgerBackend {
	case "mysql":
		database.SetupDatabase()
		log.Print("sale ledger backend: mysql")
		return ledger.NewGormStore(database.GetDB())
	default:
		log.Printf("sale ledger backend: file (%s)", cfg.LedgerPath)
		return ledger.NewFileStore(cfg.LedgerPath)
	}
}

func newTokenStore(cfg *config.Config) tokenstore.Store {
	switch cfg.TokenBackend {
	case "redis":
		cache.SetupCache()
		log.Print("token slot backend: redis")
		return tokenstore.NewRedisStore(cache.GetClient())
	default:
		log.Printf("token slot backend: file (%s)", cfg.TokenPath)
		return tokenstore.NewFileStore(cfg.TokenPath)
	}
}
