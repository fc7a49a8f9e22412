package router

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/nzci/enrolbridge/app/controllers"
	"github.com/nzci/enrolbridge/internal/pkg/config"
)

// HttpRouter wires the webhook, LinkedIn and meta endpoints.
type HttpRouter struct {
	cfg      *config.Config
	webhooks *controllers.WebhookController
	linkedIn *controllers.LinkedInController
}

func NewHttpRouter(cfg *config.Config, webhooks *controllers.WebhookController, linkedIn *controllers.LinkedInController) *HttpRouter {
	return &HttpRouter{cfg: cfg, webhooks: webhooks, linkedIn: linkedIn}
}

func (h *HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/", controllers.HandleIndex)
	app.Get("/health", controllers.HandleHealth)

	app.Post("/webhook/gumroad", h.webhooks.HandleGumroadWebhook)

	li := app.Group("/linkedin", limiter.New())
	li.Get("/auth", h.linkedIn.HandleAuth)
	li.Get("/callback", h.linkedIn.HandleCallback)
	li.Post("/post", h.linkedIn.HandlePost)
	li.Get("/status", h.linkedIn.HandleStatus)

	if h.cfg.DashboardPassword == "" {
		log.Print("DASHBOARD_PASSWORD not set, admin endpoints disabled")
		return
	}
	admin := app.Group("/admin", basicauth.New(basicauth.Config{
		Users: map[string]string{
			"admin": h.cfg.DashboardPassword,
		},
	}))
	admin.Post("/reconcile", h.webhooks.HandleReconcile)
}
