package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

const serviceName = "NZCI Flexi Gumroad->EdApp Bridge"

func HandleHealth(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":    "ok",
		"service":   serviceName,
		"version":   "1.0",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func HandleIndex(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"service": serviceName,
		"endpoints": []string{
			"/health",
			"/webhook/gumroad",
			"/linkedin/auth",
			"/linkedin/callback",
			"/linkedin/post",
			"/linkedin/status",
		},
	})
}
