package controllers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nzci/enrolbridge/internal/pkg/apperrors"
	"github.com/nzci/enrolbridge/internal/pkg/enrollment"
)

const webhookTimeout = 20 * time.Second

// WebhookController handles the Gumroad sale webhook and the operator-facing
// reconciliation entry point.
type WebhookController struct {
	enrollments *enrollment.Service
}

func NewWebhookController(enrollments *enrollment.Service) *WebhookController {
	return &WebhookController{enrollments: enrollments}
}

func (wc *WebhookController) HandleGumroadWebhook(c *fiber.Ctx) error {
	input := enrollment.SaleInput{
		Email:            c.FormValue("email"),
		FullName:         c.FormValue("full_name"),
		ProductPermalink: c.FormValue("product_permalink"),
		Price:            c.FormValue("price"),
		SaleID:           c.FormValue("sale_id"),
	}
	log.Printf("gumroad ping: email=%s product=%s price=%s sale=%s",
		input.Email, input.ProductPermalink, input.Price, input.SaleID)

	event, err := wc.enrollments.NormalizeSale(input)
	if err != nil {
		var valErr *apperrors.ValidationError
		if errors.As(err, &valErr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": valErr.Msg})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	result, err := wc.enrollments.ProcessSale(ctx, event)
	if err != nil {
		log.Printf("sale %s provisioning failed: %v", event.SaleID, err)
		var provErr *apperrors.ProvisioningError
		if errors.As(err, &provErr) && provErr.Op == enrollment.OpEnrolment {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Enrolment failed"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "User creation failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":    "success",
		"message":   fmt.Sprintf("%s enrolled in NZCI Flexi %s", result.Name, result.Tier),
		"tier":      result.Tier,
		"course_id": result.CourseID,
	})
}

// HandleReconcile replays provisioning for ledgered sales without a success
// outcome. There is no automatic retry anywhere else in the pipeline.
func (wc *WebhookController) HandleReconcile(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	report, err := wc.enrollments.Reconcile(ctx)
	if err != nil {
		log.Printf("reconciliation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "reconciliation failed"})
	}
	return c.Status(fiber.StatusOK).JSON(report)
}
