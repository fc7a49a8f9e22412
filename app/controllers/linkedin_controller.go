package controllers

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/nzci/enrolbridge/app/models"
	"github.com/nzci/enrolbridge/internal/pkg/apperrors"
	"github.com/nzci/enrolbridge/internal/pkg/linkedin"
	"github.com/nzci/enrolbridge/internal/pkg/tokenstore"
)

const (
	oauthStateTTL   = 10 * time.Minute
	linkedinTimeout = 20 * time.Second
)

var validate = validator.New()

// LinkedInController drives the authorization handshake, the token slot and
// the publish endpoint for the single authorized member.
type LinkedInController struct {
	client    *linkedin.Client
	tokens    tokenstore.Store
	publisher *linkedin.Publisher
}

func NewLinkedInController(client *linkedin.Client, tokens tokenstore.Store) *LinkedInController {
	return &LinkedInController{
		client:    client,
		tokens:    tokens,
		publisher: linkedin.NewPublisher(client, tokens),
	}
}

// HandleAuth starts the consent flow with a fresh single-use state nonce.
func (lc *LinkedInController) HandleAuth(c *fiber.Ctx) error {
	state := uuid.NewString()
	if err := lc.tokens.SaveState(state, oauthStateTTL); err != nil {
		log.Printf("oauth state persist failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "state persistence failed"})
	}

	url, err := lc.client.AuthorizeURLWithState(state)
	if err != nil {
		log.Printf("authorize url build failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "linkedin oauth is not configured"})
	}
	return c.Redirect(url, fiber.StatusFound)
}

// HandleCallback completes the handshake: exactly one token exchange and at
// most two token slot writes (bundle, then person URN overlay) per success.
func (lc *LinkedInController) HandleCallback(c *fiber.Ctx) error {
	if oauthErr := strings.TrimSpace(c.Query("error")); oauthErr != "" {
		// Terminal provider denial; no exchange is attempted.
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":             oauthErr,
			"error_description": c.Query("error_description"),
		})
	}

	state := strings.TrimSpace(c.Query("state"))
	ok, err := lc.tokens.ConsumeState(state)
	if err != nil {
		log.Printf("oauth state lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "state verification failed"})
	}
	if state == "" || !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "state mismatch"})
	}

	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing authorization code"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), linkedinTimeout)
	defer cancel()

	token, err := lc.client.ExchangeCode(ctx, code)
	if err != nil {
		log.Printf("token exchange failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "token exchange failed"})
	}

	bundle := &models.OAuthTokenBundle{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    token.ExpiresIn,
		IssuedAt:     time.Now().UTC(),
	}
	// Token slot write failures are fatal for the request, unlike the
	// swallowed sale ledger errors: a lost credential strands publishing.
	if err := lc.tokens.Save(bundle); err != nil {
		log.Printf("token persist failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "token persistence failed"})
	}

	info, err := lc.client.GetUserInfo(ctx, token.AccessToken)
	if err != nil {
		// The bundle is already persisted; the publisher resolves the
		// actor lazily on the next publish.
		log.Printf("actor resolution failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "actor resolution failed"})
	}
	bundle.PersonURN = info.PersonURN()
	if err := lc.tokens.Save(bundle); err != nil {
		log.Printf("token persist failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "token persistence failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":     "connected",
		"message":    "LinkedIn authorized for " + info.Name,
		"person_urn": bundle.PersonURN,
		"expires_in": bundle.ExpiresIn,
	})
}

type postRequest struct {
	Text string `json:"text" validate:"required"`
}

// HandlePost publishes a text share as the authorized member.
func (lc *LinkedInController) HandlePost(c *fiber.Ctx) error {
	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body"})
	}
	req.Text = strings.TrimSpace(req.Text)
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "text is required"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), linkedinTimeout)
	defer cancel()

	postID, err := lc.publisher.Publish(ctx, req.Text)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not connected to LinkedIn"})
		}
		var pubErr *apperrors.PublishError
		if errors.As(err, &pubErr) {
			// Remote status and body pass through untouched.
			return c.Status(pubErr.StatusCode).JSON(fiber.Map{"error": "publish failed", "body": pubErr.Body})
		}
		log.Printf("publish failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "publish failed"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":  "posted",
		"post_id": postID,
	})
}

// HandleStatus reports the credential slot. Always 200; a broken store reads
// as not connected.
func (lc *LinkedInController) HandleStatus(c *fiber.Ctx) error {
	connected, personURN, expiresIn, err := lc.publisher.Status()
	if err != nil {
		log.Printf("token slot read failed: %v", err)
	}
	if !connected {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"connected": false})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"connected":  true,
		"person_urn": personURN,
		"expires_in": expiresIn,
	})
}
