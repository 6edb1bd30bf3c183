package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/aman-1511/Facebook-Helpdesk/processor"
)

// verifyWebhookHandler answers the Messenger Platform's subscription
// handshake: echo the challenge when the verify token matches.
func (s *Server) verifyWebhookHandler(c fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == s.webhookVerifyToken {
		log.Info().Msg("Webhook verified")
		return c.SendString(challenge)
	}

	log.Warn().Str("mode", mode).Msg("Webhook verification failed")
	return c.SendStatus(fiber.StatusForbidden)
}

// webhookHandler receives webhook deliveries. Facebook enforces delivery
// timeouts and retries unacknowledged deliveries, so the 200 goes out
// immediately and the events are processed in the background; processing
// failures are logged, never surfaced to the provider.
func (s *Server) webhookHandler(c fiber.Ctx) error {
	var payload WebhookPayload
	if err := c.Bind().JSON(&payload); err != nil {
		log.Error().Err(err).Msg("Error parsing webhook payload")
		return c.Status(fiber.StatusBadRequest).SendString("Error parsing JSON")
	}

	if payload.Object != "page" {
		log.Info().Str("object", payload.Object).Msg("Ignoring non-page webhook event")
		return c.SendString("EVENT_RECEIVED")
	}

	go s.processWebhookPayload(payload)

	return c.SendString("EVENT_RECEIVED")
}

// processWebhookPayload ingests each messaging event independently. One
// failing event never aborts its siblings in the same delivery.
func (s *Server) processWebhookPayload(payload WebhookPayload) {
	ctx := context.Background()

	for _, entry := range payload.Entry {
		for _, event := range entry.Messaging {
			if event.Message == nil {
				continue
			}
			if event.Message.IsEcho {
				// The page's own outbound sends come back as echoes.
				continue
			}

			inbound := processor.InboundEvent{
				PageID:     entry.ID,
				CustomerID: event.Sender.ID,
				MessageID:  event.Message.MID,
				Text:       event.Message.Text,
				OccurredAt: time.UnixMilli(event.Timestamp).UTC(),
			}

			if _, err := s.engine.Ingest(ctx, inbound); err != nil {
				log.Error().
					Err(err).
					Str("page_id", inbound.PageID).
					Str("message_id", inbound.MessageID).
					Msg("Error processing webhook event")
			}
		}
	}
}
