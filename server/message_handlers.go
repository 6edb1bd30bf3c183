package server

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/aman-1511/Facebook-Helpdesk/processor"
	"github.com/aman-1511/Facebook-Helpdesk/store"
)

func (s *Server) listConversationsHandler(c fiber.Ctx) error {
	pageID := c.Params("pageId")

	// Only the owning account may read a page's conversations.
	page, err := s.store.GetPageForUser(c.RequestCtx(), userID(c), pageID)
	if err != nil || page.Status != store.PageStatusConnected {
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Msg("Error loading page")
			return internalError(c)
		}
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Page not found or not connected",
		})
	}

	conversations, err := s.store.ListConversationsByPage(c.RequestCtx(), pageID)
	if err != nil {
		log.Error().Err(err).Msg("Error listing conversations")
		return internalError(c)
	}

	if conversations == nil {
		conversations = []*store.Conversation{}
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"conversations": conversations,
	})
}

func (s *Server) getConversationHandler(c fiber.Ctx) error {
	conversationID := c.Params("conversationId")

	conv, err := s.store.GetConversation(c.RequestCtx(), conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Conversation not found",
			})
		}
		log.Error().Err(err).Msg("Error loading conversation")
		return internalError(c)
	}

	if _, err := s.store.GetPageForUser(c.RequestCtx(), userID(c), conv.PageID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "Unauthorized access to this conversation",
			})
		}
		log.Error().Err(err).Msg("Error loading page")
		return internalError(c)
	}

	messages, err := s.store.ListMessagesByConversation(c.RequestCtx(), conversationID)
	if err != nil {
		log.Error().Err(err).Msg("Error listing messages")
		return internalError(c)
	}

	if messages == nil {
		messages = []*store.Message{}
	}

	// Opening the thread marks its inbound messages read.
	if err := s.store.MarkConversationRead(c.RequestCtx(), conversationID); err != nil {
		log.Error().Err(err).Msg("Error marking conversation read")
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"conversation": conv,
		"messages":     messages,
	})
}

func (s *Server) sendMessageHandler(c fiber.Ctx) error {
	conversationID := c.Params("conversationId")

	var req SendMessageRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	msg, err := s.engine.SendReply(c.RequestCtx(), conversationID, userID(c), req.Content)
	if err != nil {
		switch {
		case errors.Is(err, processor.ErrInvalidInput):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Message content is required",
			})
		case errors.Is(err, store.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Conversation not found",
			})
		case errors.Is(err, processor.ErrUnauthorized):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "Unauthorized access to this conversation",
			})
		case errors.Is(err, processor.ErrPageNotConnected):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Page not found or not connected",
			})
		case errors.Is(err, processor.ErrDeliveryFailed):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"success": false,
				"message": "Failed to deliver the message, please try again",
			})
		default:
			log.Error().Err(err).Msg("Error sending reply")
			return internalError(c)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Message sent successfully",
		"data":    msg,
	})
}
