package server

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aman-1511/Facebook-Helpdesk/store"
)

func (s *Server) exchangeTokenHandler(c fiber.Ctx) error {
	var req ExchangeTokenRequest
	if err := c.Bind().JSON(&req); err != nil || req.AccessToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Access token is required",
		})
	}

	longLivedToken, err := s.fbClient.ExchangeToken(c.RequestCtx(), req.AccessToken)
	if err != nil {
		log.Error().Err(err).Msg("Token exchange failed")
		return internalError(c)
	}

	pages, err := s.fbClient.ListAccounts(c.RequestCtx(), longLivedToken)
	if err != nil {
		log.Error().Err(err).Msg("Listing accounts failed")
		return internalError(c)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Token exchanged successfully",
		"pages":   pages,
	})
}

func (s *Server) connectPageHandler(c fiber.Ctx) error {
	var req ConnectPageRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if req.PageID == "" || req.PageName == "" || req.PageAccessToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "pageId, pageName and pageAccessToken are required",
		})
	}

	accountID := userID(c)

	existing, err := s.store.GetPageForUser(c.RequestCtx(), accountID, req.PageID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Error().Err(err).Msg("Error loading page")
		return internalError(c)
	}

	if existing != nil {
		if existing.Status == store.PageStatusConnected {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "This page is already connected",
			})
		}

		// Reconnect: flip the status back and rotate the credential.
		if err := s.store.ReconnectPage(c.RequestCtx(), existing.ID, req.PageAccessToken); err != nil {
			log.Error().Err(err).Msg("Error reconnecting page")
			return internalError(c)
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Page reconnected successfully",
			"page": fiber.Map{
				"id":        existing.ID,
				"page_id":   existing.PageID,
				"page_name": existing.PageName,
				"status":    store.PageStatusConnected,
			},
		})
	}

	page := &store.Page{
		ID:          uuid.New().String(),
		UserID:      accountID,
		PageID:      req.PageID,
		PageName:    req.PageName,
		AccessToken: req.PageAccessToken,
		Status:      store.PageStatusConnected,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := s.store.CreatePage(c.RequestCtx(), page); err != nil {
		if errors.Is(err, store.ErrDuplicatePage) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "This page is already connected by another account",
			})
		}
		log.Error().Err(err).Msg("Error creating page link")
		return internalError(c)
	}

	if err := s.fbClient.SubscribePageWebhooks(c.RequestCtx(), req.PageID, req.PageAccessToken); err != nil {
		log.Error().Err(err).Str("page_id", req.PageID).Msg("Webhook subscription failed")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Page connected successfully",
		"page": fiber.Map{
			"id":        page.ID,
			"page_id":   page.PageID,
			"page_name": page.PageName,
			"status":    page.Status,
		},
	})
}

func (s *Server) disconnectPageHandler(c fiber.Ctx) error {
	pageID := c.Params("pageId")

	page, err := s.store.GetPageForUser(c.RequestCtx(), userID(c), pageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Page not found",
			})
		}
		log.Error().Err(err).Msg("Error loading page")
		return internalError(c)
	}

	if err := s.store.DisconnectPage(c.RequestCtx(), page.ID); err != nil {
		log.Error().Err(err).Msg("Error disconnecting page")
		return internalError(c)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Page disconnected successfully",
	})
}

func (s *Server) listPagesHandler(c fiber.Ctx) error {
	pages, err := s.store.ListConnectedPages(c.RequestCtx(), userID(c))
	if err != nil {
		log.Error().Err(err).Msg("Error listing pages")
		return internalError(c)
	}

	if pages == nil {
		pages = []*store.Page{}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"pages":   pages,
	})
}
