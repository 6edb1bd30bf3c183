package server

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aman-1511/Facebook-Helpdesk/auth"
	"github.com/aman-1511/Facebook-Helpdesk/store"
)

func (s *Server) registerHandler(c fiber.Ctx) error {
	var req RegisterRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Name == "" || req.Email == "" || len(req.Password) < 6 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Name, email and a password of at least 6 characters are required",
		})
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Error().Err(err).Msg("Error hashing password")
		return internalError(c)
	}

	user := &store.User{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.store.CreateUser(c.RequestCtx(), user); err != nil {
		if errors.Is(err, store.ErrDuplicateUser) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Email is already registered",
			})
		}
		log.Error().Err(err).Msg("Error creating user")
		return internalError(c)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		log.Error().Err(err).Msg("Error generating token")
		return internalError(c)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "User registered successfully",
		"token":   token,
		"user":    user,
	})
}

func (s *Server) loginHandler(c fiber.Ctx) error {
	var req LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.store.GetUserByEmail(c.RequestCtx(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return invalidCredentials(c)
		}
		log.Error().Err(err).Msg("Error loading user")
		return internalError(c)
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return invalidCredentials(c)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		log.Error().Err(err).Msg("Error generating token")
		return internalError(c)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"token":   token,
		"user":    user,
	})
}

func (s *Server) profileHandler(c fiber.Ctx) error {
	user, err := s.store.GetUser(c.RequestCtx(), userID(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "User not found",
			})
		}
		log.Error().Err(err).Msg("Error loading user")
		return internalError(c)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

func invalidCredentials(c fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"message": "Invalid email or password",
	})
}

func internalError(c fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"message": "An unexpected error occurred",
	})
}
