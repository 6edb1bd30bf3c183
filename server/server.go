package server

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/aman-1511/Facebook-Helpdesk/auth"
	"github.com/aman-1511/Facebook-Helpdesk/facebook"
	"github.com/aman-1511/Facebook-Helpdesk/processor"
	"github.com/aman-1511/Facebook-Helpdesk/realtime"
	"github.com/aman-1511/Facebook-Helpdesk/store"
)

type Server struct {
	app                *fiber.App
	store              store.Store
	engine             *processor.Engine
	fbClient           *facebook.Client
	hub                *realtime.Hub
	tokens             *auth.TokenManager
	webhookVerifyToken string
	clientURL          string
}

func New(st store.Store, engine *processor.Engine, fbClient *facebook.Client, hub *realtime.Hub, tokens *auth.TokenManager, webhookVerifyToken, clientURL string) *Server {
	app := fiber.New()

	server := &Server{
		app:                app,
		store:              st,
		engine:             engine,
		fbClient:           fbClient,
		hub:                hub,
		tokens:             tokens,
		webhookVerifyToken: webhookVerifyToken,
		clientURL:          clientURL,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) Start(port string) {
	log.Info().Str("port", port).Msg("Starting helpdesk server")

	err := s.app.Listen(":"+port, fiber.ListenConfig{
		DisableStartupMessage: true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
