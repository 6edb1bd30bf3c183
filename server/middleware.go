package server

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// setupMiddleware configures the middleware stack for the server.
func (s *Server) setupMiddleware() {
	s.app.Use(recover.New())
	s.app.Use(logger.New())

	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{s.clientURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	}))
}

// requireAuth verifies the agent's token and stores the account id in
// request locals. The realtime stream cannot set headers from EventSource,
// so a token query parameter is accepted as a fallback.
func (s *Server) requireAuth(c fiber.Ctx) error {
	tokenString := ""

	if header := c.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		tokenString = strings.TrimPrefix(header, "Bearer ")
	} else if token := c.Query("token"); token != "" {
		tokenString = token
	}

	if tokenString == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "No token provided",
		})
	}

	userID, err := s.tokens.Verify(tokenString)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Invalid or expired token",
		})
	}

	c.Locals("userID", userID)
	return c.Next()
}

// userID returns the authenticated account id set by requireAuth.
func userID(c fiber.Ctx) string {
	id, _ := c.Locals("userID").(string)
	return id
}
