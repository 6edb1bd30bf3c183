package server

func (s *Server) setupRoutes() {
	// Webhook endpoints must stay reachable without auth; Facebook calls them.
	s.app.Get("/api/facebook/webhook", s.verifyWebhookHandler)
	s.app.Post("/api/facebook/webhook", s.webhookHandler)

	s.app.Post("/api/auth/register", s.registerHandler)
	s.app.Post("/api/auth/login", s.loginHandler)
	s.app.Get("/api/auth/profile", s.profileHandler, s.requireAuth)

	s.app.Post("/api/facebook/exchange-token", s.exchangeTokenHandler, s.requireAuth)
	s.app.Post("/api/facebook/connect-page", s.connectPageHandler, s.requireAuth)
	s.app.Delete("/api/facebook/disconnect-page/:pageId", s.disconnectPageHandler, s.requireAuth)
	s.app.Get("/api/facebook/pages", s.listPagesHandler, s.requireAuth)

	s.app.Get("/api/messages/pages/:pageId/conversations", s.listConversationsHandler, s.requireAuth)
	s.app.Get("/api/messages/conversations/:conversationId", s.getConversationHandler, s.requireAuth)
	s.app.Post("/api/messages/conversations/:conversationId/messages", s.sendMessageHandler, s.requireAuth)

	s.app.Get("/api/realtime/stream", s.streamHandler, s.requireAuth)
}
