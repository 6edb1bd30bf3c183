package server

// Request bodies for the REST surface. Responses are built inline with a
// success flag plus payload or a human-readable message.

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ExchangeTokenRequest struct {
	AccessToken string `json:"accessToken"`
}

type ConnectPageRequest struct {
	PageID          string `json:"pageId"`
	PageName        string `json:"pageName"`
	PageAccessToken string `json:"pageAccessToken"`
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

// Webhook payload shapes, as delivered by the Messenger Platform.

type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID        string           `json:"id"`
	Time      int64            `json:"time"`
	Messaging []MessagingEvent `json:"messaging"`
}

type MessagingEvent struct {
	Sender    WebhookParty    `json:"sender"`
	Recipient WebhookParty    `json:"recipient"`
	Timestamp int64           `json:"timestamp"`
	Message   *WebhookMessage `json:"message,omitempty"`
}

type WebhookParty struct {
	ID string `json:"id"`
}

type WebhookMessage struct {
	MID    string `json:"mid"`
	Text   string `json:"text"`
	IsEcho bool   `json:"is_echo,omitempty"`
}
