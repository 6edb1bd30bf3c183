package facebook

type Config struct {
	GraphAPIBaseURL string
	AppID           string
	AppSecret       string
}

type Recipient struct {
	ID string `json:"id"`
}

type MessageText struct {
	Text string `json:"text"`
}

type SendMessagePayload struct {
	Recipient     Recipient   `json:"recipient"`
	Message       MessageText `json:"message"`
	MessagingType string      `json:"messaging_type"`
	AccessToken   string      `json:"access_token"`
}

type SendMessageResponse struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}

type UserProfile struct {
	Name       string `json:"name"`
	ProfilePic string `json:"profile_pic"`
}

type SubscribePayload struct {
	AccessToken      string `json:"access_token"`
	SubscribedFields string `json:"subscribed_fields"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type PageAccount struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
	Category    string `json:"category"`
}

type AccountsResponse struct {
	Data []PageAccount `json:"data"`
}
