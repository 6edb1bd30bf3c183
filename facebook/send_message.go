package facebook

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// SendTextMessage dispatches a text message to a customer through the
// Messenger Send API and returns the provider-assigned message id.
func (c *Client) SendTextMessage(ctx context.Context, pageID, accessToken, recipientID, text string) (*SendMessageResponse, error) {
	payload := SendMessagePayload{
		Recipient:     Recipient{ID: recipientID},
		Message:       MessageText{Text: text},
		MessagingType: "RESPONSE",
		AccessToken:   accessToken,
	}

	url := fmt.Sprintf("%s/%s/messages", c.config.GraphAPIBaseURL, pageID)

	var response SendMessageResponse
	if err := c.postJSON(ctx, url, payload, &response); err != nil {
		return nil, err
	}

	log.Debug().
		Str("page_id", pageID).
		Str("recipient_id", recipientID).
		Str("message_id", response.MessageID).
		Msg("Sent Messenger message")

	return &response, nil
}
