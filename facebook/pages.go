package facebook

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog/log"
)

// subscribedFields are the webhook fields the app subscribes to on connect.
const subscribedFields = "messages,messaging_postbacks,messaging_optins,message_deliveries,message_reads"

// SubscribePageWebhooks subscribes the app to a page so Facebook starts
// delivering its webhook events.
func (c *Client) SubscribePageWebhooks(ctx context.Context, pageID, accessToken string) error {
	payload := SubscribePayload{
		AccessToken:      accessToken,
		SubscribedFields: subscribedFields,
	}

	requestURL := fmt.Sprintf("%s/%s/subscribed_apps", c.config.GraphAPIBaseURL, pageID)

	if err := c.postJSON(ctx, requestURL, payload, nil); err != nil {
		return fmt.Errorf("subscribing to page webhooks: %w", err)
	}

	log.Info().Str("page_id", pageID).Msg("Subscribed to page webhooks")
	return nil
}

// ExchangeToken trades a short-lived user token for a long-lived one.
func (c *Client) ExchangeToken(ctx context.Context, shortLivedToken string) (string, error) {
	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", c.config.AppID)
	params.Set("client_secret", c.config.AppSecret)
	params.Set("fb_exchange_token", shortLivedToken)

	requestURL := fmt.Sprintf("%s/oauth/access_token?%s", c.config.GraphAPIBaseURL, params.Encode())

	var response TokenResponse
	if err := c.getJSON(ctx, requestURL, &response); err != nil {
		return "", fmt.Errorf("exchanging token: %w", err)
	}

	return response.AccessToken, nil
}

// ListAccounts returns the pages the user administers, with their page
// access tokens.
func (c *Client) ListAccounts(ctx context.Context, accessToken string) ([]PageAccount, error) {
	params := url.Values{}
	params.Set("fields", "id,name,access_token,category")
	params.Set("access_token", accessToken)

	requestURL := fmt.Sprintf("%s/me/accounts?%s", c.config.GraphAPIBaseURL, params.Encode())

	var response AccountsResponse
	if err := c.getJSON(ctx, requestURL, &response); err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}

	return response.Data, nil
}
