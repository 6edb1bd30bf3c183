package facebook

import (
	"context"
	"fmt"
	"net/url"
)

// GetUserProfile fetches a customer's display name and avatar. Errors are
// returned to the caller; the profile resolver decides on fallbacks.
func (c *Client) GetUserProfile(ctx context.Context, userID, accessToken string) (*UserProfile, error) {
	params := url.Values{}
	params.Set("fields", "name,profile_pic")
	params.Set("access_token", accessToken)

	requestURL := fmt.Sprintf("%s/%s?%s", c.config.GraphAPIBaseURL, userID, params.Encode())

	var profile UserProfile
	if err := c.getJSON(ctx, requestURL, &profile); err != nil {
		return nil, err
	}

	return &profile, nil
}
