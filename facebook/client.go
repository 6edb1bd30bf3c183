package facebook

import (
	"net/http"
)

// Client talks to the Facebook Graph API: the Messenger Send API, user
// profile lookups, page webhook subscriptions and OAuth token exchange.
type Client struct {
	config     Config
	httpClient *http.Client
}

func NewClient(graphAPIBaseURL, appID, appSecret string, httpClient http.Client) Client {
	client := Client{
		config: Config{
			GraphAPIBaseURL: graphAPIBaseURL,
			AppID:           appID,
			AppSecret:       appSecret,
		},
		httpClient: &httpClient,
	}

	return client
}
