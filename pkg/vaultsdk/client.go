package vaultsdk

import (
	"net/http"
	"strings"
	"time"
)

// Client talks to a vault service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client with a 10 second request timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithToken returns a session that sends accessToken as a bearer token.
func (c *Client) WithToken(accessToken string) *Session {
	return &Session{client: c, accessToken: accessToken}
}

// Session makes calls on behalf of the token's subject.
type Session struct {
	client      *Client
	accessToken string
}
