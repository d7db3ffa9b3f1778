package clients

import (
	"time"
)

// Client is a registered OAuth application. Clients are never hard-deleted:
// deactivation keeps audit history and stops the id from being reused.
type Client struct {
	ID            string    `json:"clientId"`
	SecretHash    string    `json:"-"` // bcrypt hash, the plaintext only exists in the create response
	Name          string    `json:"name"`
	RedirectURI   string    `json:"redirectUri"` // exact-match only
	WebhookURL    string    `json:"webhookUrl,omitempty"`
	WebhookSecret string    `json:"-"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CreatedClient is returned once, at creation time
type CreatedClient struct {
	Client
	Secret string `json:"clientSecret"`
}

// Patch is an admin edit. Nil fields are left unchanged.
type Patch struct {
	Name          *string `json:"name,omitempty"`
	RedirectURI   *string `json:"redirectUri,omitempty"`
	WebhookURL    *string `json:"webhookUrl,omitempty"`
	WebhookSecret *string `json:"webhookSecret,omitempty"`
	IsActive      *bool   `json:"isActive,omitempty"`
}

// HasWebhookSecret reports whether webhook signatures can be checked for this client
func (c *Client) HasWebhookSecret() bool {
	return c.WebhookSecret != ""
}
