package google

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/fittoken/internal/config"
)

// NewOAuthConfig returns the OAuth2 configuration for the Fit consent flow.
func NewOAuthConfig(creds config.Credentials, redirectURL string) *oauth2.Config {
	scopes := make([]string, len(FitScopes))
	copy(scopes, FitScopes)

	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       scopes,
	}
}

// AuthCodeURL returns the URL of Google's consent screen.
// Offline access and a forced consent prompt make Google issue a refresh token
// on every authorization, not only the first one.
func AuthCodeURL(conf *oauth2.Config) string {
	return conf.AuthCodeURL("", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}
