package google

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/teemow/fittoken/internal/config"
)

// StemSource names the profile field a file name was derived from.
type StemSource string

// Stem sources, in order of precedence.
const (
	StemFromEmail     StemSource = "email"
	StemFromName      StemSource = "name"
	StemFromTimestamp StemSource = "timestamp"
)

// fallbackStemPrefix is used when the profile yields no usable name.
const fallbackStemPrefix = "google_fit_token_"

// TokenBundle is the credential set handed to the user. It deliberately has no
// access token field: only what is needed to mint new access tokens later.
type TokenBundle struct {
	RefreshToken string `json:"refresh_token"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// NewTokenBundle pairs a refresh token with the client identity that obtained it.
func NewTokenBundle(refreshToken string, creds config.Credentials) TokenBundle {
	return TokenBundle{
		RefreshToken: refreshToken,
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
	}
}

// Marshal encodes the bundle as JSON indented with four spaces.
func (b TokenBundle) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(b, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode token bundle: %w", err)
	}
	return data, nil
}

// FilenameStem derives the download file name (without extension) from the
// user's profile.
//
// Precedence is fixed:
//   - email: local part, lowercased, dots replaced by underscores
//   - name: lowercased, spaces replaced by underscores
//   - otherwise google_fit_token_<unix seconds of now>
//
// A nil info (failed lookup) falls through to the timestamp.
func FilenameStem(info *UserInfo, now time.Time) (string, StemSource) {
	if info != nil {
		if info.Email != "" {
			local, _, _ := strings.Cut(info.Email, "@")
			return strings.ReplaceAll(strings.ToLower(local), ".", "_"), StemFromEmail
		}
		if info.Name != "" {
			return strings.ReplaceAll(strings.ToLower(info.Name), " ", "_"), StemFromName
		}
	}
	return fmt.Sprintf("%s%d", fallbackStemPrefix, now.Unix()), StemFromTimestamp
}
