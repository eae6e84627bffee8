package google

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// UserInfo is the part of the Google profile used to name the token file.
type UserInfo struct {
	Email string
	Name  string
}

// UserInfoFetcher reads the profile of the user an access token belongs to.
type UserInfoFetcher struct {
	httpClient *http.Client
	endpoint   string
}

// NewUserInfoFetcher creates a fetcher that sends its requests through httpClient.
// An empty endpoint selects Google's production API.
func NewUserInfoFetcher(httpClient *http.Client, endpoint string) *UserInfoFetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &UserInfoFetcher{
		httpClient: httpClient,
		endpoint:   endpoint,
	}
}

// Fetch calls the userinfo endpoint with accessToken as bearer credential.
// Any non-200 answer is returned as an error.
func (f *UserInfoFetcher) Fetch(ctx context.Context, accessToken string) (*UserInfo, error) {
	client := &http.Client{
		Timeout: f.httpClient.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{
				AccessToken: accessToken,
				TokenType:   "Bearer",
			}),
			Base: f.httpClient.Transport,
		},
	}

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if f.endpoint != "" {
		opts = append(opts, option.WithEndpoint(f.endpoint))
	}

	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth2 service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}

	return &UserInfo{
		Email: info.Email,
		Name:  info.Name,
	}, nil
}
