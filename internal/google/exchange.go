package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

// ExchangeError is returned when Google answered the token request but did not
// issue a refresh token. Code and Description carry Google's error and
// error_description fields when it sent them.
type ExchangeError struct {
	Code        string
	Description string
}

// Error implements the error interface
func (e *ExchangeError) Error() string {
	if e.Code == "" && e.Description == "" {
		return "token response did not contain a refresh_token"
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Reason returns the most descriptive message Google provided: the
// error_description, then the error code, then an empty string.
func (e *ExchangeError) Reason() string {
	if e.Description != "" {
		return e.Description
	}
	return e.Code
}

// Exchanger trades authorization codes for tokens.
type Exchanger struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// NewExchanger creates an Exchanger that sends its requests through httpClient.
// The client's timeout bounds the whole exchange.
func NewExchanger(conf *oauth2.Config, httpClient *http.Client) *Exchanger {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Exchanger{
		config:     conf,
		httpClient: httpClient,
	}
}

// maxTokenResponseSize matches the limit oauth2 applies to token responses.
const maxTokenResponseSize = 1 << 20

// Exchange posts the authorization code to the token endpoint once.
//
// It returns an *ExchangeError whenever the token endpoint answered with a JSON
// object but no refresh token: an OAuth error, an empty object, or a response
// without an access token. Any other failure (transport, non-JSON error page)
// is returned wrapped.
func (e *Exchanger) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	recorder := &responseRecorder{base: e.httpClient.Transport}
	client := &http.Client{
		Transport:     recorder,
		CheckRedirect: e.httpClient.CheckRedirect,
		Jar:           e.httpClient.Jar,
		Timeout:       e.httpClient.Timeout,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, client)

	token, err := e.config.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && (retrieveErr.ErrorCode != "" || retrieveErr.ErrorDescription != "") {
			return nil, &ExchangeError{
				Code:        retrieveErr.ErrorCode,
				Description: retrieveErr.ErrorDescription,
			}
		}
		if isJSONObject(recorder.body) {
			return nil, &ExchangeError{}
		}
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}

	if token.RefreshToken == "" {
		return nil, &ExchangeError{}
	}

	return token, nil
}

// responseRecorder keeps the last response body so failures can be classified
// by what the token endpoint actually sent.
type responseRecorder struct {
	base http.RoundTripper
	body []byte
}

// RoundTrip implements http.RoundTripper.
func (r *responseRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	base := r.base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseSize))
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	r.body = body
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

func isJSONObject(body []byte) bool {
	var obj map[string]any
	return json.Unmarshal(body, &obj) == nil && obj != nil
}
