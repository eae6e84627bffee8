package server

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"

	"github.com/teemow/fittoken/internal/google"
	"github.com/teemow/fittoken/internal/instrumentation"
)

// Exchanger trades an authorization code for tokens.
type Exchanger interface {
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// UserInfoFetcher reads the profile behind an access token.
type UserInfoFetcher interface {
	Fetch(ctx context.Context, accessToken string) (*google.UserInfo, error)
}

// instrumentedExchanger wraps an Exchanger with a client span and metrics.
type instrumentedExchanger struct {
	next    Exchanger
	metrics *instrumentation.Metrics
}

// Exchange records the call as google.oauth2.exchange and classifies the result
// as success, failure (Google rejected the code) or error (anything else).
func (e *instrumentedExchanger) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceOAuth2, instrumentation.OperationExchange)
	defer span.End()

	start := time.Now()
	token, err := e.next.Exchange(ctx, code)
	duration := time.Since(start)

	result := instrumentation.OAuthResultSuccess
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		result = instrumentation.OAuthResultError

		var exErr *google.ExchangeError
		if errors.As(err, &exErr) {
			result = instrumentation.OAuthResultFailure
			if exErr.Code != "" {
				span.SetAttributes(attribute.String(instrumentation.SpanAttrOAuthErrorCode, exErr.Code))
			}
		}
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	span.SetAttributes(attribute.String(instrumentation.SpanAttrOAuthResult, result))

	e.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceOAuth2, instrumentation.OperationExchange, status, duration)
	e.metrics.RecordOAuthExchange(ctx, result)

	return token, err
}

// instrumentedUserInfo wraps a UserInfoFetcher with a client span and metrics.
type instrumentedUserInfo struct {
	next    UserInfoFetcher
	metrics *instrumentation.Metrics
}

// Fetch records the call as google.oauth2.userinfo.
func (f *instrumentedUserInfo) Fetch(ctx context.Context, accessToken string) (*google.UserInfo, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceOAuth2, instrumentation.OperationUserInfo)
	defer span.End()

	start := time.Now()
	info, err := f.next.Fetch(ctx, accessToken)
	duration := time.Since(start)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}

	f.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceOAuth2, instrumentation.OperationUserInfo, status, duration)

	return info, err
}
