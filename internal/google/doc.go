// Package google talks to Google's OAuth 2.0 endpoints on behalf of the web flow.
//
// It builds the authorization URL for the Fit scopes, exchanges an authorization
// code for tokens, looks up the signed-in user's profile and turns the result into
// the downloadable TokenBundle. Nothing in this package keeps tokens between calls.
package google
