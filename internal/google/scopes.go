package google

// FitScopes are the OAuth scopes requested on the consent screen, in the order
// they are sent to Google.
//
// The scopes provide access to:
//   - Google Fit: read/write for activity, body and location data
//   - OpenID Connect: identity of the user (used to name the downloaded file)
var FitScopes = []string{
	// Google Fit scopes
	"https://www.googleapis.com/auth/fitness.activity.read",
	"https://www.googleapis.com/auth/fitness.activity.write",
	"https://www.googleapis.com/auth/fitness.body.read",
	"https://www.googleapis.com/auth/fitness.body.write",
	"https://www.googleapis.com/auth/fitness.location.read",
	"https://www.googleapis.com/auth/fitness.location.write",

	// OpenID Connect scopes (required for user info)
	"openid",
	"profile",
	"https://www.googleapis.com/auth/userinfo.email",
}
