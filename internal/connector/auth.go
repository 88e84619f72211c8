package connector

import (
	"fmt"
	"net/http"
	"strings"
)

// AuthFunc applies credentials to an outgoing request.
type AuthFunc func(*http.Request)

// NewBasicAuth authenticates with email and API token.
func NewBasicAuth(email, token string) AuthFunc {
	email, token = strings.TrimSpace(email), strings.TrimSpace(token)
	return func(r *http.Request) {
		r.SetBasicAuth(email, token)
	}
}

// NewBearerAuth authenticates with a bearer token.
func NewBearerAuth(token string) AuthFunc {
	token = strings.TrimSpace(token)
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

// ResolveAuth returns the appropriate AuthFunc based on provided credentials.
// A bearer token takes precedence over email + token.
func ResolveAuth(bearerToken, email, token string) (auth AuthFunc, method string, err error) {
	switch {
	case bearerToken != "":
		return NewBearerAuth(bearerToken), "Bearer", nil
	case email != "" && token != "":
		return NewBasicAuth(email, token), "Basic", nil
	default:
		return nil, "", fmt.Errorf("no valid auth method configured: must provide either bearer token or email+token")
	}
}

// ObfuscateHeader returns an Authorization header showing only the scheme and
// the first and last 2 characters of the credential.
func ObfuscateHeader(auth string) string {
	if auth == "" {
		return ""
	}

	scheme, token, ok := strings.Cut(auth, " ")
	if !ok {
		return "[invalid header]"
	}
	token = strings.TrimSpace(token)
	n := len(token)
	if n <= 4 {
		return scheme + " " + strings.Repeat("*", n)
	}
	return scheme + " " + token[:2] + strings.Repeat("*", n-4) + token[n-2:]
}

// AuthorizationHeader returns the header value authFunc would set.
func AuthorizationHeader(authFunc AuthFunc) string {
	req, _ := http.NewRequest(http.MethodGet, "https://dummy", nil)
	authFunc(req)
	return req.Header.Get("Authorization")
}
