// Package deeplink parses the OAuth callback URLs the app receives via its
// custom URI scheme or initial launch URL.
package deeplink

import (
	"fmt"
	"net/url"
)

// Result is the tagged outcome of parsing a callback URL: exactly one of
// AuthCode, ImplicitTokens or CallbackError. A nil Result means the URL
// carried no OAuth parameters at all.
type Result interface {
	isCallbackResult()
}

// AuthCode is the authorization-code flow outcome; the code must be
// exchanged for a session, forwarding the provider's state untouched.
type AuthCode struct {
	Code  string
	State string
}

// ImplicitTokens is the implicit flow outcome; the tokens are usable as-is.
type ImplicitTokens struct {
	AccessToken  string
	RefreshToken string
}

// CallbackError is a provider-reported failure (e.g. access_denied).
type CallbackError struct {
	Code        string
	Description string
}

func (AuthCode) isCallbackResult()       {}
func (ImplicitTokens) isCallbackResult() {}
func (CallbackError) isCallbackResult()  {}

// Parse extracts OAuth parameters from a callback deep link. Providers
// deliver parameters in the hash fragment (implicit flow), the query string
// (code flow), or occasionally both; hash-fragment values take precedence
// over query-string values for the same key. An error parameter wins over
// any tokens or code.
func Parse(rawURL string) (Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid callback URL: %w", err)
	}

	params := url.Values{}
	for key, vals := range u.Query() {
		if len(vals) > 0 {
			params.Set(key, vals[0])
		}
	}
	if u.Fragment != "" {
		fragment, err := url.ParseQuery(u.Fragment)
		if err == nil {
			for key, vals := range fragment {
				if len(vals) > 0 {
					params.Set(key, vals[0])
				}
			}
		}
	}

	if errCode := params.Get("error"); errCode != "" {
		return CallbackError{
			Code:        errCode,
			Description: params.Get("error_description"),
		}, nil
	}
	if code := params.Get("code"); code != "" {
		return AuthCode{Code: code, State: params.Get("state")}, nil
	}
	if access := params.Get("access_token"); access != "" {
		return ImplicitTokens{
			AccessToken:  access,
			RefreshToken: params.Get("refresh_token"),
		}, nil
	}

	return nil, nil
}
