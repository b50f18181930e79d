package model

import "time"

// Token is the cached result of a successful code exchange.
type Token struct {
	TokenType      string
	AccessToken    string
	ExpirationDate time.Time
}

// Valid reports whether the token is present and expires after now.
func (t Token) Valid(now time.Time) bool {
	return t.AccessToken != "" && t.ExpirationDate.Sub(now) > 0
}

// PKCESession is the material stashed between the authorization redirect
// and the callback.
type PKCESession struct {
	CodeVerifier string
	State        string
}

// User is the subset of the identity provider's user document we display.
type User struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName"`
}
