// Package auth provides the bearer token used by the catalog write API.
//
// Tokens are obtained with an OpenID Connect password grant and memoised for
// the lifetime of the process. Expiry is never predicted: callers that see a
// rejected token ask the provider to Refresh.
package auth

import "context"

// TokenProvider hands out bearer tokens for the write API.
type TokenProvider interface {
	// Token returns the memoised token, acquiring one on first use.
	Token(ctx context.Context) (string, error)

	// Refresh discards the memoised token and acquires a new one.
	Refresh(ctx context.Context) (string, error)
}

// Credentials are the OIDC settings needed for a password grant.
type Credentials struct {
	ClientID      string
	ClientSecret  string
	Username      string
	Password      string
	TokenEndpoint string
	Scopes        []string
}

// State represents whether a credential setting is usable.
type State int

const (
	// StateConfigured means the setting has a value.
	StateConfigured State = iota
	// StateMissing means a required setting is empty.
	StateMissing
	// StateInvalid means the setting has a value that cannot be used.
	StateInvalid
)

// String returns a human readable state.
func (s State) String() string {
	switch s {
	case StateConfigured:
		return "configured"
	case StateMissing:
		return "missing"
	case StateInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Status is the outcome of checking one credential setting.
type Status struct {
	Setting string
	State   State
	Summary string
}
