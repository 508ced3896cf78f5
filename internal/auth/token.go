package auth

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"github.com/agentstation/cmdbsync/pkg/constants"
	"github.com/agentstation/cmdbsync/pkg/errors"
	"github.com/agentstation/cmdbsync/pkg/logging"
)

// PasswordGrant is a TokenProvider backed by an OIDC resource owner
// password credentials exchange.
type PasswordGrant struct {
	config   *oauth2.Config
	username string
	password string
	client   *http.Client

	mu    sync.Mutex
	token *oauth2.Token
}

// NewPasswordGrant creates a provider for the given credentials. The HTTP
// client is used for the token exchange; nil means http.DefaultClient.
func NewPasswordGrant(creds Credentials, client *http.Client) *PasswordGrant {
	scopes := creds.Scopes
	if len(scopes) == 0 {
		scopes = strings.Fields(constants.DefaultOIDCScopes)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &PasswordGrant{
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				TokenURL:  creds.TokenEndpoint,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		username: creds.Username,
		password: creds.Password,
		client:   client,
	}
}

// Token implements TokenProvider.
func (p *PasswordGrant) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != nil {
		return p.token.AccessToken, nil
	}
	return p.exchange(ctx, "password")
}

// Refresh implements TokenProvider. A new password grant is performed since
// the catalog's identity provider is not guaranteed to issue refresh tokens.
func (p *PasswordGrant) Refresh(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.token = nil
	return p.exchange(ctx, "refresh")
}

// exchange must be called with p.mu held.
func (p *PasswordGrant) exchange(ctx context.Context, method string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	tok, err := p.config.PasswordCredentialsToken(ctx, p.username, p.password)
	if err != nil {
		message := "unable to retrieve access token"
		if rErr, ok := err.(*oauth2.RetrieveError); ok && rErr.Response != nil {
			message = "unable to retrieve access token: " + rErr.Response.Status
		}
		return "", errors.NewAuthenticationError(p.config.Endpoint.TokenURL, method, message, err)
	}

	logging.FromContext(ctx).Debug().
		Str("token_endpoint", p.config.Endpoint.TokenURL).
		Str("method", method).
		Msg("Access token acquired")

	p.token = tok
	return tok.AccessToken, nil
}
