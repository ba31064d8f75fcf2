package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	verifierLength = 64
	// StateTTL bounds how long an authorization URL stays redeemable.
	StateTTL = 10 * time.Minute
)

// CodePrompt hands the authorization URL to the user and returns the
// authorization code they obtained for the given state.
type CodePrompt func(ctx context.Context, authURL, state string) (string, error)

// OAuthManager owns the OAuth2 token lifecycle: building authorization URLs,
// exchanging codes and refreshing tokens.
type OAuthManager struct {
	config     *oauth2.Config
	pkce       PKCEGenerator
	stateStore StateStore
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOAuthManager creates a new OAuthManager instance
func NewOAuthManager(creds ClientCredentials, stateStore StateStore, logger *slog.Logger) (*OAuthManager, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if stateStore == nil {
		stateStore = NewInMemoryStateStore(StateTTL)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OAuthManager{
		config:     creds.oauth2Config(),
		pkce:       NewPKCEGenerator(),
		stateStore: stateStore,
		logger:     logger,
	}, nil
}

// SetHTTPClient sets the HTTP client used for token endpoint requests.
func (m *OAuthManager) SetHTTPClient(client *http.Client) {
	m.httpClient = client
}

// AuthCodeURL generates the authorization URL with a PKCE challenge, a CSRF
// state and the configured scopes. The returned state must be passed back to
// Exchange together with the code.
func (m *OAuthManager) AuthCodeURL() (string, string, error) {
	// Generate PKCE verifier and challenge
	verifier, err := m.pkce.GenerateCodeVerifier(verifierLength)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate code verifier: %w", err)
	}

	challenge, err := m.pkce.GenerateCodeChallenge(verifier)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate code challenge: %w", err)
	}

	// Generate and store state
	state := uuid.NewString()
	if err := m.stateStore.StoreState(state, verifier); err != nil {
		return "", "", fmt.Errorf("failed to store state: %w", err)
	}

	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	}

	return m.config.AuthCodeURL(state, opts...), state, nil
}

// Exchange redeems an authorization code at the token endpoint using the
// PKCE verifier stored for state.
func (m *OAuthManager) Exchange(ctx context.Context, code, state string) (TokenRecord, error) {
	if code == "" {
		return TokenRecord{}, fmt.Errorf("%w: authorization code cannot be empty", ErrAuthorization)
	}
	if state == "" {
		return TokenRecord{}, fmt.Errorf("%w: state parameter cannot be empty", ErrAuthorization)
	}

	verifier, ok := m.stateStore.ConsumeState(state)
	if !ok {
		return TokenRecord{}, fmt.Errorf("%w: %w", ErrAuthorization, ErrInvalidState)
	}

	token, err := m.config.Exchange(m.clientContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return TokenRecord{}, fmt.Errorf("%w: failed to exchange code for token: %w", ErrAuthorization, err)
	}

	record, err := FromOAuth2Token(token)
	if err != nil {
		return TokenRecord{}, fmt.Errorf("%w: unusable token response: %w", ErrAuthorization, err)
	}

	m.logger.InfoContext(ctx, "obtained token", "token_type", record.TokenType, "scope", record.Scope)
	return record, nil
}

// Authorize runs the full interactive flow: it builds the authorization URL,
// asks prompt for the resulting code and exchanges it.
func (m *OAuthManager) Authorize(ctx context.Context, prompt CodePrompt) (TokenRecord, error) {
	authURL, state, err := m.AuthCodeURL()
	if err != nil {
		return TokenRecord{}, fmt.Errorf("%w: %w", ErrAuthorization, err)
	}

	code, err := prompt(ctx, authURL, state)
	if err != nil {
		return TokenRecord{}, fmt.Errorf("%w: failed to obtain authorization code: %w", ErrAuthorization, err)
	}

	return m.Exchange(ctx, code, state)
}

// Refresh obtains a new token with the refresh grant. It does not look at
// the current token's expiry: callers refresh unconditionally before use.
// A record without a refresh token fails before any request is made.
func (m *OAuthManager) Refresh(ctx context.Context, current TokenRecord) (TokenRecord, error) {
	if !current.CanRefresh() {
		return TokenRecord{}, ErrMissingRefreshToken
	}

	// Only the refresh token is handed over so the token source always
	// performs the grant.
	stale := &oauth2.Token{RefreshToken: current.RefreshToken.Reveal()}
	newToken, err := m.config.TokenSource(m.clientContext(ctx), stale).Token()
	if err != nil {
		return TokenRecord{}, fmt.Errorf("%w: %w", ErrRefresh, err)
	}

	// Preserve the refresh token if the new token doesn't have one
	if newToken.RefreshToken == "" {
		newToken.RefreshToken = current.RefreshToken.Reveal()
	}

	record, err := FromOAuth2Token(newToken)
	if err != nil {
		return TokenRecord{}, fmt.Errorf("%w: %w", ErrRefresh, err)
	}

	m.logger.InfoContext(ctx, "refreshed token", "expires_in", record.ExpiresIn)
	return record, nil
}

// HTTPClient returns a client that sends record's access token as a bearer
// token on every request.
func (m *OAuthManager) HTTPClient(ctx context.Context, record TokenRecord) *http.Client {
	return BearerClient(m.clientContext(ctx), record)
}

// BearerClient returns a client authenticating with record's access token.
// The base transport is taken from the oauth2.HTTPClient context value when
// present.
func BearerClient(ctx context.Context, record TokenRecord) *http.Client {
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(record.OAuth2Token()))
}

func (m *OAuthManager) clientContext(ctx context.Context) context.Context {
	if m.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}
