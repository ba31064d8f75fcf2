package auth

import (
	"fmt"

	"heartrate-go/internal/config"
	"heartrate-go/internal/secret"

	"github.com/go-playground/validator/v10"
	"golang.org/x/oauth2"
)

// DefaultScope is the heart-rate read scope.
const DefaultScope = "heartrate"

// ClientCredentials describes the registered OAuth2 client. It is immutable
// for the duration of a run.
type ClientCredentials struct {
	ClientID     string        `validate:"required"`
	ClientSecret secret.String `validate:"-"`
	AuthURL      string        `validate:"required,url"`
	TokenURL     string        `validate:"required,url"`
	RedirectURL  string        `validate:"omitempty,url"`
	Scopes       []string
	AuthStyle    oauth2.AuthStyle `validate:"-"`
}

// CredentialsFromConfig combines the auth section of the configuration with
// a client secret resolved elsewhere.
func CredentialsFromConfig(cfg config.AuthConfig, clientSecret secret.String) ClientCredentials {
	creds := ClientCredentials{
		ClientID:     cfg.ClientID,
		ClientSecret: clientSecret,
		AuthURL:      cfg.AuthURL,
		TokenURL:     cfg.TokenURL,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       append([]string(nil), cfg.Scopes...),
	}
	switch cfg.AuthStyle {
	case "header":
		creds.AuthStyle = oauth2.AuthStyleInHeader
	case "params":
		creds.AuthStyle = oauth2.AuthStyleInParams
	default:
		creds.AuthStyle = oauth2.AuthStyleAutoDetect
	}
	return creds
}

// Validate checks that the credentials are complete.
func (c ClientCredentials) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: invalid client credentials: %w", config.ErrConfiguration, err)
	}
	if c.ClientSecret.IsEmpty() {
		return fmt.Errorf("%w: client secret is empty", config.ErrConfiguration)
	}
	return nil
}

// oauth2Config builds the x/oauth2 client configuration.
func (c ClientCredentials) oauth2Config() *oauth2.Config {
	scopes := c.Scopes
	if len(scopes) == 0 {
		scopes = []string{DefaultScope}
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret.Reveal(),
		RedirectURL:  c.RedirectURL,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.AuthURL,
			TokenURL:  c.TokenURL,
			AuthStyle: c.AuthStyle,
		},
	}
}
