package auth

import (
	"encoding/json"
	"fmt"
	"time"

	"heartrate-go/internal/secret"

	"golang.org/x/oauth2"
)

// TokenRecord is the persisted OAuth2 token state.
type TokenRecord struct {
	AccessToken  secret.String
	RefreshToken secret.String
	TokenType    string
	// ExpiresIn is the lifetime reported by the provider; zero when absent.
	ExpiresIn time.Duration
	// Scope is the granted scope string; empty when absent.
	Scope string
}

// tokenJSON is the on-disk shape, using the provider's field names.
type tokenJSON struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// Validate checks that the record can be used as a bearer token.
func (r TokenRecord) Validate() error {
	if r.AccessToken.IsEmpty() {
		return fmt.Errorf("%w: access_token is empty", ErrInvalidToken)
	}
	return nil
}

// CanRefresh reports whether the record carries a refresh token.
func (r TokenRecord) CanRefresh() bool {
	return !r.RefreshToken.IsEmpty()
}

// Equal compares two records field by field.
func (r TokenRecord) Equal(other TokenRecord) bool {
	return r.AccessToken.Equal(other.AccessToken) &&
		r.RefreshToken.Equal(other.RefreshToken) &&
		r.TokenType == other.TokenType &&
		r.ExpiresIn == other.ExpiresIn &&
		r.Scope == other.Scope
}

// MarshalJSON implements json.Marshaler. This is the only place token
// secrets are written out.
func (r TokenRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(tokenJSON{
		AccessToken:  r.AccessToken.Reveal(),
		TokenType:    r.TokenType,
		ExpiresIn:    int64(r.ExpiresIn / time.Second),
		RefreshToken: r.RefreshToken.Reveal(),
		Scope:        r.Scope,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (r *TokenRecord) UnmarshalJSON(b []byte) error {
	var raw tokenJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.ExpiresIn < 0 {
		return fmt.Errorf("%w: negative expires_in", ErrInvalidToken)
	}
	*r = TokenRecord{
		AccessToken:  secret.New(raw.AccessToken),
		RefreshToken: secret.New(raw.RefreshToken),
		TokenType:    raw.TokenType,
		ExpiresIn:    time.Duration(raw.ExpiresIn) * time.Second,
		Scope:        raw.Scope,
	}
	return nil
}

// OAuth2Token converts the record for use with golang.org/x/oauth2. The
// expiry is left unset so a token source never decides on its own that the
// record is still valid.
func (r TokenRecord) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  r.AccessToken.Reveal(),
		TokenType:    r.TokenType,
		RefreshToken: r.RefreshToken.Reveal(),
	}
}

// FromOAuth2Token builds a record from a token endpoint response.
func FromOAuth2Token(t *oauth2.Token) (TokenRecord, error) {
	if t == nil {
		return TokenRecord{}, fmt.Errorf("%w: token is nil", ErrInvalidToken)
	}

	record := TokenRecord{
		AccessToken:  secret.New(t.AccessToken),
		RefreshToken: secret.New(t.RefreshToken),
		TokenType:    t.TokenType,
	}

	switch {
	case t.ExpiresIn > 0:
		record.ExpiresIn = time.Duration(t.ExpiresIn) * time.Second
	case !t.Expiry.IsZero():
		if d := time.Until(t.Expiry).Round(time.Second); d > 0 {
			record.ExpiresIn = d
		}
	}

	if scope, ok := t.Extra("scope").(string); ok {
		record.Scope = scope
	}

	if err := record.Validate(); err != nil {
		return TokenRecord{}, err
	}
	return record, nil
}
