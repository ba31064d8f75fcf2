package auth

import "errors"

var (
	// ErrAuthorization is returned when the authorization-code exchange fails
	// or its response cannot be parsed.
	ErrAuthorization = errors.New("authorization failed")
	// ErrInvalidState is returned by Exchange for a state that was never
	// issued, was already used or has expired.
	ErrInvalidState = errors.New("invalid or expired state parameter")
	// ErrRefresh is returned when the refresh grant fails.
	ErrRefresh = errors.New("token refresh failed")
	// ErrMissingRefreshToken is returned when a refresh is requested for a
	// record without a refresh token.
	ErrMissingRefreshToken = errors.New("token has no refresh token")
	// ErrInvalidToken is returned when a record is unusable, e.g. it has no
	// access token.
	ErrInvalidToken = errors.New("invalid token record")
)
