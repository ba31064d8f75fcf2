package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/oauth2"
)

const (
	minVerifierLength = 43
	maxVerifierLength = 128
	// verifierCharset is the RFC 7636 unreserved character set.
	verifierCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"
)

// PKCEGenerator creates S256 code verifier/challenge pairs.
type PKCEGenerator interface {
	GenerateCodeVerifier(length int) (string, error)
	GenerateCodeChallenge(verifier string) (string, error)
}

type pkceGenerator struct{}

// NewPKCEGenerator returns the default PKCEGenerator.
func NewPKCEGenerator() PKCEGenerator {
	return pkceGenerator{}
}

// GenerateCodeVerifier returns a random verifier of the given length
// (43 to 128 characters).
func (pkceGenerator) GenerateCodeVerifier(length int) (string, error) {
	if length < minVerifierLength || length > maxVerifierLength {
		return "", fmt.Errorf("code verifier length must be between %d and %d, got %d",
			minVerifierLength, maxVerifierLength, length)
	}

	max := big.NewInt(int64(len(verifierCharset)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate code verifier: %w", err)
		}
		b[i] = verifierCharset[n.Int64()]
	}
	return string(b), nil
}

// GenerateCodeChallenge derives the S256 challenge for a verifier.
func (pkceGenerator) GenerateCodeChallenge(verifier string) (string, error) {
	if verifier == "" {
		return "", fmt.Errorf("code verifier cannot be empty")
	}
	return oauth2.S256ChallengeFromVerifier(verifier), nil
}
