package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const (
	// KeySize is the required size for the encryption key (32 bytes for AES-256)
	KeySize = 32
	// NonceSize is the size of the nonce used in AES-GCM
	NonceSize = 12
)

var (
	ErrInvalidKeySize = errors.New("invalid key size: must be 32 bytes for AES-256")
	ErrInvalidNonce   = errors.New("invalid nonce size")
)

// sealedEnvelope is the stored form of an encrypted document. Byte slices
// are base64 encoded by encoding/json.
type sealedEnvelope struct {
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}

// EncryptToken encrypts a token using AES-256-GCM
func EncryptToken(key, plaintext []byte) (ciphertext, nonce []byte, err error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext = aesGCM.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// DecryptToken decrypts a token using AES-256-GCM
func DecryptToken(key, ciphertext, nonce []byte) (plaintext []byte, err error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(nonce) != aesGCM.NonceSize() {
		return nil, ErrInvalidNonce
	}

	plaintext, err = aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	return plaintext, nil
}

// SealToken encrypts plaintext and returns the JSON envelope
// {"nonce": ..., "ciphertext": ...}.
func SealToken(key, plaintext []byte) ([]byte, error) {
	ciphertext, nonce, err := EncryptToken(key, plaintext)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(sealedEnvelope{Nonce: nonce, Ciphertext: ciphertext}, "", "  ")
}

// OpenToken reverses SealToken.
func OpenToken(key, sealed []byte) ([]byte, error) {
	var env sealedEnvelope
	if err := json.Unmarshal(sealed, &env); err != nil {
		return nil, fmt.Errorf("failed to parse encrypted envelope: %w", err)
	}
	if len(env.Ciphertext) == 0 {
		return nil, errors.New("encrypted envelope has no ciphertext")
	}
	return DecryptToken(key, env.Ciphertext, env.Nonce)
}
