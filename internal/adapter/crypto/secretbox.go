// Package crypto seals backup artifacts with NaCl secretbox
// (XSalsa20-Poly1305). An encrypted file is the 24-byte nonce followed by
// the sealed box.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/semmidev/phylax-agent/internal/domain"
)

const (
	keySize   = 32
	nonceSize = 24
)

type SecretBox struct{}

func NewSecretBox() *SecretBox {
	return &SecretBox{}
}

// GenerateKey returns a new random key in the text form stored by the
// credential store.
func GenerateKey() (string, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("failed to read random key: %w", err)
	}
	return base64.URLEncoding.EncodeToString(key), nil
}

func parseKey(key []byte) (*[keySize]byte, error) {
	raw, err := base64.URLEncoding.DecodeString(strings.TrimSpace(string(key)))
	if err != nil {
		return nil, fmt.Errorf("%w: malformed encryption key: %v", domain.ErrConfigMissing, err)
	}
	if len(raw) != keySize {
		return nil, fmt.Errorf("%w: encryption key must be %d bytes, got %d", domain.ErrConfigMissing, keySize, len(raw))
	}
	var k [keySize]byte
	copy(k[:], raw)
	return &k, nil
}

func (s *SecretBox) EncryptFile(key []byte, sourcePath, destPath string) error {
	k, err := parseKey(key)
	if err != nil {
		return err
	}

	plaintext, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to read source file: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal appends to its first argument, so the output is nonce||box.
	sealed := secretbox.Seal(nonce[:], plaintext, &nonce, k)

	if err := os.WriteFile(destPath, sealed, 0600); err != nil {
		return fmt.Errorf("failed to write encrypted file: %w", err)
	}
	return nil
}

func (s *SecretBox) DecryptFile(key []byte, sourcePath, destPath string) error {
	k, err := parseKey(key)
	if err != nil {
		return err
	}

	sealed, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to read encrypted file: %w", err)
	}
	if len(sealed) < nonceSize+secretbox.Overhead {
		return fmt.Errorf("%w: encrypted file is too short", domain.ErrDecryption)
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	plaintext, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, k)
	if !ok {
		return fmt.Errorf("%w: wrong key or corrupted data", domain.ErrDecryption)
	}

	if err := os.WriteFile(destPath, plaintext, 0600); err != nil {
		return fmt.Errorf("failed to write decrypted file: %w", err)
	}
	return nil
}
