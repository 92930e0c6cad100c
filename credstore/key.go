package credstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/icontact-sdk/client-go/internal/crypto"
)

// ErrInvalidKey is returned by ParseKey for malformed keys.
var ErrInvalidKey = errors.New("invalid credential key")

const keyPrefix = "icsk1_"

// Key seals and opens stored sessions.
type Key struct {
	kp *crypto.Keypair
}

// GenerateKey creates a new random key.
func GenerateKey() (*Key, error) {
	kp, err := crypto.GenerateKeypair()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &Key{kp: kp}, nil
}

// ParseKey decodes a key produced by Key.String.
func ParseKey(s string) (*Key, error) {
	encoded, ok := strings.CutPrefix(strings.TrimSpace(s), keyPrefix)
	if !ok {
		return nil, fmt.Errorf("%w: missing %q prefix", ErrInvalidKey, keyPrefix)
	}

	secret, err := crypto.FromBase64URL(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	kp, err := crypto.KeypairFromSecretKey(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &Key{kp: kp}, nil
}

// String encodes the key, secret part included. Treat it like a password.
func (k *Key) String() string {
	return keyPrefix + crypto.ToBase64URL(k.kp.SecretKey)
}

func (k *Key) seal(plaintext []byte) (*crypto.SealedPayload, error) {
	return crypto.Seal(k.kp.PublicKey, plaintext, []byte(sealAAD))
}

func (k *Key) open(p *crypto.SealedPayload) ([]byte, error) {
	return crypto.Open(p, k.kp)
}
