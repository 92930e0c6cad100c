package crypto

import (
	"fmt"
	"io"
)

// SealedPayload is data encrypted to an ML-KEM-768 public key. All byte
// fields are URL-safe base64 without padding.
type SealedPayload struct {
	Version    int    `json:"v"`
	Algs       string `json:"algs"`
	CtKem      string `json:"ct_kem"`
	Nonce      string `json:"nonce"`
	AAD        string `json:"aad,omitempty"`
	Ciphertext string `json:"ciphertext"`
}

// Seal encrypts plaintext to publicKey.
//
//  1. ML-KEM-768 encapsulation yields a fresh shared secret
//  2. HKDF-SHA-512 derives the AES key from it, the AAD and the KEM ciphertext
//  3. AES-256-GCM encrypts plaintext under a random nonce
func Seal(publicKey, plaintext, aad []byte) (*SealedPayload, error) {
	ctKem, sharedSecret, err := Encapsulate(publicKey)
	if err != nil {
		return nil, fmt.Errorf("encapsulate: %w", err)
	}

	key, err := deriveSealKey(sharedSecret, aad, ctKem)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	nonce := make([]byte, AESNonceSize)
	if _, err := io.ReadFull(random(), nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	ciphertext, err := encryptAESGCM(key, nonce, aad, plaintext)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}

	return &SealedPayload{
		Version:    SealVersion,
		Algs:       Ciphersuite,
		CtKem:      ToBase64URL(ctKem),
		Nonce:      ToBase64URL(nonce),
		AAD:        ToBase64URL(aad),
		Ciphertext: ToBase64URL(ciphertext),
	}, nil
}

// Open decrypts a payload produced by Seal for keypair's public key.
func Open(payload *SealedPayload, keypair *Keypair) ([]byte, error) {
	if payload == nil {
		return nil, ErrInvalidPayload
	}
	if payload.Version != SealVersion || payload.Algs != Ciphersuite {
		return nil, fmt.Errorf("%w: v%d %s", ErrInvalidAlgorithm, payload.Version, payload.Algs)
	}

	ctKem, err := FromBase64URL(payload.CtKem)
	if err != nil {
		return nil, fmt.Errorf("%w: ct_kem: %v", ErrInvalidPayload, err)
	}
	nonce, err := FromBase64URL(payload.Nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: nonce: %v", ErrInvalidPayload, err)
	}
	aad, err := FromBase64URL(payload.AAD)
	if err != nil {
		return nil, fmt.Errorf("%w: aad: %v", ErrInvalidPayload, err)
	}
	ciphertext, err := FromBase64URL(payload.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext: %v", ErrInvalidPayload, err)
	}

	sharedSecret, err := keypair.Decapsulate(ctKem)
	if err != nil {
		return nil, fmt.Errorf("decapsulate: %w", err)
	}

	key, err := deriveSealKey(sharedSecret, aad, ctKem)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	plaintext, err := decryptAESGCM(key, nonce, aad, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}
