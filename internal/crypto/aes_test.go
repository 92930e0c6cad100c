package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestAESGCM_RoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{7}, AESKeySize)
	nonce := bytes.Repeat([]byte{9}, AESNonceSize)

	ct, err := encryptAESGCM(key, nonce, []byte("aad"), []byte("hello"))
	if err != nil {
		t.Fatalf("encryptAESGCM() error = %v", err)
	}
	if len(ct) != len("hello")+AESTagSize {
		t.Errorf("ciphertext length = %d", len(ct))
	}

	pt, err := decryptAESGCM(key, nonce, []byte("aad"), ct)
	if err != nil {
		t.Fatalf("decryptAESGCM() error = %v", err)
	}
	if string(pt) != "hello" {
		t.Errorf("plaintext = %q", pt)
	}

	if _, err := decryptAESGCM(key, nonce, []byte("other"), ct); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("wrong aad error = %v", err)
	}
}

func TestAESGCM_InvalidSizes(t *testing.T) {
	key := make([]byte, AESKeySize)
	nonce := make([]byte, AESNonceSize)

	if _, err := encryptAESGCM(key[:16], nonce, nil, nil); !errors.Is(err, ErrInvalidKeySize) {
		t.Errorf("short key error = %v", err)
	}
	if _, err := decryptAESGCM(key, nonce[:8], nil, nil); !errors.Is(err, ErrInvalidNonceSize) {
		t.Errorf("short nonce error = %v", err)
	}
}
