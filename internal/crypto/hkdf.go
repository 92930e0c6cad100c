package crypto

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveKey derives a key using HKDF-SHA-512. An empty salt is replaced by
// a zero-filled one.
func DeriveKey(secret, salt, info []byte, length int) ([]byte, error) {
	if len(salt) == 0 {
		salt = make([]byte, sha512.Size)
	}

	reader := hkdf.New(sha512.New, secret, salt, info)
	key := make([]byte, length)

	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	return key, nil
}

// deriveSealKey derives the AES key of a sealed payload.
//
//	salt = SHA-256(ctKem)
//	info = HKDFContext || len(aad) as uint32 BE || aad
func deriveSealKey(sharedSecret, aad, ctKem []byte) ([]byte, error) {
	salt := sha256.Sum256(ctKem)

	info := make([]byte, 0, len(HKDFContext)+4+len(aad))
	info = append(info, HKDFContext...)
	info = binary.BigEndian.AppendUint32(info, uint32(len(aad)))
	info = append(info, aad...)

	return DeriveKey(sharedSecret, salt[:], info, AESKeySize)
}
