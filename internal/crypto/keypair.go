package crypto

import (
	"bytes"
	"crypto/rand"
	"io"

	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
)

// randReader is the random source for keys, encapsulation seeds and
// nonces. nil means crypto/rand.
var randReader io.Reader

func random() io.Reader {
	if randReader != nil {
		return randReader
	}
	return rand.Reader
}

// Keypair is an ML-KEM-768 keypair used to seal stored sessions.
type Keypair struct {
	// PublicKey is the packed ML-KEM-768 public key.
	PublicKey []byte
	// SecretKey is the packed ML-KEM-768 secret key. It embeds PublicKey.
	SecretKey []byte
}

// GenerateKeypair creates a new ML-KEM-768 keypair.
func GenerateKeypair() (*Keypair, error) {
	pub, priv, err := mlkem768.GenerateKeyPair(random())
	if err != nil {
		return nil, err
	}

	// MarshalBinary never fails for keys from GenerateKeyPair.
	pubBytes, _ := pub.MarshalBinary()
	privBytes, _ := priv.MarshalBinary()

	return &Keypair{PublicKey: pubBytes, SecretKey: privBytes}, nil
}

// KeypairFromSecretKey rebuilds a keypair from a packed secret key.
func KeypairFromSecretKey(secretKey []byte) (*Keypair, error) {
	if len(secretKey) != MLKEMSecretKeySize {
		return nil, ErrInvalidSecretKeySize
	}

	var priv mlkem768.PrivateKey
	if err := priv.Unpack(secretKey); err != nil {
		return nil, err
	}

	publicKey := make([]byte, MLKEMPublicKeySize)
	copy(publicKey, secretKey[PublicKeyOffset:PublicKeyOffset+MLKEMPublicKeySize])

	return &Keypair{
		PublicKey: publicKey,
		SecretKey: append([]byte(nil), secretKey...),
	}, nil
}

// Valid reports whether the keypair has well-formed, matching keys.
func (k *Keypair) Valid() bool {
	if k == nil {
		return false
	}
	if len(k.PublicKey) != MLKEMPublicKeySize || len(k.SecretKey) != MLKEMSecretKeySize {
		return false
	}
	return bytes.Equal(k.PublicKey, k.SecretKey[PublicKeyOffset:PublicKeyOffset+MLKEMPublicKeySize])
}

// Encapsulate generates a shared secret for publicKey and the KEM
// ciphertext that carries it.
func Encapsulate(publicKey []byte) (ciphertext, sharedSecret []byte, err error) {
	if len(publicKey) != MLKEMPublicKeySize {
		return nil, nil, ErrInvalidPublicKeySize
	}

	var pub mlkem768.PublicKey
	if err := pub.Unpack(publicKey); err != nil {
		return nil, nil, err
	}

	seed := make([]byte, mlkem768.EncapsulationSeedSize)
	if _, err := io.ReadFull(random(), seed); err != nil {
		return nil, nil, err
	}

	ciphertext = make([]byte, MLKEMCiphertextSize)
	sharedSecret = make([]byte, MLKEMSharedKeySize)
	pub.EncapsulateTo(ciphertext, sharedSecret, seed)
	return ciphertext, sharedSecret, nil
}

// Decapsulate recovers the shared secret carried by a KEM ciphertext.
func (k *Keypair) Decapsulate(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) != MLKEMCiphertextSize {
		return nil, ErrInvalidCiphertextSize
	}

	var priv mlkem768.PrivateKey
	if err := priv.Unpack(k.SecretKey); err != nil {
		return nil, err
	}

	sharedSecret := make([]byte, MLKEMSharedKeySize)
	priv.DecapsulateTo(sharedSecret, ciphertext)
	return sharedSecret, nil
}
