// Package crypto seals stored session credentials with a post-quantum
// hybrid scheme.
//
// # Algorithm Suite
//
//   - ML-KEM-768 (NIST FIPS 203) encapsulates a fresh shared secret per
//     sealed payload.
//   - HKDF-SHA-512 (RFC 5869) derives the AES key from the shared secret,
//     salted with the SHA-256 of the KEM ciphertext and bound to
//     [HKDFContext] and the associated data.
//   - AES-256-GCM encrypts and authenticates the plaintext.
//
// Use [GenerateKeypair] once, keep [Keypair.SecretKey] out of version
// control, and pass the public key to [Seal]. [Open] fails with
// [ErrDecryptionFailed] if the payload or its associated data was altered.
package crypto
