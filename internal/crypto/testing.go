package crypto

import "io"

// SetRandReaderForTesting replaces the random source used for key
// generation and nonces. It returns a function restoring the previous one.
func SetRandReaderForTesting(r io.Reader) func() {
	original := randReader
	randReader = r
	return func() { randReader = original }
}
