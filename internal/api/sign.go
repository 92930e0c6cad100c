package api

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
)

// SignatureParam is the parameter that carries the request signature.
const SignatureParam = "api_sig"

// PutParam is the name under which a request body is signed.
const PutParam = "api_put"

// Sign computes the v1 request signature: the hex MD5 of the shared secret,
// the call path and every parameter as key+value in key order, with no
// delimiters. An api_sig entry in params is ignored so a re-signed request
// never covers its own stale signature.
func Sign(sharedSecret, path string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == SignatureParam {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(sharedSecret)
	b.WriteString(path)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params[k])
	}

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// HashPassword returns the hex MD5 of an API application password, the form
// the v1 login call expects.
func HashPassword(password string) string {
	sum := md5.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}
