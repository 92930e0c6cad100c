package api

import (
	"crypto/md5"
	"encoding/hex"
	"testing"
)

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestSign(t *testing.T) {
	params := map[string]string{
		"api_key": "KEY",
		"api_tok": "abc123",
		"api_seq": "7",
	}

	want := md5Hex("secret" + "a/123/lists" + "api_keyKEY" + "api_seq7" + "api_tokabc123")
	if got := Sign("secret", "a/123/lists", params); got != want {
		t.Errorf("Sign() = %s, want %s", got, want)
	}
}

func TestSign_OrderInvariant(t *testing.T) {
	a := map[string]string{}
	b := map[string]string{}
	keys := []string{"zeta", "alpha", "mid", "api_key", "b"}
	for i, k := range keys {
		a[k] = k + "-value"
		b[keys[len(keys)-1-i]] = keys[len(keys)-1-i] + "-value"
	}

	if Sign("s", "p", a) != Sign("s", "p", b) {
		t.Error("signature depends on insertion order")
	}
}

func TestSign_IgnoresExistingSignature(t *testing.T) {
	params := map[string]string{"api_key": "KEY", "x": "1"}
	clean := Sign("secret", "path", params)

	params[SignatureParam] = "stale-signature"
	if got := Sign("secret", "path", params); got != clean {
		t.Errorf("Sign() with api_sig = %s, want %s", got, clean)
	}
}

func TestSign_CoversSecretAndPath(t *testing.T) {
	params := map[string]string{"api_key": "KEY"}
	base := Sign("secret", "path", params)

	if Sign("other", "path", params) == base {
		t.Error("signature does not depend on the shared secret")
	}
	if Sign("secret", "other", params) == base {
		t.Error("signature does not depend on the path")
	}
}

func TestHashPassword(t *testing.T) {
	// md5("password")
	const want = "5f4dcc3b5aa765d61d8327deb882cf99"
	if got := HashPassword("password"); got != want {
		t.Errorf("HashPassword() = %s, want %s", got, want)
	}
}
