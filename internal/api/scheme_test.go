package api

import (
	"net/http"
	"testing"
)

func TestSignatureAuth_Prepare(t *testing.T) {
	s := &SignatureAuth{APIKey: "KEY", SharedSecret: "secret"}

	t.Run("session call", func(t *testing.T) {
		params := map[string]string{"listId": "5"}
		header := make(http.Header)
		s.Prepare("a/1/c/2/lists", params, nil, Session{Token: "abc123", Sequence: 7}, header)

		if params["api_key"] != "KEY" {
			t.Errorf("api_key = %q", params["api_key"])
		}
		if params["api_tok"] != "abc123" {
			t.Errorf("api_tok = %q, want abc123", params["api_tok"])
		}
		if params["api_seq"] != "7" {
			t.Errorf("api_seq = %q, want 7", params["api_seq"])
		}
		want := Sign("secret", "a/1/c/2/lists", params)
		if params["api_sig"] != want {
			t.Errorf("api_sig = %q, want %q", params["api_sig"], want)
		}
		if header.Get("Accept") != "text/xml" {
			t.Errorf("Accept = %q", header.Get("Accept"))
		}
	})

	t.Run("login call", func(t *testing.T) {
		params := map[string]string{}
		s.Prepare("auth/login/user/hash", params, nil, Session{Token: "ignored"}, make(http.Header))

		if _, ok := params["api_tok"]; ok {
			t.Error("login call carries api_tok")
		}
		if _, ok := params["api_seq"]; ok {
			t.Error("login call carries api_seq")
		}
		if params["api_key"] != "KEY" || params["api_sig"] == "" {
			t.Errorf("params = %v", params)
		}
	})

	t.Run("body", func(t *testing.T) {
		body := []byte(`<contacts><contact><email>a@example.com</email></contact></contacts>`)
		params := map[string]string{}
		s.Prepare("a/1/c/2/contacts", params, body, Session{Token: "abc123", Sequence: 7}, make(http.Header))

		if _, ok := params[PutParam]; ok {
			t.Error("body left in params")
		}
		want := md5Hex("secret" + "a/1/c/2/contacts" +
			"api_keyKEY" + "api_put" + string(body) + "api_seq7" + "api_tokabc123")
		if params["api_sig"] != want {
			t.Errorf("api_sig = %q, want %q", params["api_sig"], want)
		}
	})
}

func TestSignatureAuth_Classify(t *testing.T) {
	s := &SignatureAuth{}

	tests := []struct {
		name string
		env  Envelope
		want Decision
	}{
		{"success", Envelope{OK: true}, DecisionSuccess},
		{"rate limited", Envelope{Code: "503"}, DecisionRateLimited},
		{"stale session", Envelope{Code: "401", Message: StaleTokenMessage}, DecisionStaleSession},
		{"single space is permission", Envelope{Code: "401", Message: "Authorization problem. Access not allowed."}, DecisionFail},
		{"permission denied", Envelope{Code: "401", Message: "Access denied"}, DecisionFail},
		{"not found", Envelope{Code: "404", Message: "Not Found"}, DecisionFail},
		{"v2 rate limit code", Envelope{Code: "429"}, DecisionFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Classify(&tt.env); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHeaderAuth(t *testing.T) {
	h := &HeaderAuth{AppID: "app", Username: "user", Password: "pw"}

	header := make(http.Header)
	params := map[string]string{}
	h.Prepare("a/1/c/2/contacts", params, nil, Session{}, header)

	want := map[string]string{
		"API-Version":  DefaultAPIVersion,
		"API-AppId":    "app",
		"API-Username": "user",
		"API-Password": "pw",
		"Accept":       "application/json",
	}
	for k, v := range want {
		if got := header.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if len(params) != 0 {
		t.Errorf("params = %v, want none", params)
	}
	if h.NeedsSession("a/1/c/2/contacts") {
		t.Error("HeaderAuth needs no session")
	}

	tests := []struct {
		code string
		want Decision
	}{
		{"429", DecisionRateLimited},
		{"503", DecisionRateLimited},
		{"401", DecisionFail},
		{"400", DecisionFail},
	}
	for _, tt := range tests {
		if got := h.Classify(&Envelope{Code: tt.code}); got != tt.want {
			t.Errorf("Classify(%s) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestDecision_String(t *testing.T) {
	tests := map[Decision]string{
		DecisionSuccess:      "success",
		DecisionRateLimited:  "rate_limited",
		DecisionStaleSession: "stale_session",
		DecisionFail:         "fail",
	}
	for d, want := range tests {
		if got := d.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
