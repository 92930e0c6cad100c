package api

import "testing"

func TestParseXMLEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		ok      bool
		code    string
		message string
	}{
		{
			name: "success",
			body: `<response status="success"><lists/></response>`,
			ok:   true,
		},
		{
			name:    "rate limited",
			body:    `<response status="fail"><error_code>503</error_code><error_message>Service Unavailable</error_message></response>`,
			code:    "503",
			message: "Service Unavailable",
		},
		{
			name:    "stale token keeps message spacing",
			body:    `<response status="fail"><error_code>401</error_code><error_message>Authorization problem.  Access not allowed.</error_message></response>`,
			code:    "401",
			message: StaleTokenMessage,
		},
		{
			name: "missing status",
			body: `<response><error_code>500</error_code></response>`,
			code: "500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := parseEnvelope(FormatXML, 200, []byte(tt.body))
			if err != nil {
				t.Fatalf("parseEnvelope() error = %v", err)
			}
			if env.OK != tt.ok {
				t.Errorf("OK = %v, want %v", env.OK, tt.ok)
			}
			if env.Code != tt.code {
				t.Errorf("Code = %q, want %q", env.Code, tt.code)
			}
			if env.Message != tt.message {
				t.Errorf("Message = %q, want %q", env.Message, tt.message)
			}
		})
	}
}

func TestParseJSONEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		ok      bool
		code    string
		message string
	}{
		{"ok", 200, `{"accounts":[{"accountId":"1"}]}`, true, "", ""},
		{"empty body", 200, ``, true, "", ""},
		{"errors array", 401, `{"errors":["Invalid credentials"]}`, false, "401", "Invalid credentials"},
		{"error field", 429, `{"error":"slow down"}`, false, "429", "slow down"},
		{"no message", 500, `{}`, false, "500", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := parseEnvelope(FormatJSON, tt.status, []byte(tt.body))
			if err != nil {
				t.Fatalf("parseEnvelope() error = %v", err)
			}
			if env.OK != tt.ok {
				t.Errorf("OK = %v, want %v", env.OK, tt.ok)
			}
			if env.Code != tt.code {
				t.Errorf("Code = %q, want %q", env.Code, tt.code)
			}
			if env.Message != tt.message {
				t.Errorf("Message = %q, want %q", env.Message, tt.message)
			}
		})
	}
}

func TestParseJSONEnvelope_Invalid(t *testing.T) {
	if _, err := parseEnvelope(FormatJSON, 200, []byte("<html>")); err == nil {
		t.Error("expected error for non-JSON body")
	}
}

func TestEnvelope_GetAndDecode(t *testing.T) {
	env, err := parseEnvelope(FormatJSON, 200, []byte(`{"accounts":[{"accountId":"42","companyName":"ACME"}]}`))
	if err != nil {
		t.Fatalf("parseEnvelope() error = %v", err)
	}

	if got := env.Get("accounts.0.accountId").String(); got != "42" {
		t.Errorf("Get() = %q, want 42", got)
	}

	var out struct {
		Accounts []struct {
			CompanyName string `json:"companyName"`
		} `json:"accounts"`
	}
	if err := env.Decode(&out); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(out.Accounts) != 1 || out.Accounts[0].CompanyName != "ACME" {
		t.Errorf("Decode() = %+v", out)
	}

	xmlEnv := &Envelope{Format: FormatXML}
	if xmlEnv.Get("a").Exists() {
		t.Error("Get() on XML envelope returned a value")
	}
	if err := xmlEnv.Decode(&out); err == nil {
		t.Error("Decode() on XML envelope should fail")
	}
}
