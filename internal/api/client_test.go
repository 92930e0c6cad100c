package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/time/rate"
)

const (
	successXML = `<response status="success"><lists><list id="1"/></lists></response>`
	staleXML   = `<response status="fail"><error_code>401</error_code><error_message>Authorization problem.  Access not allowed.</error_message></response>`
	busyXML    = `<response status="fail"><error_code>503</error_code><error_message>Service Unavailable</error_message></response>`
	deniedXML  = `<response status="fail"><error_code>401</error_code><error_message>You do not have access to this resource.</error_message></response>`
)

func loginXML(token string, seq int) string {
	return fmt.Sprintf(`<response status="success"><auth><token>%s</token><seq>%d</seq></auth></response>`, token, seq)
}

// recorder keeps the requests a test server received.
type recorder struct {
	mu       sync.Mutex
	requests []recorded
}

type recorded struct {
	method string
	path   string
	query  map[string]string
	body   string
	header http.Header
}

func (r *recorder) add(req *http.Request) recorded {
	body, _ := io.ReadAll(req.Body)
	q := map[string]string{}
	for k, v := range req.URL.Query() {
		q[k] = v[0]
	}
	rec := recorded{method: req.Method, path: req.URL.Path, query: q, body: string(body), header: req.Header.Clone()}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, rec)
	return rec
}

func (r *recorder) count(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.requests {
		if strings.HasPrefix(rec.path, prefix) {
			n++
		}
	}
	return n
}

func (r *recorder) last(prefix string) recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.requests) - 1; i >= 0; i-- {
		if strings.HasPrefix(r.requests[i].path, prefix) {
			return r.requests[i]
		}
	}
	return recorded{}
}

// putSignature is the v1 signature of a PUT as the service computes it: the
// body is signed as api_put alongside the query parameters.
func putSignature(secret, path string, query map[string]string, body string) string {
	params := map[string]string{"api_put": body}
	for k, v := range query {
		if k != "api_sig" {
			params[k] = v
		}
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(secret + path)
	for _, k := range keys {
		b.WriteString(k + params[k])
	}
	return md5Hex(b.String())
}

func testRetry(max int) *RetryConfig {
	return &RetryConfig{MaxRetries: max, BackoffUnit: time.Millisecond}
}

func newV1Client(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	base := []Option{
		WithBaseURL(srv.URL),
		WithRetryConfig(testRetry(DefaultMaxRetries)),
		WithLogin("user", "hash"),
	}
	c, err := New(&SignatureAuth{APIKey: "KEY", SharedSecret: "secret"}, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func listsRequest() *Request {
	return &Request{Path: "a/1/c/2/lists"}
}

func TestNew_RequiresScheme(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("expected error for nil scheme")
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(&SignatureAuth{APIKey: "KEY"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q, want %q", c.baseURL, DefaultBaseURL)
	}
	hc, ok := c.httpClient.(*http.Client)
	if !ok || hc.Timeout != DefaultTimeout {
		t.Errorf("httpClient = %#v, want *http.Client with %v timeout", c.httpClient, DefaultTimeout)
	}
	if c.retry.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries = %d, want %d", c.retry.MaxRetries, DefaultMaxRetries)
	}
}

func TestExecute_RateLimitedThenSuccess(t *testing.T) {
	const limited = 3
	rec := &recorder{}
	var calls int32

	var randCalls int32
	retry := testRetry(DefaultMaxRetries)
	retry.Rand = func() float64 {
		atomic.AddInt32(&randCalls, 1)
		return 0.5
	}

	c := newV1Client(t, func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		if atomic.AddInt32(&calls, 1) <= limited {
			fmt.Fprint(w, busyXML)
			return
		}
		fmt.Fprint(w, successXML)
	}, WithRetryConfig(retry))
	c.SetSession(Session{Token: "tok", Sequence: 1})

	env, err := c.Execute(context.Background(), listsRequest())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !env.OK {
		t.Error("envelope not OK")
	}
	if got := rec.count("/a/1"); got != limited+1 {
		t.Errorf("calls = %d, want %d", got, limited+1)
	}
	if got := c.Retries(); got != 0 {
		t.Errorf("Retries() = %d, want 0", got)
	}
	if got := atomic.LoadInt32(&randCalls); got != limited {
		t.Errorf("backoffs = %d, want %d", got, limited)
	}
}

func TestExecute_StaleSessionLogsInOnce(t *testing.T) {
	rec := &recorder{}
	c := newV1Client(t, func(w http.ResponseWriter, r *http.Request) {
		got := rec.add(r)
		switch {
		case strings.HasPrefix(got.path, "/auth/login"):
			fmt.Fprint(w, loginXML("fresh", 8))
		case got.query["api_tok"] == "old":
			fmt.Fprint(w, staleXML)
		default:
			fmt.Fprint(w, successXML)
		}
	})
	c.SetSession(Session{Token: "old", Sequence: 1})

	if _, err := c.Execute(context.Background(), listsRequest()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if got := rec.count("/auth/login"); got != 1 {
		t.Errorf("logins = %d, want 1", got)
	}
	if got := rec.count("/a/1"); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
	last := rec.last("/a/1")
	if last.query["api_tok"] != "fresh" || last.query["api_seq"] != "8" {
		t.Errorf("reissued call tok/seq = %q/%q, want fresh/8", last.query["api_tok"], last.query["api_seq"])
	}
	if s := c.Session(); s.Token != "fresh" || s.Sequence != 8 {
		t.Errorf("Session() = %+v", s)
	}
	if got := c.Retries(); got != 0 {
		t.Errorf("Retries() = %d, want 0", got)
	}
}

func TestExecute_PermissionDenied(t *testing.T) {
	rec := &recorder{}
	c := newV1Client(t, func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		fmt.Fprint(w, deniedXML)
	})
	c.SetSession(Session{Token: "tok", Sequence: 1})

	_, err := c.Execute(context.Background(), listsRequest())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrUnauthorized) || !errors.Is(err, ErrUnrecoverable) {
		t.Errorf("error = %v, want unauthorized and unrecoverable", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Path != "a/1/c/2/lists" || apiErr.Code != "401" {
		t.Errorf("APIError = %+v", apiErr)
	}
	if got := rec.count("/"); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
	if got := c.Retries(); got != 0 {
		t.Errorf("Retries() = %d, want 0", got)
	}
}

func TestExecute_OtherErrorFailsImmediately(t *testing.T) {
	rec := &recorder{}
	c := newV1Client(t, func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		fmt.Fprint(w, `<response status="fail"><error_code>404</error_code><error_message>Not Found</error_message></response>`)
	})
	c.SetSession(Session{Token: "tok", Sequence: 1})

	_, err := c.Execute(context.Background(), listsRequest())
	if !errors.Is(err, ErrUnrecoverable) || errors.Is(err, ErrUnauthorized) {
		t.Errorf("error = %v", err)
	}
	if !strings.Contains(err.Error(), "Not Found") {
		t.Errorf("error %q does not carry the service message", err)
	}
	if got := rec.count("/"); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestExecute_RetryExhausted(t *testing.T) {
	rec := &recorder{}
	c := newV1Client(t, func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		fmt.Fprint(w, busyXML)
	}, WithRetryConfig(testRetry(2)))
	c.SetSession(Session{Token: "tok", Sequence: 1})

	_, err := c.Execute(context.Background(), listsRequest())
	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("error = %v, want ErrRetryExhausted", err)
	}
	if got := rec.count("/"); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}

	// The counter stays above the ceiling: no further requests are sent.
	_, err = c.Execute(context.Background(), &Request{Path: "a/1/c/2/campaigns"})
	var exhausted *RetryExhaustedError
	if !errors.As(err, &exhausted) || exhausted.Path != "a/1/c/2/campaigns" || exhausted.MaxRetries != 2 {
		t.Errorf("error = %v, want RetryExhaustedError for campaigns", err)
	}
	if got := rec.count("/"); got != 3 {
		t.Errorf("calls after exhaustion = %d, want 3", got)
	}

	c.ResetRetries()
	if got := c.Retries(); got != 0 {
		t.Errorf("Retries() after reset = %d", got)
	}
	c.Execute(context.Background(), listsRequest())
	if got := rec.count("/"); got <= 3 {
		t.Error("no request sent after ResetRetries")
	}
}

func TestExecute_EndToEndFourthAttemptSucceeds(t *testing.T) {
	var calls int32
	c := newV1Client(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 3 {
			fmt.Fprint(w, busyXML)
			return
		}
		fmt.Fprint(w, successXML)
	}, WithRetryConfig(testRetry(5)))
	c.SetSession(Session{Token: "tok", Sequence: 1})

	env, err := c.Execute(context.Background(), listsRequest())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := env.Root.Find("lists/list").Attr("id"); got != "1" {
		t.Errorf("list id = %q, want 1", got)
	}
	if got := atomic.LoadInt32(&calls); got != 4 {
		t.Errorf("calls = %d, want 4", got)
	}
	if got := c.Retries(); got != 0 {
		t.Errorf("Retries() = %d, want 0", got)
	}
}

func TestExecute_ImplicitLogin(t *testing.T) {
	rec := &recorder{}
	c := newV1Client(t, func(w http.ResponseWriter, r *http.Request) {
		got := rec.add(r)
		if strings.HasPrefix(got.path, "/auth/login") {
			fmt.Fprint(w, loginXML("abc123", 7))
			return
		}
		fmt.Fprint(w, successXML)
	})

	if _, err := c.Execute(context.Background(), listsRequest()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	login := rec.last("/auth/login")
	if login.path != "/auth/login/user/hash" {
		t.Errorf("login path = %q", login.path)
	}
	if _, ok := login.query["api_tok"]; ok {
		t.Error("login call carries api_tok")
	}
	if login.query["api_key"] != "KEY" || login.query["api_sig"] == "" {
		t.Errorf("login query = %v", login.query)
	}

	call := rec.last("/a/1")
	if call.query["api_tok"] != "abc123" || call.query["api_seq"] != "7" {
		t.Errorf("call tok/seq = %q/%q, want abc123/7", call.query["api_tok"], call.query["api_seq"])
	}
	want := Sign("secret", "a/1/c/2/lists", map[string]string{
		"api_key": "KEY", "api_tok": "abc123", "api_seq": "7",
	})
	if call.query["api_sig"] != want {
		t.Errorf("api_sig = %q, want %q", call.query["api_sig"], want)
	}
	if got := c.Retries(); got != 0 {
		t.Errorf("Retries() = %d, want 0", got)
	}
}

func TestExecute_PersistentStaleSessionTerminates(t *testing.T) {
	rec := &recorder{}
	c := newV1Client(t, func(w http.ResponseWriter, r *http.Request) {
		got := rec.add(r)
		if strings.HasPrefix(got.path, "/auth/login") {
			fmt.Fprint(w, loginXML("fresh", 2))
			return
		}
		fmt.Fprint(w, staleXML)
	}, WithRetryConfig(testRetry(3)))
	c.SetSession(Session{Token: "old", Sequence: 1})

	done := make(chan error, 1)
	go func() {
		_, err := c.Execute(context.Background(), listsRequest())
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrRetryExhausted) {
			t.Errorf("error = %v, want ErrRetryExhausted", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Execute() did not terminate")
	}

	if got := rec.count("/a/1"); got != 4 {
		t.Errorf("calls = %d, want 4", got)
	}
	if got := rec.count("/auth/login"); got != 3 {
		t.Errorf("logins = %d, want 3", got)
	}
}

func TestExecute_StaleOnLoginPathFails(t *testing.T) {
	rec := &recorder{}
	c := newV1Client(t, func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		fmt.Fprint(w, staleXML)
	})

	_, err := c.Execute(context.Background(), LoginRequest("user", "hash"))
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
	if got := rec.count("/"); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestExecute_ParseError(t *testing.T) {
	rec := &recorder{}
	c := newV1Client(t, func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "<html><body>bad gateway")
	})
	c.SetSession(Session{Token: "tok", Sequence: 1})

	_, err := c.Execute(context.Background(), listsRequest())
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want ParseError", err)
	}
	if parseErr.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d", parseErr.StatusCode)
	}
	if !errors.Is(err, ErrMalformedResponse) {
		t.Error("ParseError is not ErrMalformedResponse")
	}
	if got := rec.count("/"); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestExecute_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(&SignatureAuth{APIKey: "KEY", SharedSecret: "secret"}, WithBaseURL(url))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c.SetSession(Session{Token: "tok", Sequence: 1})

	_, err = c.Execute(context.Background(), listsRequest())
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("error = %v, want NetworkError", err)
	}
	if strings.Contains(netErr.URL, "api_key") || strings.Contains(err.Error(), "KEY") {
		t.Errorf("network error leaks credentials: %v", err)
	}
	if got := c.Retries(); got != 0 {
		t.Errorf("Retries() = %d, want 0", got)
	}
}

func TestExecute_BodyKeptAcrossRetries(t *testing.T) {
	rec := &recorder{}
	var calls int32
	c := newV1Client(t, func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		if atomic.AddInt32(&calls, 1) == 1 {
			fmt.Fprint(w, busyXML)
			return
		}
		fmt.Fprint(w, successXML)
	})
	c.SetSession(Session{Token: "tok", Sequence: 1})

	params := map[string]string{"listId": "9"}
	req := &Request{
		Path:     "a/1/c/2/messages",
		Params:   params,
		Body:     []byte(`<messages><message><subject>Hi</subject></message></messages>`),
		Encoding: EncodingXML,
	}
	if _, err := c.Execute(context.Background(), req); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(params) != 1 {
		t.Errorf("caller params modified: %v", params)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.requests) != 2 {
		t.Fatalf("calls = %d, want 2", len(rec.requests))
	}
	for i, got := range rec.requests {
		if got.method != http.MethodPut {
			t.Errorf("call %d method = %s, want PUT", i, got.method)
		}
		if !strings.Contains(got.body, "<subject>Hi</subject>") {
			t.Errorf("call %d body = %q", i, got.body)
		}
		if got.query["listId"] != "9" {
			t.Errorf("call %d query = %v", i, got.query)
		}
		if _, ok := got.query["api_put"]; ok {
			t.Errorf("call %d sends api_put in the query", i)
		}
		if want := putSignature("secret", "a/1/c/2/messages", got.query, got.body); got.query["api_sig"] != want {
			t.Errorf("call %d api_sig = %s, want %s", i, got.query["api_sig"], want)
		}
		if ct := got.header.Get("Content-Type"); !strings.HasPrefix(ct, "text/xml") {
			t.Errorf("call %d Content-Type = %q", i, ct)
		}
	}
}

func TestExecute_PutSignsBody(t *testing.T) {
	rec := &recorder{}
	c := newV1Client(t, func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		fmt.Fprint(w, successXML)
	})
	c.SetSession(Session{Token: "tok", Sequence: 3})

	body := `<contacts><contact><email>a@example.com</email></contact></contacts>`
	req := &Request{Path: "a/1/c/2/contacts", Body: []byte(body), Encoding: EncodingXML}
	if _, err := c.Execute(context.Background(), req); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	got := rec.last("/a/1/c/2/contacts")
	if got.method != http.MethodPut || got.body != body {
		t.Fatalf("request = %s %q", got.method, got.body)
	}
	if want := putSignature("secret", "a/1/c/2/contacts", got.query, body); got.query["api_sig"] != want {
		t.Errorf("api_sig = %s, want %s", got.query["api_sig"], want)
	}
	if got.query["api_sig"] == Sign("secret", "a/1/c/2/contacts", got.query) {
		t.Error("api_sig does not cover the body")
	}
}

func TestExecute_FormEncoding(t *testing.T) {
	var form map[string]string
	c := newV1Client(t, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		form = map[string]string{}
		for k, v := range r.PostForm {
			form[k] = v[0]
		}
		fmt.Fprint(w, successXML)
	})
	c.SetSession(Session{Token: "tok", Sequence: 1})

	req := &Request{Path: "a/1/c/2/contacts", Params: map[string]string{"email": "a@b.c"}, Method: http.MethodPost, Encoding: EncodingURL}
	if _, err := c.Execute(context.Background(), req); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if form["email"] != "a@b.c" || form["api_tok"] != "tok" || form["api_sig"] == "" {
		t.Errorf("form = %v", form)
	}
}

type memStore struct {
	mu      sync.Mutex
	session Session
	sets    int
	setErr  error
}

func (m *memStore) Credentials(context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, nil
}

func (m *memStore) SetCredentials(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.session = s
	return nil
}

func TestCredentialStore(t *testing.T) {
	t.Run("loaded at construction", func(t *testing.T) {
		rec := &recorder{}
		store := &memStore{session: Session{Token: "shared", Sequence: 3}}
		c := newV1Client(t, func(w http.ResponseWriter, r *http.Request) {
			rec.add(r)
			fmt.Fprint(w, successXML)
		}, WithCredentialStore(store))

		if _, err := c.Execute(context.Background(), listsRequest()); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if rec.count("/auth/login") != 0 {
			t.Error("client logged in despite stored session")
		}
		if got := rec.last("/a/1").query["api_tok"]; got != "shared" {
			t.Errorf("api_tok = %q, want shared", got)
		}
	})

	t.Run("updated after login", func(t *testing.T) {
		store := &memStore{}
		c := newV1Client(t, func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/auth/login") {
				fmt.Fprint(w, loginXML("abc123", 7))
				return
			}
			fmt.Fprint(w, successXML)
		}, WithCredentialStore(store))

		if _, err := c.Execute(context.Background(), listsRequest()); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if store.session.Token != "abc123" || store.session.Sequence != 7 {
			t.Errorf("stored session = %+v", store.session)
		}
	})

	t.Run("set failure does not fail the call", func(t *testing.T) {
		store := &memStore{setErr: errors.New("disk full")}
		c := newV1Client(t, func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/auth/login") {
				fmt.Fprint(w, loginXML("abc123", 7))
				return
			}
			fmt.Fprint(w, successXML)
		}, WithCredentialStore(store))

		if _, err := c.Execute(context.Background(), listsRequest()); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if store.sets != 1 {
			t.Errorf("SetCredentials calls = %d, want 1", store.sets)
		}
		if c.Session().Token != "abc123" {
			t.Error("session not kept after store failure")
		}
	})
}

func TestWithAuthenticator(t *testing.T) {
	rec := &recorder{}
	var logins int32
	auth := AuthenticatorFunc(func(context.Context) (Session, error) {
		atomic.AddInt32(&logins, 1)
		return Session{Token: "custom", Sequence: 42}, nil
	})
	c := newV1Client(t, func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		fmt.Fprint(w, successXML)
	}, WithAuthenticator(auth))

	if _, err := c.Execute(context.Background(), listsRequest()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if atomic.LoadInt32(&logins) != 1 {
		t.Errorf("logins = %d, want 1", logins)
	}
	if rec.count("/auth/login") != 0 {
		t.Error("default login call issued")
	}
	if got := rec.last("/a/1").query["api_seq"]; got != "42" {
		t.Errorf("api_seq = %q, want 42", got)
	}
}

func TestAuthenticatorError(t *testing.T) {
	loginErr := errors.New("sso down")
	c := newV1Client(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	}, WithAuthenticator(AuthenticatorFunc(func(context.Context) (Session, error) {
		return Session{}, loginErr
	})))

	if _, err := c.Execute(context.Background(), listsRequest()); !errors.Is(err, loginErr) {
		t.Errorf("error = %v, want %v", err, loginErr)
	}
}

func TestExecute_MissingAuthenticator(t *testing.T) {
	c := newV1Client(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	}, WithAuthenticator(nil))

	if _, err := c.Execute(context.Background(), listsRequest()); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("error = %v, want ErrMissingCredentials", err)
	}
}

func TestExecute_HeaderAuth(t *testing.T) {
	rec := &recorder{}
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"errors":["Too many requests"]}`)
			return
		}
		fmt.Fprint(w, `{"accounts":[{"accountId":"100"}]}`)
	}))
	defer srv.Close()

	c, err := New(&HeaderAuth{AppID: "app", Username: "user", Password: "pw"},
		WithBaseURL(srv.URL), WithRetryConfig(testRetry(5)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	env, err := c.Execute(context.Background(), &Request{Path: "a/"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := env.Get("accounts.0.accountId").String(); got != "100" {
		t.Errorf("accountId = %q, want 100", got)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
	last := rec.last("/a")
	if last.header.Get("API-AppId") != "app" || last.header.Get("API-Version") != "2.2" {
		t.Errorf("headers = %v", last.header)
	}
	if len(last.query) != 0 {
		t.Errorf("query = %v, want none", last.query)
	}
}

func TestExecute_HeaderAuthUnauthorizedNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"errors":["Authorization problem.  Access not allowed."]}`)
	}))
	defer srv.Close()

	c, err := New(&HeaderAuth{AppID: "app"}, WithBaseURL(srv.URL), WithRetryConfig(testRetry(5)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = c.Execute(context.Background(), &Request{Path: "a/"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestExecute_ContextCancelledDuringBackoff(t *testing.T) {
	c := newV1Client(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, busyXML)
	}, WithRetryConfig(&RetryConfig{MaxRetries: 5, BackoffUnit: time.Hour, Rand: func() float64 { return 1 }}))
	c.SetSession(Session{Token: "tok", Sequence: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := c.Execute(ctx, listsRequest()); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
}

func TestExecute_Limiter(t *testing.T) {
	c := newV1Client(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	}, WithLimiter(rate.NewLimiter(rate.Every(time.Hour), 1)))
	c.SetSession(Session{Token: "tok", Sequence: 1})
	c.limiter.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := c.Execute(ctx, listsRequest()); err == nil {
		t.Error("expected limiter error")
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	var calls int32
	c := newV1Client(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/auth/login") {
			fmt.Fprint(w, loginXML("abc123", 7))
			return
		}
		if atomic.AddInt32(&calls, 1) == 1 {
			fmt.Fprint(w, busyXML)
			return
		}
		fmt.Fprint(w, successXML)
	}, WithMetrics(m))

	if _, err := c.Execute(context.Background(), listsRequest()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if got := testutil.ToFloat64(m.logins); got != 1 {
		t.Errorf("logins = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.retries.WithLabelValues("rate_limited")); got != 1 {
		t.Errorf("rate_limited retries = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("success")); got != 2 {
		t.Errorf("successful requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("rate_limited")); got != 1 {
		t.Errorf("rate limited requests = %v, want 1", got)
	}

	again, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("second NewMetrics() error = %v", err)
	}
	if again.logins != m.logins {
		t.Error("second NewMetrics() did not reuse registered collectors")
	}
}

func TestRequestOutcome(t *testing.T) {
	tests := []struct {
		name     string
		decision Decision
		code     string
		want     string
	}{
		{"success", DecisionSuccess, "", "success"},
		{"rate limited", DecisionRateLimited, "503", "rate_limited"},
		{"stale session", DecisionStaleSession, "401", "stale_session"},
		{"permission denied", DecisionFail, "401", "unauthorized"},
		{"not found", DecisionFail, "404", "error"},
		{"unexpected code", DecisionFail, "E_SOMETHING_NEW", "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := requestOutcome(tt.decision, &Envelope{Code: tt.code}); got != tt.want {
				t.Errorf("requestOutcome() = %q, want %q", got, tt.want)
			}
		})
	}
}
