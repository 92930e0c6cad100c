package icontact

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/icontact-sdk/client-go/internal/api"
)

// Session is a v1 login session: a token plus the sequence number the
// service issued with it.
type Session = api.Session

// Authenticator obtains a fresh session. See WithAuthenticator.
type Authenticator = api.Authenticator

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc = api.AuthenticatorFunc

// CredentialStore shares sessions between clients. See the credstore
// package for implementations.
type CredentialStore = api.CredentialStore

// Request describes one raw API call for Client.Execute.
type Request = api.Request

// Envelope is a parsed response returned by Client.Execute.
type Envelope = api.Envelope

// Node is an element of a parsed v1 XML response.
type Node = api.Node

// Body encodings for Request.
const (
	EncodingNone = api.EncodingNone
	EncodingURL  = api.EncodingURL
	EncodingJSON = api.EncodingJSON
	EncodingXML  = api.EncodingXML
)

// HashPassword returns the hex MD5 of an API application password, the
// form New expects.
func HashPassword(password string) string {
	return api.HashPassword(password)
}

// Client calls the iContact v1 API. Requests are signed with the
// application's shared secret; the client logs in on demand and again when
// the service reports a stale session.
//
// A Client serialises its calls. Create one client per goroutine that
// needs to issue calls in parallel, sharing a CredentialStore so they reuse
// one login.
type Client struct {
	apiClient *api.Client
	log       *zap.Logger
}

// New creates a v1 client. passwordMD5 is the hex MD5 of the API
// application password (see HashPassword), not the web site password.
// username and passwordMD5 may be empty when WithAuthenticator is used.
func New(apiKey, sharedSecret, username, passwordMD5 string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	cfg := newConfig(DefaultBaseURL, opts)

	var authOpt api.Option
	switch {
	case cfg.authenticator != nil:
		authOpt = api.WithAuthenticator(cfg.authenticator)
	case username != "" && passwordMD5 != "":
		authOpt = api.WithLogin(username, passwordMD5)
	default:
		return nil, ErrMissingCredentials
	}

	extra := []api.Option{authOpt}
	if cfg.store != nil {
		extra = append(extra, api.WithCredentialStore(cfg.store))
	}

	scheme := &api.SignatureAuth{APIKey: apiKey, SharedSecret: sharedSecret}
	apiClient, err := buildAPIClient(scheme, cfg, extra...)
	if err != nil {
		return nil, err
	}

	log := cfg.logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{apiClient: apiClient, log: log.Named("icontact")}, nil
}

// Execute issues a raw call through the request pipeline. Use it for
// operations without a dedicated method.
func (c *Client) Execute(ctx context.Context, req *Request) (*Envelope, error) {
	env, err := c.apiClient.Execute(ctx, req)
	return env, wrapError(err)
}

// Login logs in now instead of on the first call, and returns the new
// session. It also resets the retry counter.
func (c *Client) Login(ctx context.Context) (Session, error) {
	s, err := c.apiClient.Login(ctx)
	return s, wrapError(err)
}

// Session returns the session the client currently holds.
func (c *Client) Session() Session {
	return c.apiClient.Session()
}

// Retries returns the retry counter.
func (c *Client) Retries() int {
	return c.apiClient.Retries()
}

// ResetRetries clears the retry counter so a client that returned
// ErrRetryExhausted can issue calls again.
func (c *Client) ResetRetries() {
	c.apiClient.ResetRetries()
}

// get runs a GET call and returns the parsed document.
func (c *Client) get(ctx context.Context, path string, params map[string]string) (*api.Envelope, error) {
	return c.Execute(ctx, &Request{Path: path, Params: params})
}

// put runs a PUT call carrying an XML document.
func (c *Client) put(ctx context.Context, path string, body []byte) (*api.Envelope, error) {
	return c.Execute(ctx, &Request{Path: path, Body: body, Encoding: EncodingXML})
}

// ResourceRef identifies a resource by id and the URL the service reports
// for it.
type ResourceRef struct {
	ID   int64
	Href string
}

// refsAt collects the id and xlink:href of every element at path.
func refsAt(env *api.Envelope, path string) []ResourceRef {
	nodes := env.Root.FindAll(path)
	refs := make([]ResourceRef, 0, len(nodes))
	for _, n := range nodes {
		refs = append(refs, ResourceRef{ID: parseInt(n.Attr("id")), Href: n.Href()})
	}
	return refs
}

// refAt returns the single reference at path, failing when the element or
// its id is missing.
func refAt(callPath string, env *api.Envelope, path string) (ResourceRef, error) {
	n := env.Root.Find(path)
	if n == nil {
		return ResourceRef{}, malformed(callPath, env, "response has no %s element", path)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(n.Attr("id")), 10, 64)
	if err != nil {
		return ResourceRef{}, malformed(callPath, env, "%s id: %v", path, err)
	}
	return ResourceRef{ID: id, Href: n.Href()}, nil
}

// parseInt parses an optional integer field, defaulting to zero.
func parseInt(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// parseFlag reads the service's "1"/"0" booleans.
func parseFlag(s string) bool {
	return strings.TrimSpace(s) == "1"
}

func idPath(format string, ids ...int64) string {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return fmt.Sprintf(format, args...)
}
