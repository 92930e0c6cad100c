package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Session is the token and sequence obtained from a v1 login.
type Session struct {
	Token    string `json:"token"`
	Sequence int64  `json:"sequence"`
}

// Valid reports whether the session carries a token.
func (s Session) Valid() bool {
	return s.Token != ""
}

// Authenticator obtains a fresh session.
//
// Implementations must not call Execute on the client that invokes them;
// the client holds its lock while authenticating.
type Authenticator interface {
	Login(ctx context.Context) (Session, error)
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(ctx context.Context) (Session, error)

// Login implements Authenticator.
func (f AuthenticatorFunc) Login(ctx context.Context) (Session, error) {
	return f(ctx)
}

// CredentialStore shares sessions between clients. The client reads it once
// when constructed and writes to it after every successful login.
type CredentialStore interface {
	Credentials(ctx context.Context) (Session, error)
	SetCredentials(ctx context.Context, s Session) error
}

// loginAuthenticator performs the v1 login call through the client's own
// retry loop.
type loginAuthenticator struct {
	c           *Client
	username    string
	passwordMD5 string
}

// LoginRequest builds the v1 login call for a username and MD5 password.
func LoginRequest(username, passwordMD5 string) *Request {
	return &Request{
		Path:   fmt.Sprintf("%s/%s/%s", LoginPath, url.PathEscape(username), url.PathEscape(passwordMD5)),
		Method: http.MethodGet,
	}
}

func (a *loginAuthenticator) Login(ctx context.Context) (Session, error) {
	req := LoginRequest(a.username, a.passwordMD5)
	env, err := a.c.run(ctx, req, true)
	if err != nil {
		return Session{}, err
	}
	return SessionFromEnvelope(req.Path, env)
}

// SessionFromEnvelope reads auth/token and auth/seq from a login response.
func SessionFromEnvelope(path string, env *Envelope) (Session, error) {
	token := env.Root.Find("auth/token").TrimmedText()
	if token == "" {
		return Session{}, &ParseError{Path: path, StatusCode: env.StatusCode, Err: fmt.Errorf("login response has no auth/token")}
	}
	seq, err := strconv.ParseInt(env.Root.Find("auth/seq").TrimmedText(), 10, 64)
	if err != nil {
		return Session{}, &ParseError{Path: path, StatusCode: env.StatusCode, Err: fmt.Errorf("login response auth/seq: %w", err)}
	}
	return Session{Token: token, Sequence: seq}, nil
}
