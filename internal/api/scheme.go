package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/icontact-sdk/client-go/internal/apierrors"
)

// LoginPath prefixes the v1 login call. Calls under it do not need (and
// cannot carry) a session token.
const LoginPath = "auth/login"

// StaleTokenMessage is the v1 error_message that accompanies a 401 caused
// by an expired or invalid session token. Any other 401 message is a
// permission failure.
const StaleTokenMessage = "Authorization problem.  Access not allowed."

// DefaultAPIVersion is the API-Version header sent by HeaderAuth.
const DefaultAPIVersion = "2.2"

// Decision is the pipeline's verdict on a parsed response.
type Decision int

const (
	// DecisionSuccess returns the envelope to the caller.
	DecisionSuccess Decision = iota
	// DecisionRateLimited backs off and reissues the call.
	DecisionRateLimited
	// DecisionStaleSession backs off, logs in again and reissues the call.
	DecisionStaleSession
	// DecisionFail surfaces an unrecoverable APIError.
	DecisionFail
)

func (d Decision) String() string {
	switch d {
	case DecisionSuccess:
		return "success"
	case DecisionRateLimited:
		return "rate_limited"
	case DecisionStaleSession:
		return "stale_session"
	default:
		return "fail"
	}
}

// Scheme is an authentication scheme and wire dialect.
type Scheme interface {
	// Format reports how response bodies are parsed.
	Format() Format
	// NeedsSession reports whether calls to path require a login session.
	NeedsSession(path string) bool
	// Prepare adds credentials to the parameters and headers of one attempt.
	// body is the raw payload of a PUT or POST, nil when there is none.
	Prepare(path string, params map[string]string, body []byte, session Session, header http.Header)
	// Classify decides what to do with a parsed response.
	Classify(env *Envelope) Decision
}

// SignatureAuth is the v1 scheme: api_key, session token and sequence are
// sent as parameters and every request is signed with the shared secret.
type SignatureAuth struct {
	APIKey       string
	SharedSecret string
}

// Format implements Scheme.
func (s *SignatureAuth) Format() Format { return FormatXML }

// NeedsSession implements Scheme.
func (s *SignatureAuth) NeedsSession(path string) bool {
	return !strings.HasPrefix(strings.TrimLeft(path, "/"), LoginPath)
}

// Prepare implements Scheme. A body is signed as the api_put parameter but
// is not added to params, so it travels only as the request payload.
func (s *SignatureAuth) Prepare(path string, params map[string]string, body []byte, session Session, header http.Header) {
	params["api_key"] = s.APIKey
	if s.NeedsSession(path) {
		params["api_tok"] = session.Token
		params["api_seq"] = strconv.FormatInt(session.Sequence, 10)
	}

	signed := params
	if body != nil {
		signed = make(map[string]string, len(params)+1)
		for k, v := range params {
			signed[k] = v
		}
		signed[PutParam] = string(body)
	}
	params[SignatureParam] = Sign(s.SharedSecret, path, signed)
	header.Set("Accept", "text/xml")
}

// Classify implements Scheme.
func (s *SignatureAuth) Classify(env *Envelope) Decision {
	if env.OK {
		return DecisionSuccess
	}
	switch env.Code {
	case CodeRateLimited:
		return DecisionRateLimited
	case CodeUnauthorized:
		if env.Message == StaleTokenMessage {
			return DecisionStaleSession
		}
	}
	return DecisionFail
}

// HeaderAuth is the v2.2 scheme: static credentials travel as headers on
// every call and there is no login step.
type HeaderAuth struct {
	AppID    string
	Username string
	Password string
	Version  string
}

// Format implements Scheme.
func (h *HeaderAuth) Format() Format { return FormatJSON }

// NeedsSession implements Scheme.
func (h *HeaderAuth) NeedsSession(string) bool { return false }

// Prepare implements Scheme.
func (h *HeaderAuth) Prepare(_ string, _ map[string]string, _ []byte, _ Session, header http.Header) {
	version := h.Version
	if version == "" {
		version = DefaultAPIVersion
	}
	header.Set("Accept", "application/json")
	header.Set("API-Version", version)
	header.Set("API-AppId", h.AppID)
	header.Set("API-Username", h.Username)
	header.Set("API-Password", h.Password)
}

// Classify implements Scheme. A 401 is never retried: the credentials are
// static, so logging in again cannot help.
func (h *HeaderAuth) Classify(env *Envelope) Decision {
	if env.OK {
		return DecisionSuccess
	}
	switch env.Code {
	case CodeTooMany, CodeRateLimited:
		return DecisionRateLimited
	}
	return DecisionFail
}

// Service error codes the schemes classify on.
const (
	CodeUnauthorized = apierrors.CodeUnauthorized
	CodeRateLimited  = apierrors.CodeRateLimited
	CodeTooMany      = apierrors.CodeTooMany
)
