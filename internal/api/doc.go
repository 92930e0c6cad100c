// Package api implements the iContact request pipeline: credential
// injection, request signing, dispatch, response classification, backoff
// and re-authentication.
//
// # Schemes
//
// A [Scheme] supplies the wire dialect. [SignatureAuth] is the v1 API:
// every call carries api_key, calls outside auth/login also carry the
// session token and sequence (api_tok, api_seq), and every call is signed
// with the shared secret (api_sig). Responses are XML. [HeaderAuth] is the
// v2.2 API: static credentials travel as headers and responses are JSON.
//
// # Retry Behavior
//
// The client keeps one retry counter. It grows on every rate-limited
// response, every stale-session response and every implicit login, and is
// reset to zero when a call succeeds. Before each attempt the counter is
// compared with [RetryConfig.MaxRetries]; once it is larger the call fails
// with [RetryExhaustedError] and no request is sent, until
// [Client.ResetRetries] is called.
//
// The backoff before a retry is a random fraction of counter * BackoffUnit.
//
//	503 (v1) / 429, 503 (v2.2)   back off, retry
//	401 "Authorization problem.  Access not allowed."   back off, log in, retry
//	any other error               fail with APIError
//
// Network and parse failures are never retried.
//
// # Authentication
//
// Sessions come from an [Authenticator]. [WithLogin] installs the v1 login
// call, which runs through the same pipeline. Sessions obtained are
// forwarded to an optional [CredentialStore] so several clients can share
// them.
//
// # Thread Safety
//
// Execute holds the client lock for the whole call, including backoff
// sleeps and logins. Use one client per concurrent caller.
package api
