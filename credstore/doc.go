// Package credstore provides credential stores that share v1 login sessions
// between iContact clients.
//
// [Memory] shares a session inside one process. [File] persists it as JSON
// so separate processes (or successive runs of a CLI) can reuse a login.
// A File created with a [Key] seals the session with ML-KEM-768 and
// AES-256-GCM so the token is unreadable without the key.
package credstore
