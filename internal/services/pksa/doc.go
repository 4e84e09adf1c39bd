// Package pksa is the caller-facing signer service.
//
// It restores persisted sessions, runs authenticate, sign and challenge
// exchanges through the workflow engine, forwards pending events to the
// caller and saves the session a successful login produces.
package pksa
