// Package session holds the state produced by a successful authentication:
// the account, the requesting app, the session key shared with the signer,
// the continuation token and its expiry.
//
// A Session admits one exchange at a time. Exchanges call Acquire before
// touching it and Release when they reach a terminal state.
package session
