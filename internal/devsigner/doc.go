// Package devsigner simulates a signer app (PKSA) for local runs and
// end-to-end tests.
//
// It connects to a relay, registers its accounts and answers requests:
// logins get a fresh token and, when asked, an ed25519 challenge signature;
// challenge requests get a signature; sign requests get a synthetic
// transaction id. Session keys reach it either escrowed in auth_req under
// the shared secret or out of band through the auth link the application
// displays (AcceptLink).
package devsigner
