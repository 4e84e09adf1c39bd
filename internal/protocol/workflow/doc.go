// Package workflow drives request exchanges with a remote signer through the
// relay: authenticate, sign-and-broadcast and challenge-sign.
//
// Every exchange runs the same poll-driven state machine on its own
// goroutine. Ticks are strictly sequential, so a message taken from the inbox
// is applied exactly once. The caller receives a Handle that exposes the
// pending event, cancellation and the terminal Result.
package workflow
