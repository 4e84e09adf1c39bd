// Package relay manages the persistent WebSocket connection to the relay
// server that carries every exchange between the application and the user's
// signer.
//
// A Manager owns at most one socket. Connect dials it on demand, reads the
// server's `connected` handshake to learn the protocol version and the
// request expiry the server enforces, then starts a reader goroutine that
// feeds every inbound frame to the inbox. When the socket closes the manager
// forgets it; the next Connect dials a fresh one and bumps the connection
// epoch so exchanges can tell that they must reattach.
//
// Send never blocks on a missing connection: frames written while
// disconnected are dropped and callers must rely on their own timeouts.
package relay
