// Package main runs the in-memory WebSocket relay used by pksalink during
// development and tests, optionally with a simulated signer app attached.
//
// Endpoints
//
//	GET /ws
//	    WebSocket endpoint for applications and signers. Every connection
//	    first receives connected{protocol, timeout}.
//
//	GET /metrics
//	    Prometheus metrics for the hub and the dev signer's client side.
//
// Behaviour
//
//   - All state is held in memory and lost on process exit.
//   - With --tls-cert and --tls-key the relay serves wss; otherwise plain ws,
//     which clients only accept on loopback addresses.
//   - --dev-signer alice,bob starts an in-process signer serving those
//     accounts. It can only open session keys escrowed under
//     --shared-secret, so clients must be configured with the same
//     SharedSecret for logins to complete.
//   - The default listen address is 127.0.0.1:8090.
//
// The relay never sees plaintext: payloads are encrypted under session keys
// held only by the application and the signer.
package main
