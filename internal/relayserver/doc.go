// Package relayserver is an in-memory relay hub for development and tests.
//
// Applications connect over WebSocket and submit auth, sign and challenge
// requests. Signers (PKSAs) connect to the same endpoint and register the
// accounts they serve. The hub assigns each request a uuid, answers the
// application with a wait frame, forwards the request to the account's signer
// and routes the signer's ack, nack or err back to whichever socket the
// request is currently attached to.
//
// Behaviour
//
//   - Every connection first receives connected{protocol, timeout}.
//   - Requests for an account without a registered signer are queued until
//     one registers or the request expires.
//   - An outcome arriving while the requesting application is disconnected is
//     buffered; attach_req{uuid} from a new socket rebinds the request and
//     flushes the buffer after attach_ack. Unknown or expired uuids get
//     attach_nack.
//   - Unknown commands are answered with error.
//
// The hub never sees plaintext: payloads are encrypted under session keys it
// does not hold.
package relayserver
