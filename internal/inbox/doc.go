// Package inbox correlates inbound relay messages with the exchanges waiting
// for them.
//
// The connection reader pushes every recognised frame; exchange loops take
// the oldest message matching a command kind and, once known, a correlation
// uuid. Taking removes the message, so each message reaches exactly one
// exchange. Messages whose expiry has passed are pruned before every take.
package inbox
