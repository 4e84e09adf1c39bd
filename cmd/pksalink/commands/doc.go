// Package commands implements the pksalink command-line interface.
//
// Commands:
//
//	login <account>                 authenticate with the account's signer app
//	sign <account> --op <json>...   sign (and by default broadcast) operations
//	challenge <account> <text>      have the signer sign a challenge
//	logout <account> [--forget]     end (or also remove) the stored session
//	status <account>                show the stored session
//
// Global flags select the config file, home directory, passphrase and relay.
// While a request waits for the signer, Ctrl-C cancels it. Logins print the
// auth link as a QR code for the signer app to scan.
package commands
