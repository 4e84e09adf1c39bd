// Package app wires application dependencies for the CLI.
//
// It loads the TOML configuration, applies defaults, and builds the relay
// connection, inbox, workflow engine, session store and signer service,
// exposing them via the Wire struct for commands to use.
package app
