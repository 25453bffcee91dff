// Package cli provides the interactive annosync command-line client.
//
// It wires configuration, the local annotation store, the hypothes.is client,
// the account service and the sync engine behind a small REPL. On start the
// app runs one sync pass and keeps the engine watching local changes for the
// rest of the session; the engine is disposed on exit.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
