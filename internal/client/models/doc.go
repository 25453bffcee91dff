// Package models defines the records shared by the local store, the remote
// client and the sync engine.
package models
