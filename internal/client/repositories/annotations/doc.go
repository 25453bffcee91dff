// Package annotations persists annotations in the local SQLite database.
//
// Deletion is a tombstone (deleted = 1) so that the remote copy can still be
// removed after the user deletes the local one. Listing and GetByID skip
// tombstones; GetByRemoteID does not, because a download may resurrect a
// record the remote side still has.
//
// remote_id is NULL until the first upload and unique once set.
package annotations
