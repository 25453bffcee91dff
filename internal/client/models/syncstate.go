package models

// SyncState is the persisted watermark pair plus the in-progress marker.
// Timestamps are UTC strings in HTTP date format; an empty string means
// "never synced".
type SyncState struct {
	LastUploadTimestamp   string
	LastDownloadTimestamp string
	IsSyncing             bool
}

// SyncStatePatch carries the fields to overwrite in a shallow merge.
type SyncStatePatch struct {
	LastUploadTimestamp   *string
	LastDownloadTimestamp *string
	IsSyncing             *bool
}
