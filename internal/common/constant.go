package common

import "time"

const (
	// AnnotationsPrefix is the change-notification key prefix for annotations.
	AnnotationsPrefix = "annotations/"

	// RemotePageSize is the number of annotations requested per remote fetch.
	RemotePageSize = 10000

	// UploadDebounceInterval is the quiescence window for live-triggered uploads.
	UploadDebounceInterval = 10 * time.Second
)

// Metadata keys.
const (
	MetadataKeySyncEnabled  = "feature.hypothesis_sync"
	MetadataKeyUsername     = "hypothesis.username"
	MetadataKeyToken        = "hypothesis.token"
	MetadataKeyTokenSalt    = "hypothesis.token_salt"
	MetadataKeyLastUpload   = "sync.last_upload_timestamp"
	MetadataKeyLastDownload = "sync.last_download_timestamp"
	MetadataKeyIsSyncing    = "sync.is_syncing"
)
