package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Annotation is a highlight or comment attached to an article.
type Annotation struct {
	// ID is stable and generated locally (or derived from RemoteID for
	// annotations that were first seen on the remote service).
	ID string

	// RemoteID is the hypothes.is id. Empty until the first successful upload.
	RemoteID string

	ArticleID string

	QuoteText string
	Text      string
	Tags      []string

	// QuoteSelector holds the raw remote target selectors, kept verbatim so a
	// round trip through the local store does not lose anchoring data.
	QuoteSelector json.RawMessage

	// CreatedAt and UpdatedAt are unix seconds. UpdatedAt moves on every user
	// edit and is left alone when a remote id is attached.
	CreatedAt int64
	UpdatedAt int64

	AICreated bool

	// Deleted marks a tombstone.
	Deleted bool
}

// IsNoise reports whether the annotation is an AI highlight nobody has
// commented on yet. Such annotations are never uploaded.
func (a Annotation) IsNoise() bool {
	return a.AICreated && a.Text == ""
}

// HasRemote reports whether the annotation was already created remotely.
func (a Annotation) HasRemote() bool {
	return a.RemoteID != ""
}

// AnnotationPatch is a partial update applied by the sync engine.
// Nil fields are left untouched.
type AnnotationPatch struct {
	ID       string
	RemoteID *string
}

// NewAnnotationID returns a random id for a locally created annotation.
func NewAnnotationID() string {
	return uuid.NewString()
}

// RemoteAnnotationID derives the local id of an annotation downloaded from
// the remote service, so importing it twice yields the same record.
func RemoteAnnotationID(remoteID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://hypothes.is/a/"+remoteID)).String()
}
