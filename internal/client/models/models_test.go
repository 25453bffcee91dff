package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAnnotation_IsNoise(t *testing.T) {
	tests := []struct {
		name string
		a    Annotation
		want bool
	}{
		{name: "ai without text", a: Annotation{AICreated: true}, want: true},
		{name: "ai with text", a: Annotation{AICreated: true, Text: "worth keeping"}, want: false},
		{name: "user without text", a: Annotation{}, want: false},
		{name: "user with text", a: Annotation{Text: "note"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.IsNoise())
		})
	}
}

func TestRemoteAnnotationID_Deterministic(t *testing.T) {
	a := RemoteAnnotationID("Ab12Cd")
	b := RemoteAnnotationID("Ab12Cd")
	c := RemoteAnnotationID("Zz99")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	parsed, err := uuid.Parse(a)
	assert.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())
}

func TestArticleIDFromURL_Deterministic(t *testing.T) {
	assert.Equal(t,
		ArticleIDFromURL("https://example.com/post"),
		ArticleIDFromURL("https://example.com/post"))
	assert.NotEqual(t,
		ArticleIDFromURL("https://example.com/post"),
		ArticleIDFromURL("https://example.com/other"))
}

func TestNewAnnotationID_Unique(t *testing.T) {
	assert.NotEqual(t, NewAnnotationID(), NewAnnotationID())
}

func TestCredentials_Valid(t *testing.T) {
	assert.True(t, Credentials{Username: "alice", APIToken: "tok"}.Valid())
	assert.False(t, Credentials{Username: "alice"}.Valid())
	assert.False(t, Credentials{APIToken: "tok"}.Valid())
}

func TestChangeSet_Empty(t *testing.T) {
	assert.True(t, ChangeSet{}.Empty())
	assert.False(t, ChangeSet{Removed: []Annotation{{ID: "a"}}}.Empty())
}
