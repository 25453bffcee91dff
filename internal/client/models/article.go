package models

import "github.com/google/uuid"

// Article is the page an annotation belongs to. The remote service anchors
// annotations by URL, so URL and Title travel with every upload.
type Article struct {
	ID        string
	URL       string
	Title     string
	CreatedAt int64
}

// ArticleIDFromURL derives a deterministic article id from its URL.
func ArticleIDFromURL(url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String()
}
