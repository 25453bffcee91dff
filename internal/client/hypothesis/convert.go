package hypothesis

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/annosync/internal/client/models"
)

// aiTag marks AI-created highlights remotely so the flag survives a round trip.
const aiTag = "ai-highlight"

const searchAfterLayout = "2006-01-02T15:04:05.000Z07:00"

func account(username, authority string) string {
	return "acct:" + username + "@" + authority
}

func parseRemoteTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// quoteOf returns the exact text of the first TextQuoteSelector, if any.
func quoteOf(selectors json.RawMessage) string {
	if len(selectors) == 0 {
		return ""
	}
	var list []apiSelector
	if err := json.Unmarshal(selectors, &list); err != nil {
		return ""
	}
	for _, sel := range list {
		if sel.Type == "TextQuoteSelector" {
			return sel.Exact
		}
	}
	return ""
}

// toModel converts a search row into the local annotation and its article.
// The annotation's local ID is left empty; the store assigns it on merge.
func toModel(row apiAnnotation) (models.Annotation, models.Article, error) {
	created, err := parseRemoteTime(row.Created)
	if err != nil {
		return models.Annotation{}, models.Article{}, fmt.Errorf("annotation %s: created: %w", row.ID, err)
	}
	updated, err := parseRemoteTime(row.Updated)
	if err != nil {
		return models.Annotation{}, models.Article{}, fmt.Errorf("annotation %s: updated: %w", row.ID, err)
	}

	article := models.Article{
		ID:        models.ArticleIDFromURL(row.URI),
		URL:       row.URI,
		CreatedAt: created.Unix(),
	}
	if row.Document != nil && len(row.Document.Title) > 0 {
		article.Title = row.Document.Title[0]
	}

	a := models.Annotation{
		RemoteID:  row.ID,
		ArticleID: article.ID,
		Text:      row.Text,
		Tags:      []string{},
		CreatedAt: created.Unix(),
		UpdatedAt: updated.Unix(),
	}
	for _, tag := range row.Tags {
		if tag == aiTag {
			a.AICreated = true
			continue
		}
		a.Tags = append(a.Tags, tag)
	}
	if len(row.Target) > 0 {
		a.QuoteSelector = row.Target[0].Selector
		a.QuoteText = quoteOf(row.Target[0].Selector)
	}

	return a, article, nil
}

// fromModel builds the create/update payload. Annotations are private to
// the account that owns them.
func fromModel(a models.Annotation, article models.Article, acct string) (apiAnnotation, error) {
	selector := a.QuoteSelector
	if len(selector) == 0 && a.QuoteText != "" {
		b, err := json.Marshal([]apiSelector{{Type: "TextQuoteSelector", Exact: a.QuoteText}})
		if err != nil {
			return apiAnnotation{}, err
		}
		selector = b
	}

	tags := slices.Clone(a.Tags)
	if tags == nil {
		tags = []string{}
	}
	if a.AICreated && !slices.Contains(tags, aiTag) {
		tags = append(tags, aiTag)
	}

	payload := apiAnnotation{
		URI:         article.URL,
		Text:        a.Text,
		Tags:        tags,
		Group:       "__world__",
		Target:      []apiTarget{{Source: article.URL, Selector: selector}},
		Permissions: &apiPermission{Read: []string{acct}},
	}
	if article.Title != "" {
		payload.Document = &apiDocument{Title: []string{article.Title}}
	}
	return payload, nil
}
