package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/annosync/internal/client/models"
	"github.com/dmitrijs2005/annosync/internal/common"
)

var (
	getMultiline = GetMultiline
	getTags      = GetTags
)

func (a *App) Articles(ctx context.Context, _ []string) error {
	list, err := a.store.ListArticles(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No articles yet, use 'addarticle'")
		return nil
	}
	for _, art := range list {
		fmt.Fprintln(a.out, formatArticle(art))
	}
	return nil
}

func (a *App) AddArticle(ctx context.Context, args []string) error {
	url, err := a.argOrPrompt(args, "Enter article URL")
	if err != nil {
		return err
	}
	if url == "" {
		return errors.New("URL is required")
	}

	title, err := getSimpleText(a.reader, "Enter title", a.out)
	if err != nil {
		return err
	}

	art, err := a.store.AddArticle(ctx, url, title)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Article %s\n", art.ID)
	return nil
}

// Add creates an annotation on an article: quoted passage, comment and tags.
func (a *App) Add(ctx context.Context, args []string) error {
	articleID, err := a.argOrPrompt(args, "Enter article id")
	if err != nil {
		return err
	}

	quote, err := getSimpleText(a.reader, "Enter quoted text", a.out)
	if err != nil {
		return err
	}
	text, err := getMultiline(a.reader, "Enter comment", a.out)
	if err != nil {
		return err
	}
	tags, err := getTags(a.reader, a.out)
	if err != nil {
		return err
	}

	created, err := a.store.AddAnnotation(ctx, models.Annotation{
		ArticleID: articleID,
		QuoteText: quote,
		Text:      text,
		Tags:      tags,
	})
	if errors.Is(err, common.ErrMissingArticle) {
		return fmt.Errorf("no article with id %q", articleID)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Annotation %s\n", created.ID)
	return nil
}

// List prints all annotations, or those of one article when an id is given.
func (a *App) List(ctx context.Context, args []string) error {
	var (
		list []models.Annotation
		err  error
	)
	if len(args) > 0 {
		list, err = a.store.ListArticleAnnotations(ctx, args[0])
	} else {
		list, err = a.store.ListAnnotations(ctx)
	}
	if err != nil {
		return err
	}

	if len(list) == 0 {
		fmt.Fprintln(a.out, "No annotations")
		return nil
	}
	for _, an := range list {
		fmt.Fprintln(a.out, formatAnnotation(an))
	}
	return nil
}

// Edit replaces the comment and tags. Empty answers keep the current values.
func (a *App) Edit(ctx context.Context, args []string) error {
	id, err := a.argOrPrompt(args, "Enter annotation id")
	if err != nil {
		return err
	}

	current, err := a.store.GetAnnotation(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("no annotation with id %q", id)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, formatAnnotation(*current))

	text, err := getMultiline(a.reader, "Enter new comment (empty keeps it)", a.out)
	if err != nil {
		return err
	}
	if text == "" {
		text = current.Text
	}

	tags, err := getTags(a.reader, a.out)
	if err != nil {
		return err
	}
	if len(tags) == 0 {
		tags = current.Tags
	}

	if _, err := a.store.EditAnnotation(ctx, id, text, tags); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Saved")
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	id, err := a.argOrPrompt(args, "Enter annotation id to delete")
	if err != nil {
		return err
	}

	err = a.store.DeleteAnnotation(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("no annotation with id %q", id)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted")
	return nil
}

func (a *App) argOrPrompt(args []string, prompt string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return getSimpleText(a.reader, prompt, a.out)
}

func formatArticle(art models.Article) string {
	title := art.Title
	if title == "" {
		title = "(untitled)"
	}
	return fmt.Sprintf("%s  %s  %s", art.ID, title, art.URL)
}

func formatAnnotation(an models.Annotation) string {
	var b strings.Builder

	b.WriteString(an.ID)
	if an.HasRemote() {
		b.WriteString(" [synced]")
	}
	if an.AICreated {
		b.WriteString(" [ai]")
	}
	if an.QuoteText != "" {
		fmt.Fprintf(&b, "\n  > %s", an.QuoteText)
	}
	if an.Text != "" {
		fmt.Fprintf(&b, "\n  %s", strings.ReplaceAll(an.Text, "\n", "\n  "))
	}
	if len(an.Tags) > 0 {
		fmt.Fprintf(&b, "\n  tags: %s", strings.Join(an.Tags, ", "))
	}
	return b.String()
}
