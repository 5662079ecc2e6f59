package pagediscussion

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"

	coursecontentstore "github.com/dalemusser/coursediscuss/internal/app/store/coursecontent"
	"github.com/dalemusser/coursediscuss/internal/domain/models"
)

// pageTitle is the human name of a page plus, when known, its URL.
type pageTitle struct {
	Text string
	URL  string
}

// titleFor derives the discussion title of a page from the course
// structure. Missing records fall back to "{Kind} id {n}" style titles;
// only infrastructure errors are returned.
func (b *Bootstrapper) titleFor(ctx context.Context, courseID int64, kind models.PageKind, id int64) (pageTitle, error) {
	switch kind {
	case models.PageKindSection:
		return b.sectionTitle(ctx, courseID, id)
	case models.PageKindBook:
		return b.chapterTitle(ctx, id)
	default:
		return b.moduleTitle(ctx, courseID, kind, id)
	}
}

func (b *Bootstrapper) sectionTitle(ctx context.Context, courseID, id int64) (pageTitle, error) {
	sec, err := b.content.Section(ctx, courseID, id)
	if errors.Is(err, coursecontentstore.ErrNotFound) {
		return pageTitle{Text: fallbackTitle(models.PageKindSection, id)}, nil
	}
	if err != nil {
		return pageTitle{}, err
	}

	t := pageTitle{Text: strings.TrimSpace(sec.Name)}
	if t.Text == "" {
		t.Text = "Section " + strconv.Itoa(sec.Section)
	}
	t.URL = b.pageURL("/course/view.php", url.Values{
		"id":        {strconv.FormatInt(courseID, 10)},
		"sectionid": {strconv.FormatInt(id, 10)},
	})
	return t, nil
}

func (b *Bootstrapper) chapterTitle(ctx context.Context, chapterID int64) (pageTitle, error) {
	ch, err := b.content.Chapter(ctx, chapterID)
	if errors.Is(err, coursecontentstore.ErrNotFound) {
		return pageTitle{Text: "Chapter id " + strconv.FormatInt(chapterID, 10)}, nil
	}
	if err != nil {
		return pageTitle{}, err
	}

	book, err := b.content.Book(ctx, ch.BookID)
	if errors.Is(err, coursecontentstore.ErrNotFound) {
		// without a book there is no page URL to link to
		return pageTitle{Text: ch.Title}, nil
	}
	if err != nil {
		return pageTitle{}, err
	}
	return pageTitle{
		Text: book.Name + " - " + ch.Title,
		URL: b.pageURL("/mod/book/view.php", url.Values{
			"b":         {strconv.FormatInt(book.ID, 10)},
			"chapterid": {strconv.FormatInt(chapterID, 10)},
		}),
	}, nil
}

func (b *Bootstrapper) moduleTitle(ctx context.Context, courseID int64, kind models.PageKind, id int64) (pageTitle, error) {
	t := pageTitle{
		URL: b.pageURL("/mod/"+string(kind)+"/view.php", url.Values{
			"id": {strconv.FormatInt(id, 10)},
		}),
	}
	cm, err := b.content.Module(ctx, courseID, id)
	if err != nil && !errors.Is(err, coursecontentstore.ErrNotFound) {
		return pageTitle{}, err
	}
	if err == nil && cm.ModName == string(kind) {
		t.Text = strings.TrimSpace(cm.Name)
	}
	if t.Text == "" {
		t.Text = fallbackTitle(kind, id)
	}
	return t, nil
}

func fallbackTitle(kind models.PageKind, id int64) string {
	return fmt.Sprintf("%s id %d", kind.Label(), id)
}

func (b *Bootstrapper) pageURL(path string, q url.Values) string {
	return strings.TrimRight(b.cfg.LMSBaseURL, "/") + path + "?" + q.Encode()
}

// seedMessage is the body of the first post: the title, linked to the page
// when linking is enabled and a URL is known.
func (b *Bootstrapper) seedMessage(t pageTitle) string {
	ref := html.EscapeString(t.Text)
	if b.cfg.LinkInitialPostToPage && t.URL != "" {
		ref = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(t.URL), ref)
	}
	return "Discuss " + ref + " here."
}
