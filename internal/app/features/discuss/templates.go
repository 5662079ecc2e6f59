// internal/app/features/discuss/templates.go
package discuss

import (
	"bytes"
	"embed"
	"html/template"

	"github.com/dalemusser/coursediscuss/internal/app/system/posttree"
	"github.com/dalemusser/waffle/pantry/templates"

	// post_author lives in the shared set.
	_ "github.com/dalemusser/coursediscuss/internal/app/features/shared/views"
)

//go:embed templates/*.gohtml
var FS embed.FS

func init() {
	templates.Register(templates.Set{
		Name:     "discuss",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}

// Views renders named snippets; *templates.Engine satisfies it.
type Views interface {
	RenderSnippet(w templates.Writer, name string, data any) error
}

// render executes a named snippet into a string for the JSON envelope.
func (h *Handler) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := h.Views.RenderSnippet(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// trusted marks markup produced by render for embedding in another view.
func trusted(s string) template.HTML {
	return template.HTML(s)
}

type postRow struct {
	Node  *posttree.RenderNode
	Depth int
	// Message is the sanitized post body.
	Message template.HTML
}

type discussionData struct {
	Rows      []postRow
	CanReply  bool
	ShowReply bool
	Reply     replyFormData
}

type replyFormData struct {
	CourseID       int64
	ForumID        int64
	PageKind       string
	PageInternalID int64
	DiscussionID   int64
	ParentPostID   int64
	ButtonID       string
	ShowViewThread bool
	ThreadURL      string
}

type pageData struct {
	Title   string
	Tagline string
	Body    template.HTML
}
