// internal/app/features/discuss/display.go
package discuss

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	forumstore "github.com/dalemusser/coursediscuss/internal/app/store/forums"
	pagebindingstore "github.com/dalemusser/coursediscuss/internal/app/store/pagebindings"
	"github.com/dalemusser/coursediscuss/internal/app/system/authz"
	"github.com/dalemusser/coursediscuss/internal/app/system/forumlocator"
	"github.com/dalemusser/coursediscuss/internal/app/system/htmlsanitize"
	"github.com/dalemusser/coursediscuss/internal/app/system/posttree"
	"github.com/dalemusser/coursediscuss/internal/app/system/timeouts"
	"github.com/dalemusser/coursediscuss/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	buttonCreatePost  = "course-discuss-create-post"
	buttonCreateReply = "course-discuss-create-reply"
)

// pageRef identifies the page a form posts back for.
type pageRef struct {
	Kind           models.PageKind
	PageInternalID int64
}

// discussionMarkup renders the reply tree of d, followed by a top-level
// reply form when allowReply is set and the viewer may post. A discussion
// without posts renders as "".
func (h *Handler) discussionMarkup(ctx context.Context, userID int64, d models.Discussion, forum models.Forum, page pageRef, allowReply bool) (string, int, error) {
	posts, err := h.Forums.FetchPostsForDiscussion(ctx, d.ID, h.Settings.PostSortOrder)
	if err != nil {
		return "", 0, fmt.Errorf("fetch posts: %w", err)
	}
	if len(posts) == 0 {
		return "", 0, nil
	}

	access, err := authz.DiscussionAccess(ctx, h.Forums, userID, forum.ID, d.ID, d.FirstPostID)
	if err != nil {
		return "", 0, fmt.Errorf("discussion access: %w", err)
	}

	authors, err := h.Authors.ByIDs(ctx, authorIDs(posts))
	if err != nil {
		return "", 0, fmt.Errorf("load authors: %w", err)
	}

	nodes := h.Tree.Assemble(posttree.Input{
		Posts:      posts,
		Discussion: d,
		ForumType:  forum.Type,
		CourseID:   d.CourseID,
		ViewerID:   userID,
		EditAny:    access.EditAny,
		Authors:    authors,
		Now:        h.now(),
	})

	data := discussionData{
		CanReply:  access.CanReply,
		ShowReply: allowReply && access.CanReply,
		Reply:     h.replyForm(d.CourseID, forum.ID, page, d.ID, d.FirstPostID),
	}
	posttree.Walk(nodes, func(n *posttree.RenderNode, depth int) {
		data.Rows = append(data.Rows, postRow{
			Node:    n,
			Depth:   depth,
			Message: htmlsanitize.SanitizeToHTML(n.Post.Message),
		})
	})

	html, err := h.render("discussion", data)
	return html, len(data.Rows), err
}

func authorIDs(posts []models.Post) []int64 {
	seen := make(map[int64]bool, len(posts))
	ids := make([]int64, 0, len(posts))
	for _, p := range posts {
		if !seen[p.UserID] {
			seen[p.UserID] = true
			ids = append(ids, p.UserID)
		}
	}
	return ids
}

func (h *Handler) replyForm(courseID, forumID int64, page pageRef, discussionID, parentPostID int64) replyFormData {
	f := replyFormData{
		CourseID:       courseID,
		ForumID:        forumID,
		PageKind:       string(page.Kind),
		PageInternalID: page.PageInternalID,
		DiscussionID:   discussionID,
		ParentPostID:   parentPostID,
		ButtonID:       buttonCreatePost,
	}
	if discussionID > 0 {
		f.ButtonID = buttonCreateReply
		if h.Settings.ShowViewThreadLink {
			f.ShowViewThread = true
			f.ThreadURL = fmt.Sprintf("%s/mod/forum/discuss.php?d=%d", strings.TrimRight(h.Settings.LMSBaseURL, "/"), discussionID)
		}
	}
	return f
}

// optionalPage reads pageKind and pageInternalId when present.
func optionalPage(r *http.Request) (pageRef, error) {
	var p pageRef
	if raw := r.URL.Query().Get("pageKind"); raw != "" {
		kind, err := models.ParsePageKind(raw)
		if err != nil {
			return pageRef{}, validationError{msg: "Invalid pageKind"}
		}
		p.Kind = kind
	}
	id, err := queryID(r, "pageInternalId", false)
	if err != nil {
		return pageRef{}, err
	}
	p.PageInternalID = id
	return p, nil
}

// DisplayDiscussion handles GET /discuss/discussions/{discussionId}.
//
// Query: courseId, forumId (required); allowReply, pageKind,
// pageInternalId (optional).
func (h *Handler) DisplayDiscussion(w http.ResponseWriter, r *http.Request) {
	log := h.requestLogger(w, r)
	userID, ok := viewer(w, r)
	if !ok {
		return
	}

	discussionID, err := parseID(chi.URLParam(r, "discussionId"), "discussionId")
	if err != nil {
		writeValidation(w, err)
		return
	}
	courseID, err := queryID(r, "courseId", true)
	if err != nil {
		writeValidation(w, err)
		return
	}
	forumID, err := queryID(r, "forumId", true)
	if err != nil {
		writeValidation(w, err)
		return
	}
	page, err := optionalPage(r)
	if err != nil {
		writeValidation(w, err)
		return
	}
	allowReply := queryBool(r, "allowReply")
	log = log.With(zap.Int64("course_id", courseID), zap.Int64("forum_id", forumID), zap.Int64("discussion_id", discussionID))

	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	d, err := h.Forums.FetchDiscussion(ctx, discussionID)
	if errors.Is(err, forumstore.ErrNotFound) || (err == nil && (d.ForumID != forumID || d.CourseID != courseID)) {
		writeJSON(w, http.StatusOK, envelope{Status: StatusNotCreated, ErrorMessage: msgDiscussionNotFound})
		return
	}
	if err != nil {
		writeInternal(w, log, "load discussion failed", err)
		return
	}
	forum, err := h.Forums.ForumByID(ctx, forumID)
	if err != nil {
		writeInternal(w, log, "load forum failed", err)
		return
	}

	html, n, err := h.discussionMarkup(ctx, userID, d, forum, page, allowReply)
	if err != nil {
		writeInternal(w, log, "render discussion failed", err)
		return
	}
	log.Debug("discussion returned", zap.Int("posts", n))
	writeJSON(w, http.StatusOK, envelope{Status: StatusReturned, DiscussionID: d.ID, HTML: html})
}

// ReplyForm handles GET /discuss/reply-form.
//
// Query: courseId, forumId (required); pageKind, pageInternalId,
// discussionId, parentPostId (optional). A zero discussionId renders the
// form that starts the page discussion.
func (h *Handler) ReplyForm(w http.ResponseWriter, r *http.Request) {
	log := h.requestLogger(w, r)
	if _, ok := viewer(w, r); !ok {
		return
	}

	courseID, err := queryID(r, "courseId", true)
	if err != nil {
		writeValidation(w, err)
		return
	}
	forumID, err := queryID(r, "forumId", true)
	if err != nil {
		writeValidation(w, err)
		return
	}
	page, err := optionalPage(r)
	if err != nil {
		writeValidation(w, err)
		return
	}
	discussionID, err := queryID(r, "discussionId", false)
	if err != nil {
		writeValidation(w, err)
		return
	}
	parentPostID, err := queryID(r, "parentPostId", false)
	if err != nil {
		writeValidation(w, err)
		return
	}
	log = log.With(zap.Int64("course_id", courseID), zap.Int64("forum_id", forumID), zap.Int64("discussion_id", discussionID))

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	_, inCourse, err := h.forumInCourse(ctx, courseID, forumID)
	if err != nil {
		writeInternal(w, log, "load forum failed", err)
		return
	}
	if !inCourse {
		writeJSON(w, http.StatusOK, envelope{Status: StatusNotCreated, ErrorMessage: msgForumNotInCourse})
		return
	}
	if discussionID > 0 {
		d, err := h.Forums.FetchDiscussion(ctx, discussionID)
		if errors.Is(err, forumstore.ErrNotFound) || (err == nil && d.ForumID != forumID) {
			writeJSON(w, http.StatusOK, envelope{Status: StatusNotCreated, ErrorMessage: msgDiscussionNotFound})
			return
		}
		if err != nil {
			writeInternal(w, log, "load discussion failed", err)
			return
		}
	}

	html, err := h.render("reply_form", h.replyForm(courseID, forumID, page, discussionID, parentPostID))
	if err != nil {
		writeInternal(w, log, "render reply form failed", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Status: StatusReturned, DiscussionID: discussionID, HTML: html})
}

// Page handles GET /discuss/page, the discussion block of a course page.
//
// Query: courseId, pageKind, pageInternalId (all required).
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	log := h.requestLogger(w, r)
	userID, ok := viewer(w, r)
	if !ok {
		return
	}

	courseID, err := queryID(r, "courseId", true)
	if err != nil {
		writeValidation(w, err)
		return
	}
	kind, err := models.ParsePageKind(r.URL.Query().Get("pageKind"))
	if err != nil {
		writeValidation(w, validationError{msg: "Invalid pageKind"})
		return
	}
	pageInternalID, err := queryID(r, "pageInternalId", true)
	if err != nil {
		writeValidation(w, err)
		return
	}
	page := pageRef{Kind: kind, PageInternalID: pageInternalID}
	log = log.With(zap.Int64("course_id", courseID), zap.String("page_kind", string(kind)), zap.Int64("page_internal_id", pageInternalID))

	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	forumID, err := h.Locator.Resolve(ctx, courseID)
	if errors.Is(err, forumlocator.ErrNoForum) {
		env := envelope{Status: StatusReturned}
		if h.Settings.DisplayErrorIfNoForum {
			msg := h.Settings.NoForumMessage
			if strings.TrimSpace(msg) == "" {
				msg = models.DefaultNoForumMessage
			}
			if env.HTML, err = h.render("no_forum", htmlsanitize.SanitizeToHTML(msg)); err != nil {
				writeInternal(w, log, "render notice failed", err)
				return
			}
		}
		writeJSON(w, http.StatusOK, env)
		return
	}
	if err != nil {
		writeInternal(w, log, "resolve forum failed", err)
		return
	}

	env := envelope{Status: StatusReturned, ForumID: forumID}
	var body string

	d, err := h.Pages.Lookup(ctx, courseID, kind, pageInternalID)
	switch {
	case err == nil:
		forum, ferr := h.Forums.ForumByID(ctx, d.ForumID)
		if ferr != nil {
			writeInternal(w, log, "load forum failed", ferr)
			return
		}
		env.ForumID = forum.ID
		env.DiscussionID = d.ID
		body, _, err = h.discussionMarkup(ctx, userID, d, forum, page, true)
		if err != nil {
			writeInternal(w, log, "render discussion failed", err)
			return
		}
	case errors.Is(err, pagebindingstore.ErrNotFound):
		allowed, perr := h.Forums.CanUserPost(ctx, forumID, 0, userID)
		if perr != nil {
			writeInternal(w, log, "posting permission check failed", perr)
			return
		}
		if allowed {
			body, err = h.render("new_discussion", h.replyForm(courseID, forumID, page, 0, 0))
			if err != nil {
				writeInternal(w, log, "render form failed", err)
				return
			}
		}
	default:
		writeInternal(w, log, "lookup page discussion failed", err)
		return
	}

	title := strings.TrimSpace(h.Settings.HeaderTitle)
	if title == "" {
		title = models.DefaultHeaderTitle
	}
	env.HTML, err = h.render("page", pageData{
		Title:   title,
		Tagline: h.Settings.HeaderTagline,
		Body:    trusted(body),
	})
	if err != nil {
		writeInternal(w, log, "render page failed", err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}
