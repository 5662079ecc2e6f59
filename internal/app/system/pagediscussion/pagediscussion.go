// Package pagediscussion makes sure a course page has a live discussion,
// creating and binding one on first use.
package pagediscussion

import (
	"context"
	"errors"
	"fmt"

	forumstore "github.com/dalemusser/coursediscuss/internal/app/store/forums"
	pagebindingstore "github.com/dalemusser/coursediscuss/internal/app/store/pagebindings"
	"github.com/dalemusser/coursediscuss/internal/domain/models"
	"go.uber.org/zap"
)

// Bindings is the page binding store.
type Bindings interface {
	GetDiscussionID(ctx context.Context, courseID int64, kind models.PageKind, pageInternalID int64) (int64, error)
	BindIfAbsent(ctx context.Context, courseID, pageInternalID int64, kind models.PageKind, forumID, discussionID int64, isStale func(int64) bool) (pagebindingstore.BindOutcome, error)
}

// Forums is the part of the forum collaborator the bootstrapper needs.
type Forums interface {
	FetchDiscussion(ctx context.Context, discussionID int64) (models.Discussion, error)
	CreateDiscussion(ctx context.Context, in forumstore.NewDiscussion) (int64, error)
}

// Content looks up the course records page titles come from.
type Content interface {
	Section(ctx context.Context, courseID, sectionID int64) (models.CourseSection, error)
	Module(ctx context.Context, courseID, moduleID int64) (models.CourseModule, error)
	Chapter(ctx context.Context, chapterID int64) (models.BookChapter, error)
	Book(ctx context.Context, bookID int64) (models.Book, error)
}

// Users checks that a configured seed author exists.
type Users interface {
	Exists(ctx context.Context, userID int64) (bool, error)
}

// Config holds the settings that shape new discussions.
type Config struct {
	LinkInitialPostToPage bool
	PostingUserID         int64
	LMSBaseURL            string
}

// Bootstrapper creates page discussions on demand.
type Bootstrapper struct {
	bindings Bindings
	forums   Forums
	content  Content
	users    Users
	cfg      Config
	log      *zap.Logger
}

// New creates a Bootstrapper.
func New(bindings Bindings, forums Forums, content Content, users Users, cfg Config, logger *zap.Logger) *Bootstrapper {
	return &Bootstrapper{
		bindings: bindings,
		forums:   forums,
		content:  content,
		users:    users,
		cfg:      cfg,
		log:      logger,
	}
}

// EnsureInput identifies the page and the requesting user.
type EnsureInput struct {
	CourseID       int64
	ForumID        int64
	Kind           models.PageKind
	PageInternalID int64
	UserID         int64
}

// EnsureResult describes the discussion bound to the page.
type EnsureResult struct {
	DiscussionID int64
	Subject      string
	// Created is true when this call started the discussion.
	Created bool
	// Warning is non-empty when the discussion exists but something
	// advisory went wrong (binding not saved, concurrent duplicate).
	Warning string
}

// CreateError reports that the forum refused to create the discussion.
type CreateError struct {
	Subject string
	Err     error
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("create discussion %q: %v", e.Subject, e.Err)
}

func (e *CreateError) Unwrap() error { return e.Err }

// Lookup returns the live discussion bound to a page. It reports
// pagebindingstore.ErrNotFound both for pages never bound and for pages
// whose discussion was deleted.
func (b *Bootstrapper) Lookup(ctx context.Context, courseID int64, kind models.PageKind, pageInternalID int64) (models.Discussion, error) {
	id, err := b.bindings.GetDiscussionID(ctx, courseID, kind, pageInternalID)
	if err != nil {
		return models.Discussion{}, err
	}
	d, err := b.forums.FetchDiscussion(ctx, id)
	if errors.Is(err, forumstore.ErrNotFound) {
		return models.Discussion{}, pagebindingstore.ErrNotFound
	}
	return d, err
}

// Ensure returns the page's live discussion, creating and binding one when
// the page has none or its bound discussion was deleted.
func (b *Bootstrapper) Ensure(ctx context.Context, in EnsureInput) (EnsureResult, error) {
	d, err := b.Lookup(ctx, in.CourseID, in.Kind, in.PageInternalID)
	if err == nil {
		return EnsureResult{DiscussionID: d.ID, Subject: d.Name}, nil
	}
	if !errors.Is(err, pagebindingstore.ErrNotFound) {
		return EnsureResult{}, err
	}

	title, err := b.titleFor(ctx, in.CourseID, in.Kind, in.PageInternalID)
	if err != nil {
		return EnsureResult{}, fmt.Errorf("derive title: %w", err)
	}
	subject := "Discuss " + title.Text

	author, err := b.seedAuthor(ctx, in.UserID)
	if err != nil {
		return EnsureResult{}, err
	}

	discussionID, err := b.forums.CreateDiscussion(ctx, forumstore.NewDiscussion{
		ForumID: in.ForumID,
		Subject: subject,
		Message: b.seedMessage(title),
		UserID:  author,
		ActorID: in.UserID,
	})
	if err != nil {
		return EnsureResult{}, &CreateError{Subject: subject, Err: err}
	}

	logFields := []zap.Field{
		zap.Int64("course_id", in.CourseID),
		zap.String("page_kind", string(in.Kind)),
		zap.Int64("page_internal_id", in.PageInternalID),
		zap.Int64("discussion_id", discussionID),
	}

	out, err := b.bindings.BindIfAbsent(ctx, in.CourseID, in.PageInternalID, in.Kind, in.ForumID, discussionID, func(current int64) bool {
		_, ferr := b.forums.FetchDiscussion(ctx, current)
		return errors.Is(ferr, forumstore.ErrNotFound)
	})
	if err != nil {
		b.log.Warn("page binding not saved", append(logFields, zap.Error(err))...)
		return EnsureResult{
			DiscussionID: discussionID,
			Subject:      subject,
			Created:      true,
			Warning:      fmt.Sprintf("Warning, link not created for discussion id %d", discussionID),
		}, nil
	}

	if out.Adopted {
		b.log.Warn("page was bound concurrently; new discussion left unbound",
			append(logFields, zap.Int64("bound_discussion_id", out.DiscussionID))...)
		res := EnsureResult{
			DiscussionID: out.DiscussionID,
			Subject:      subject,
			Warning:      fmt.Sprintf("Warning, discussion id %d duplicates discussion id %d for this page", discussionID, out.DiscussionID),
		}
		if winner, ferr := b.forums.FetchDiscussion(ctx, out.DiscussionID); ferr == nil {
			res.Subject = winner.Name
		}
		return res, nil
	}

	b.log.Info("page discussion created", append(logFields, zap.Bool("replaced_stale", out.Replaced))...)
	return EnsureResult{DiscussionID: discussionID, Subject: subject, Created: true}, nil
}

// seedAuthor returns the configured posting user when it exists, else the
// requesting user.
func (b *Bootstrapper) seedAuthor(ctx context.Context, requester int64) (int64, error) {
	if b.cfg.PostingUserID <= 0 {
		return requester, nil
	}
	ok, err := b.users.Exists(ctx, b.cfg.PostingUserID)
	if err != nil {
		return 0, fmt.Errorf("check posting user: %w", err)
	}
	if !ok {
		b.log.Warn("configured posting user does not exist; using requester",
			zap.Int64("posting_user_id", b.cfg.PostingUserID))
		return requester, nil
	}
	return b.cfg.PostingUserID, nil
}
