// internal/app/features/discuss/create.go
package discuss

import (
	"encoding/json"
	"errors"
	"net/http"

	forumstore "github.com/dalemusser/coursediscuss/internal/app/store/forums"
	"github.com/dalemusser/coursediscuss/internal/app/system/htmlsanitize"
	"github.com/dalemusser/coursediscuss/internal/app/system/pagediscussion"
	"github.com/dalemusser/coursediscuss/internal/app/system/timeouts"
	"github.com/dalemusser/coursediscuss/internal/domain/models"
	"go.uber.org/zap"
)

type createDiscussionRequest struct {
	CourseID       int64  `json:"courseId"`
	ForumID        int64  `json:"forumId"`
	ContextID      int64  `json:"contextId"`
	Message        string `json:"message"`
	PageInternalID int64  `json:"pageInternalId"`
	PageKind       string `json:"pageKind"`
}

func (req *createDiscussionRequest) validate() (models.PageKind, string, error) {
	if err := requirePositive("courseId", req.CourseID); err != nil {
		return "", "", err
	}
	if err := requirePositive("forumId", req.ForumID); err != nil {
		return "", "", err
	}
	if err := requirePositive("pageInternalId", req.PageInternalID); err != nil {
		return "", "", err
	}
	kind, err := models.ParsePageKind(req.PageKind)
	if err != nil {
		return "", "", validationError{msg: "Invalid pageKind"}
	}
	msg := htmlsanitize.PrepareMessage(req.Message)
	if msg == "" {
		return "", "", validationError{msg: msgAddMessage}
	}
	return kind, msg, nil
}

// CreateDiscussion handles POST /discuss/discussions.
//
// Makes sure the page has a discussion and adds the message as the first
// reply under its seed post. When the page already has a live discussion the
// message is added to it and status is still "created".
func (h *Handler) CreateDiscussion(w http.ResponseWriter, r *http.Request) {
	log := h.requestLogger(w, r)
	userID, ok := viewer(w, r)
	if !ok {
		return
	}

	var req createDiscussionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidation(w, validationError{msg: "Invalid request body"})
		return
	}
	kind, message, err := req.validate()
	if err != nil {
		writeValidation(w, err)
		return
	}
	log = log.With(
		zap.Int64("course_id", req.CourseID),
		zap.Int64("forum_id", req.ForumID),
		zap.String("page_kind", string(kind)),
		zap.Int64("page_internal_id", req.PageInternalID),
		zap.Int64("context_id", req.ContextID),
	)
	if h.throttled(w, log, userID) {
		return
	}

	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	_, inCourse, err := h.forumInCourse(ctx, req.CourseID, req.ForumID)
	if err != nil {
		writeInternal(w, log, "load forum failed", err)
		return
	}
	if !inCourse {
		writeJSON(w, http.StatusOK, envelope{Status: StatusNotCreated, ErrorMessage: msgForumNotInCourse})
		return
	}

	res, err := h.Pages.Ensure(ctx, pagediscussion.EnsureInput{
		CourseID:       req.CourseID,
		ForumID:        req.ForumID,
		Kind:           kind,
		PageInternalID: req.PageInternalID,
		UserID:         userID,
	})
	var ce *pagediscussion.CreateError
	switch {
	case errors.As(err, &ce):
		env := envelope{Status: StatusNotCreated, Subject: ce.Subject}
		switch {
		case errors.Is(err, forumstore.ErrPermissionDenied):
			env.ErrorMessage = msgNotPermitted
		case errors.Is(err, forumstore.ErrNotFound):
			env.ErrorMessage = msgForumNotInCourse
		default:
			log.Error("create discussion failed", zap.Error(err))
			env.ErrorMessage = msgPostNotAdded
		}
		writeJSON(w, http.StatusOK, env)
		return
	case err != nil:
		writeInternal(w, log, "ensure page discussion failed", err)
		return
	}

	// An adopted discussion was never checked against this viewer.
	allowed, err := h.Forums.CanUserPost(ctx, req.ForumID, res.DiscussionID, userID)
	if err != nil {
		writeInternal(w, log, "posting permission check failed", err)
		return
	}
	if !allowed {
		log.Info("first reply refused", zap.Int64("discussion_id", res.DiscussionID))
		writeJSON(w, http.StatusOK, envelope{
			Status:       StatusNotCreated,
			DiscussionID: res.DiscussionID,
			Subject:      res.Subject,
			ErrorMessage: msgNotPermitted,
		})
		return
	}

	env := envelope{
		Status:       StatusCreated,
		DiscussionID: res.DiscussionID,
		Subject:      res.Subject,
		Warning:      res.Warning,
	}

	postID, err := h.Forums.CreatePost(ctx, forumstore.NewPost{
		DiscussionID: res.DiscussionID,
		Message:      message,
		UserID:       userID,
	})
	if err != nil && postID == 0 {
		log.Warn("first reply not added", zap.Int64("discussion_id", res.DiscussionID), zap.Error(err))
		env.Warning = joinWarnings(env.Warning, msgFirstPostNotAdded)
	} else if err != nil {
		log.Warn("first reply added with error", zap.Int64("post_id", postID), zap.Error(err))
	}
	env.PostID = postID

	log.Info("page discussion ready",
		zap.Int64("discussion_id", res.DiscussionID),
		zap.Bool("created", res.Created),
		zap.Int64("post_id", postID))
	writeJSON(w, http.StatusOK, env)
}

type createPostRequest struct {
	CourseID     int64  `json:"courseId"`
	ForumID      int64  `json:"forumId"`
	ContextID    int64  `json:"contextId"`
	Message      string `json:"message"`
	DiscussionID int64  `json:"discussionId"`
	Subject      string `json:"subject"`
	ParentPostID int64  `json:"parentPostId"`
}

func (req *createPostRequest) validate() (string, error) {
	if err := requirePositive("courseId", req.CourseID); err != nil {
		return "", err
	}
	if err := requirePositive("forumId", req.ForumID); err != nil {
		return "", err
	}
	if err := requirePositive("discussionId", req.DiscussionID); err != nil {
		return "", err
	}
	if req.ParentPostID < 0 {
		return "", validationError{msg: "Invalid parentPostId"}
	}
	msg := htmlsanitize.PrepareMessage(req.Message)
	if msg == "" {
		return "", validationError{msg: msgAddMessage}
	}
	return msg, nil
}

// CreatePost handles POST /discuss/posts.
//
// A zero parentPostId replies to the discussion's seed post.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	log := h.requestLogger(w, r)
	userID, ok := viewer(w, r)
	if !ok {
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidation(w, validationError{msg: "Invalid request body"})
		return
	}
	message, err := req.validate()
	if err != nil {
		writeValidation(w, err)
		return
	}
	log = log.With(
		zap.Int64("course_id", req.CourseID),
		zap.Int64("forum_id", req.ForumID),
		zap.Int64("discussion_id", req.DiscussionID),
		zap.Int64("parent_post_id", req.ParentPostID),
	)
	if h.throttled(w, log, userID) {
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	d, err := h.Forums.FetchDiscussion(ctx, req.DiscussionID)
	if errors.Is(err, forumstore.ErrNotFound) || (err == nil && (d.ForumID != req.ForumID || d.CourseID != req.CourseID)) {
		writeJSON(w, http.StatusOK, envelope{Status: StatusNotCreated, ErrorMessage: msgInvalidDiscussion})
		return
	}
	if err != nil {
		writeInternal(w, log, "load discussion failed", err)
		return
	}

	allowed, err := h.Forums.CanUserPost(ctx, req.ForumID, req.DiscussionID, userID)
	if err != nil {
		writeInternal(w, log, "posting permission check failed", err)
		return
	}
	if !allowed {
		writeJSON(w, http.StatusOK, envelope{Status: StatusNotCreated, ErrorMessage: msgNotPermitted})
		return
	}

	postID, err := h.Forums.CreatePost(ctx, forumstore.NewPost{
		DiscussionID: req.DiscussionID,
		ParentID:     req.ParentPostID,
		Subject:      req.Subject,
		Message:      message,
		UserID:       userID,
	})
	switch {
	case errors.Is(err, forumstore.ErrInvalidParent):
		writeJSON(w, http.StatusOK, envelope{Status: StatusNotCreated, ErrorMessage: msgInvalidParent})
		return
	case errors.Is(err, forumstore.ErrPermissionDenied):
		writeJSON(w, http.StatusOK, envelope{Status: StatusNotCreated, ErrorMessage: msgNotPermitted})
		return
	case err != nil && postID == 0:
		writeInternal(w, log, "create post failed", err)
		return
	case err != nil:
		log.Warn("post added with error", zap.Int64("post_id", postID), zap.Error(err))
	}

	log.Info("post created", zap.Int64("post_id", postID))
	writeJSON(w, http.StatusOK, envelope{Status: StatusCreated, PostID: postID, DiscussionID: req.DiscussionID})
}

func joinWarnings(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}
