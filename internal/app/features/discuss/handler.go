// internal/app/features/discuss/handler.go
package discuss

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	forumstore "github.com/dalemusser/coursediscuss/internal/app/store/forums"
	"github.com/dalemusser/coursediscuss/internal/app/system/authz"
	"github.com/dalemusser/coursediscuss/internal/app/system/pagediscussion"
	"github.com/dalemusser/coursediscuss/internal/app/system/posttree"
	"github.com/dalemusser/coursediscuss/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Status tokens returned in every envelope.
const (
	StatusCreated    = "created"
	StatusNotCreated = "not-created"
	StatusReturned   = "returned"
)

// Messages shown to the user.
const (
	msgAddMessage         = "Please add a message"
	msgNotPermitted       = "Sorry, you are not permitted to post in this discussion."
	msgInvalidParent      = "Failed to add post. Invalid parent post id."
	msgInvalidDiscussion  = "Failed to add post. Invalid discussion id."
	msgForumNotInCourse   = "Forum not found in this course."
	msgDiscussionNotFound = "Error displaying discussion"
	msgPostNotAdded       = "Your post could not be added"
	msgInternal           = "Warning, possible internal error"
	msgFirstPostNotAdded  = "Discussion created but possible internal error."
	msgTooManyPosts       = "You are posting too quickly. Please wait a minute and try again."
)

// Locator resolves the forum that holds a course's page discussions.
type Locator interface {
	Resolve(ctx context.Context, courseID int64) (int64, error)
}

// Pages finds and creates page discussions.
type Pages interface {
	Lookup(ctx context.Context, courseID int64, kind models.PageKind, pageInternalID int64) (models.Discussion, error)
	Ensure(ctx context.Context, in pagediscussion.EnsureInput) (pagediscussion.EnsureResult, error)
}

// Forums is the forum collaborator as the request layer uses it.
type Forums interface {
	authz.Checker
	ForumByID(ctx context.Context, forumID int64) (models.Forum, error)
	FetchDiscussion(ctx context.Context, discussionID int64) (models.Discussion, error)
	FetchPostsForDiscussion(ctx context.Context, discussionID int64, sortOrder string) ([]models.Post, error)
	CreatePost(ctx context.Context, in forumstore.NewPost) (int64, error)
}

// Authors loads display data for post authors.
type Authors interface {
	ByIDs(ctx context.Context, ids []int64) (map[int64]models.User, error)
}

// Throttle caps how often one user may write.
type Throttle interface {
	Allow(userID int64) bool
}

// Handler serves the page discussion endpoints.
type Handler struct {
	Locator  Locator
	Pages    Pages
	Forums   Forums
	Authors  Authors
	Tree     *posttree.Assembler
	Settings models.DiscussSettings
	Views    Views
	Log      *zap.Logger

	// Throttle is optional; nil disables write limits.
	Throttle Throttle

	now func() time.Time
}

// NewHandler constructs a discuss Handler.
// views must be a booted engine holding the discuss and shared sets.
func NewHandler(locator Locator, pages Pages, forums Forums, authors Authors, views Views, settings models.DiscussSettings, logger *zap.Logger) *Handler {
	return &Handler{
		Locator: locator,
		Pages:   pages,
		Forums:  forums,
		Authors: authors,
		Tree: posttree.New(posttree.Config{
			AllowEdit:   settings.AllowEdit,
			MaxEditTime: settings.MaxEditTime,
			LMSBaseURL:  settings.LMSBaseURL,
		}),
		Settings: settings,
		Views:    views,
		Log:      logger,
		now:      time.Now,
	}
}

// envelope is the uniform JSON response of every endpoint.
type envelope struct {
	Status       string `json:"status"`
	DiscussionID int64  `json:"discussionId,omitempty"`
	PostID       int64  `json:"postId,omitempty"`
	ForumID      int64  `json:"forumId,omitempty"`
	Subject      string `json:"subject,omitempty"`
	HTML         string `json:"html,omitempty"`
	Warning      string `json:"warning"`
	ErrorMessage string `json:"errorMessage"`
}

// validationError is a request the handler refuses before touching any
// collaborator.
type validationError struct {
	msg string
}

func (e validationError) Error() string { return e.msg }

// requestLogger tags the handler's logger with a fresh request id and echoes
// the id back to the caller.
func (h *Handler) requestLogger(w http.ResponseWriter, r *http.Request) *zap.Logger {
	id := uuid.NewString()
	w.Header().Set("X-Request-ID", id)
	return h.Log.With(zap.String("request_id", id), zap.String("path", r.URL.Path))
}

func writeJSON(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// throttled answers 429 and reports true when userID is over its write limit.
func (h *Handler) throttled(w http.ResponseWriter, log *zap.Logger, userID int64) bool {
	if h.Throttle == nil || h.Throttle.Allow(userID) {
		return false
	}
	log.Info("write rate limited", zap.Int64("user_id", userID))
	writeJSON(w, http.StatusTooManyRequests, envelope{Status: StatusNotCreated, ErrorMessage: msgTooManyPosts})
	return true
}

// writeValidation answers a validationError with 400 and not-created.
func writeValidation(w http.ResponseWriter, err error) {
	var ve validationError
	msg := err.Error()
	if errors.As(err, &ve) {
		msg = ve.msg
	}
	writeJSON(w, http.StatusBadRequest, envelope{Status: StatusNotCreated, ErrorMessage: msg})
}

// writeInternal logs err and answers 500 with a generic message.
func writeInternal(w http.ResponseWriter, log *zap.Logger, what string, err error) {
	log.Error(what, zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, envelope{Status: StatusNotCreated, ErrorMessage: msgInternal})
}

// viewer returns the signed-in user's id. Routes are mounted behind
// RequireSignedIn, so a missing user is answered with 401.
func viewer(w http.ResponseWriter, r *http.Request) (int64, bool) {
	_, userID, ok := authz.UserCtx(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, envelope{Status: StatusNotCreated, ErrorMessage: "Please sign in to continue."})
		return 0, false
	}
	return userID, true
}

// queryID reads a positive integer query parameter. Missing parameters are
// an error only when required.
func queryID(r *http.Request, name string, required bool) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		if required {
			return 0, validationError{msg: "Missing " + name}
		}
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 || (required && id == 0) {
		return 0, validationError{msg: "Invalid " + name}
	}
	return id, nil
}

// parseID reads a positive id from a path segment.
func parseID(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, validationError{msg: "Invalid " + name}
	}
	return id, nil
}

// queryBool treats "", "0" and "false" as false and anything else as true.
func queryBool(r *http.Request, name string) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get(name))) {
	case "", "0", "false":
		return false
	}
	return true
}

func requirePositive(name string, v int64) error {
	if v <= 0 {
		return validationError{msg: "Invalid " + name}
	}
	return nil
}

// forumInCourse loads a forum and checks it belongs to the course. ok is
// false when the forum is missing or elsewhere.
func (h *Handler) forumInCourse(ctx context.Context, courseID, forumID int64) (models.Forum, bool, error) {
	f, err := h.Forums.ForumByID(ctx, forumID)
	if errors.Is(err, forumstore.ErrNotFound) {
		return models.Forum{}, false, nil
	}
	if err != nil {
		return models.Forum{}, false, err
	}
	return f, f.CourseID == courseID, nil
}
