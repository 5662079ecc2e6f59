// internal/app/system/authz/authz.go
package authz

import (
	"context"
	"net/http"

	"github.com/dalemusser/coursediscuss/internal/app/system/auth"
)

// UserCtx returns the viewer's display name, LMS user id, and a found flag.
// If no user is present in context or the id is not positive it returns
// "", 0, false, so ok=true always means a usable user id.
func UserCtx(r *http.Request) (name string, userID int64, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok || user.ID <= 0 {
		return "", 0, false
	}
	return user.Name, user.ID, true
}

// Checker answers the forum's posting and editing capability questions.
type Checker interface {
	CanUserPost(ctx context.Context, forumID, discussionID, userID int64) (bool, error)
	CanUserEdit(ctx context.Context, userID, postID int64) (bool, error)
}

// Access is what a viewer may do in one discussion.
type Access struct {
	CanReply bool
	EditAny  bool
}

// DiscussionAccess resolves the viewer's reply and edit-any capabilities
// for a discussion. rootPostID anchors the edit-any check to the
// discussion's course; a zero id skips it.
func DiscussionAccess(ctx context.Context, c Checker, userID, forumID, discussionID, rootPostID int64) (Access, error) {
	var a Access
	ok, err := c.CanUserPost(ctx, forumID, discussionID, userID)
	if err != nil {
		return Access{}, err
	}
	a.CanReply = ok

	if rootPostID != 0 {
		ok, err = c.CanUserEdit(ctx, userID, rootPostID)
		if err != nil {
			return Access{}, err
		}
		a.EditAny = ok
	}
	return a, nil
}
