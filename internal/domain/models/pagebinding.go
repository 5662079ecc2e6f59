// internal/domain/models/pagebinding.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PageBinding maps one course page to the discussion that holds its comments.
//
// The key (course_id, page_kind, page_internal_id) is unique. When the
// referenced discussion is deleted elsewhere the row becomes stale; it is
// kept and overwritten by the next successful discussion creation.
type PageBinding struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CourseID       int64              `bson:"course_id" json:"course_id"`
	PageKind       PageKind           `bson:"page_kind" json:"page_kind"`
	PageInternalID int64              `bson:"page_internal_id" json:"page_internal_id"`
	ForumID        int64              `bson:"forum_id" json:"forum_id"`
	DiscussionID   int64              `bson:"discussion_id" json:"discussion_id"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}
