// internal/domain/models/forum.go
package models

import "time"

// Forum types as stored by the host LMS. Only general-purpose forums are
// eligible to hold page discussions.
const (
	ForumTypeGeneral = "general"
	ForumTypeNews    = "news"
	ForumTypeQandA   = "qanda"
	ForumTypeSingle  = "single"
	ForumTypeEach    = "eachuser"
	ForumTypeBlog    = "blog"
)

// Forum is a forum activity instance in a course.
type Forum struct {
	ID       int64  `bson:"_id" json:"id"`
	CourseID int64  `bson:"course_id" json:"course_id"`
	Name     string `bson:"name" json:"name"`
	Type     string `bson:"type" json:"type"`
}

// IsGeneral reports whether the forum is a standard forum for general use.
func (f Forum) IsGeneral() bool {
	return f.Type == ForumTypeGeneral
}

// Discussion is a topic thread inside a forum.
type Discussion struct {
	ID          int64     `bson:"_id" json:"id"`
	CourseID    int64     `bson:"course_id" json:"course_id"`
	ForumID     int64     `bson:"forum_id" json:"forum_id"`
	Name        string    `bson:"name" json:"name"`
	FirstPostID int64     `bson:"first_post_id" json:"first_post_id"`
	UserID      int64     `bson:"user_id" json:"user_id"`
	TimeStart   time.Time `bson:"time_start,omitempty" json:"time_start,omitempty"`
	TimeEnd     time.Time `bson:"time_end,omitempty" json:"time_end,omitempty"`
	Locked      bool      `bson:"locked" json:"locked"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	ModifiedAt  time.Time `bson:"modified_at" json:"modified_at"`
}

// Post is a single message in a discussion. ParentID 0 marks the root post.
type Post struct {
	ID           int64     `bson:"_id" json:"id"`
	DiscussionID int64     `bson:"discussion_id" json:"discussion_id"`
	ParentID     int64     `bson:"parent_id" json:"parent_id"`
	UserID       int64     `bson:"user_id" json:"user_id"`
	Subject      string    `bson:"subject" json:"subject"`
	Message      string    `bson:"message" json:"message"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	ModifiedAt   time.Time `bson:"modified_at" json:"modified_at"`
	Deleted      bool      `bson:"deleted" json:"deleted"`
}

// IsRoot reports whether p is the first post of its discussion.
func (p Post) IsRoot() bool {
	return p.ParentID == 0
}

// ForumActivity is a forum course module as seen by forum resolution.
// Category is the forum type ("general", "news", ...).
type ForumActivity struct {
	InstanceID int64
	Name       string
	Category   string
}

// IsGeneral reports whether the activity is a general-purpose forum.
func (a ForumActivity) IsGeneral() bool {
	return a.Category == ForumTypeGeneral
}
