// internal/domain/models/forumbinding.go
package models

import "time"

// ForumBinding records which forum a course uses for page discussions.
// There is at most one binding per course (unique index on course_id).
type ForumBinding struct {
	CourseID  int64     `bson:"course_id" json:"course_id"`
	ForumID   int64     `bson:"forum_id" json:"forum_id"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
