// internal/domain/models/user.go
package models

import (
	"strings"
	"time"
)

// User is an LMS account as far as discussions need it: a name to show next
// to posts, a picture, and a suspended flag.
type User struct {
	ID         int64     `bson:"_id" json:"id"`
	FirstName  string    `bson:"first_name" json:"first_name"`
	LastName   string    `bson:"last_name" json:"last_name"`
	Username   string    `bson:"username" json:"username"`
	PictureURL string    `bson:"picture_url,omitempty" json:"picture_url,omitempty"`
	Suspended  bool      `bson:"suspended" json:"suspended"`
	Deleted    bool      `bson:"deleted" json:"deleted"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

// FullName joins first and last name, falling back to the username.
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Course roles recognised by discussion permission checks.
const (
	RoleStudent        = "student"
	RoleTeacher        = "teacher"        // non-editing teacher
	RoleEditingTeacher = "editingteacher"
	RoleManager        = "manager"
)

// CourseEnrolment grants a user a role in a course.
type CourseEnrolment struct {
	CourseID int64  `bson:"course_id" json:"course_id"`
	UserID   int64  `bson:"user_id" json:"user_id"`
	Role     string `bson:"role" json:"role"`
	Active   bool   `bson:"active" json:"active"`
}

// CanEditAnyPost reports whether the role carries the "edit any post" capability.
func (e CourseEnrolment) CanEditAnyPost() bool {
	return e.Role == RoleEditingTeacher || e.Role == RoleManager
}

// CanPostInNews reports whether the role may start or reply in news forums.
func (e CourseEnrolment) CanPostInNews() bool {
	return e.Role == RoleTeacher || e.Role == RoleEditingTeacher || e.Role == RoleManager
}
