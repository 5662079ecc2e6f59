// internal/domain/models/coursecontent.go
package models

// CourseSection is a section (topic/week) of a course.
type CourseSection struct {
	ID       int64  `bson:"_id" json:"id"`
	CourseID int64  `bson:"course_id" json:"course_id"`
	Section  int    `bson:"section" json:"section"` // position within the course
	Name     string `bson:"name,omitempty" json:"name,omitempty"`
}

// CourseModule is an activity placed in a course (page, book, scorm, forum, ...).
// Instance is the id in the activity's own collection.
type CourseModule struct {
	ID       int64  `bson:"_id" json:"id"`
	CourseID int64  `bson:"course_id" json:"course_id"`
	ModName  string `bson:"modname" json:"modname"`
	Instance int64  `bson:"instance" json:"instance"`
	Name     string `bson:"name" json:"name"`
	Visible  bool   `bson:"visible" json:"visible"`
}

// Book is a book activity instance.
type Book struct {
	ID       int64  `bson:"_id" json:"id"`
	CourseID int64  `bson:"course_id" json:"course_id"`
	Name     string `bson:"name" json:"name"`
}

// BookChapter is a chapter of a book.
type BookChapter struct {
	ID     int64  `bson:"_id" json:"id"`
	BookID int64  `bson:"book_id" json:"book_id"`
	Title  string `bson:"title" json:"title"`
}
