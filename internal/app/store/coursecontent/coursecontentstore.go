// internal/app/store/coursecontent/coursecontentstore.go
package coursecontentstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/coursediscuss/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when a section, chapter, book, or module is missing.
var ErrNotFound = errors.New("course content not found")

// Store reads the course structure collections of the host LMS.
type Store struct {
	sections *mongo.Collection
	modules  *mongo.Collection
	books    *mongo.Collection
	chapters *mongo.Collection
}

// New creates a course content store over db.
func New(db *mongo.Database) *Store {
	return &Store{
		sections: db.Collection("course_sections"),
		modules:  db.Collection("course_modules"),
		books:    db.Collection("books"),
		chapters: db.Collection("book_chapters"),
	}
}

func findOne[T any](ctx context.Context, c *mongo.Collection, filter bson.M, what string) (T, error) {
	var v T
	err := c.FindOne(ctx, filter).Decode(&v)
	if err == mongo.ErrNoDocuments {
		return v, ErrNotFound
	}
	if err != nil {
		return v, fmt.Errorf("find %s: %w", what, err)
	}
	return v, nil
}

// Section returns a section of the given course.
func (s *Store) Section(ctx context.Context, courseID, sectionID int64) (models.CourseSection, error) {
	return findOne[models.CourseSection](ctx, s.sections, bson.M{"_id": sectionID, "course_id": courseID}, "section")
}

// Module returns a course module (activity) of the given course.
func (s *Store) Module(ctx context.Context, courseID, moduleID int64) (models.CourseModule, error) {
	return findOne[models.CourseModule](ctx, s.modules, bson.M{"_id": moduleID, "course_id": courseID}, "course module")
}

// Chapter returns a book chapter by id.
func (s *Store) Chapter(ctx context.Context, chapterID int64) (models.BookChapter, error) {
	return findOne[models.BookChapter](ctx, s.chapters, bson.M{"_id": chapterID}, "book chapter")
}

// Book returns a book instance by id.
func (s *Store) Book(ctx context.Context, bookID int64) (models.Book, error) {
	return findOne[models.Book](ctx, s.books, bson.M{"_id": bookID}, "book")
}
