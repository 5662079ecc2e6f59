// internal/app/store/forumbindings/forumbindingstore.go
package forumbindingstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/coursediscuss/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when a course has no remembered forum.
var ErrNotFound = errors.New("forum binding not found")

// Store provides access to the forum_bindings collection.
// There is at most one document per course_id (unique index).
type Store struct {
	c *mongo.Collection
}

// New creates a new forum binding store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("forum_bindings")}
}

// Get returns the binding remembered for a course.
func (s *Store) Get(ctx context.Context, courseID int64) (models.ForumBinding, error) {
	var fb models.ForumBinding
	err := s.c.FindOne(ctx, bson.M{"course_id": courseID}).Decode(&fb)
	if err == mongo.ErrNoDocuments {
		return models.ForumBinding{}, ErrNotFound
	}
	if err != nil {
		return models.ForumBinding{}, fmt.Errorf("find forum binding: %w", err)
	}
	return fb, nil
}

// Insert remembers forumID for courseID. A second insert for the same course
// fails with a duplicate-key error; callers detect it with wafflemongo.IsDup.
func (s *Store) Insert(ctx context.Context, courseID, forumID int64) (models.ForumBinding, error) {
	fb := models.ForumBinding{
		CourseID:  courseID,
		ForumID:   forumID,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, fb); err != nil {
		return models.ForumBinding{}, err
	}
	return fb, nil
}

// DeleteByCourse removes the binding for a course. Deleting a missing
// binding is not an error.
func (s *Store) DeleteByCourse(ctx context.Context, courseID int64) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"course_id": courseID})
	if err != nil {
		return fmt.Errorf("delete forum binding: %w", err)
	}
	return nil
}
