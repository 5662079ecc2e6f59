package testutil

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/coursediscuss/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating host LMS records in tests.
type Fixtures struct {
	db     *mongo.Database
	t      *testing.T
	nextID atomic.Int64
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	f := &Fixtures{db: db, t: t}
	f.nextID.Store(1000)
	return f
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) id() int64 {
	return f.nextID.Add(1)
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to insert test %s: %v", coll, err)
	}
}

// CreateUser creates a user with the given id and name.
func (f *Fixtures) CreateUser(ctx context.Context, id int64, first, last string) models.User {
	f.t.Helper()
	u := models.User{
		ID:        id,
		FirstName: first,
		LastName:  last,
		Username:  first + last,
		CreatedAt: time.Now().UTC(),
	}
	f.insert(ctx, "users", u)
	return u
}

// Enrol gives userID an active role in courseID.
func (f *Fixtures) Enrol(ctx context.Context, courseID, userID int64, role string) models.CourseEnrolment {
	f.t.Helper()
	e := models.CourseEnrolment{CourseID: courseID, UserID: userID, Role: role, Active: true}
	f.insert(ctx, "course_enrolments", e)
	return e
}

// CreateForum creates a forum instance with the given id and places it in
// the course as a forum activity.
func (f *Fixtures) CreateForum(ctx context.Context, id, courseID int64, name, forumType string) models.Forum {
	f.t.Helper()
	forum := models.Forum{ID: id, CourseID: courseID, Name: name, Type: forumType}
	f.insert(ctx, "forums", forum)
	f.CreateModule(ctx, courseID, "forum", id, name)
	return forum
}

// RemoveForum deletes a forum instance and its course module.
func (f *Fixtures) RemoveForum(ctx context.Context, id int64) {
	f.t.Helper()
	if _, err := f.db.Collection("forums").DeleteOne(ctx, map[string]any{"_id": id}); err != nil {
		f.t.Fatalf("failed to delete test forum: %v", err)
	}
	if _, err := f.db.Collection("course_modules").DeleteMany(ctx, map[string]any{"modname": "forum", "instance": id}); err != nil {
		f.t.Fatalf("failed to delete test forum module: %v", err)
	}
}

// CreateModule places an activity in a course and returns the module.
func (f *Fixtures) CreateModule(ctx context.Context, courseID int64, modName string, instance int64, name string) models.CourseModule {
	f.t.Helper()
	cm := models.CourseModule{
		ID:       f.id(),
		CourseID: courseID,
		ModName:  modName,
		Instance: instance,
		Name:     name,
		Visible:  true,
	}
	f.insert(ctx, "course_modules", cm)
	return cm
}

// CreateSection creates a course section at position n.
func (f *Fixtures) CreateSection(ctx context.Context, courseID int64, n int, name string) models.CourseSection {
	f.t.Helper()
	s := models.CourseSection{ID: f.id(), CourseID: courseID, Section: n, Name: name}
	f.insert(ctx, "course_sections", s)
	return s
}

// CreateBook creates a book instance.
func (f *Fixtures) CreateBook(ctx context.Context, courseID int64, name string) models.Book {
	f.t.Helper()
	b := models.Book{ID: f.id(), CourseID: courseID, Name: name}
	f.insert(ctx, "books", b)
	return b
}

// CreateChapter creates a chapter in a book.
func (f *Fixtures) CreateChapter(ctx context.Context, bookID int64, title string) models.BookChapter {
	f.t.Helper()
	c := models.BookChapter{ID: f.id(), BookID: bookID, Title: title}
	f.insert(ctx, "book_chapters", c)
	return c
}
