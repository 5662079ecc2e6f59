// internal/app/store/forums/forumstore.go
//
// Package forumstore is the forum collaborator: it reads and writes the host
// LMS forum collections (forums, forum_discussions, forum_posts) and answers
// the posting and editing permission questions discussions need.
package forumstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/coursediscuss/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when a forum, discussion, or post is missing.
	ErrNotFound = errors.New("forum record not found")
	// ErrPermissionDenied is returned when the user may not post.
	ErrPermissionDenied = errors.New("not permitted to post in this discussion")
	// ErrInvalidParent is returned when a reply names a parent outside the discussion.
	ErrInvalidParent = errors.New("invalid parent post id")
)

// Store implements the forum collaborator over MongoDB.
type Store struct {
	forums      *mongo.Collection
	modules     *mongo.Collection
	discussions *mongo.Collection
	posts       *mongo.Collection
	enrolments  *mongo.Collection
	counters    *mongo.Collection

	now func() time.Time
}

// New creates a forum store over db.
func New(db *mongo.Database) *Store {
	return &Store{
		forums:      db.Collection("forums"),
		modules:     db.Collection("course_modules"),
		discussions: db.Collection("forum_discussions"),
		posts:       db.Collection("forum_posts"),
		enrolments:  db.Collection("course_enrolments"),
		counters:    db.Collection("counters"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// NewDiscussion is the input to CreateDiscussion.
type NewDiscussion struct {
	ForumID int64
	Subject string
	Message string
	// UserID authors the seed post.
	UserID int64
	// ActorID is the user whose posting permission is checked; zero means UserID.
	ActorID int64
}

// NewPost is the input to CreatePost.
type NewPost struct {
	DiscussionID int64
	ParentID     int64
	Subject      string
	Message      string
	UserID       int64
}

// nextID allocates the next numeric id for a collection from the counters
// collection.
func (s *Store) nextID(ctx context.Context, name string) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("allocate %s id: %w", name, err)
	}
	return doc.Seq, nil
}

// ListForumActivities returns every forum placed in the course as an
// activity, with its forum type as the category.
func (s *Store) ListForumActivities(ctx context.Context, courseID int64) ([]models.ForumActivity, error) {
	cur, err := s.modules.Find(ctx, bson.M{"course_id": courseID, "modname": "forum"},
		options.Find().SetProjection(bson.M{"instance": 1}))
	if err != nil {
		return nil, fmt.Errorf("find forum modules: %w", err)
	}
	var cms []models.CourseModule
	if err := cur.All(ctx, &cms); err != nil {
		return nil, fmt.Errorf("decode forum modules: %w", err)
	}
	if len(cms) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(cms))
	for _, cm := range cms {
		ids = append(ids, cm.Instance)
	}

	fcur, err := s.forums.Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "course_id": courseID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find forums: %w", err)
	}
	var forums []models.Forum
	if err := fcur.All(ctx, &forums); err != nil {
		return nil, fmt.Errorf("decode forums: %w", err)
	}

	out := make([]models.ForumActivity, 0, len(forums))
	for _, f := range forums {
		out = append(out, models.ForumActivity{
			InstanceID: f.ID,
			Name:       f.Name,
			Category:   f.Type,
		})
	}
	return out, nil
}

// ForumByID loads a forum instance.
func (s *Store) ForumByID(ctx context.Context, forumID int64) (models.Forum, error) {
	var f models.Forum
	err := s.forums.FindOne(ctx, bson.M{"_id": forumID}).Decode(&f)
	if err == mongo.ErrNoDocuments {
		return models.Forum{}, ErrNotFound
	}
	if err != nil {
		return models.Forum{}, fmt.Errorf("find forum: %w", err)
	}
	return f, nil
}

// FetchDiscussion loads a discussion.
func (s *Store) FetchDiscussion(ctx context.Context, discussionID int64) (models.Discussion, error) {
	var d models.Discussion
	err := s.discussions.FindOne(ctx, bson.M{"_id": discussionID}).Decode(&d)
	if err == mongo.ErrNoDocuments {
		return models.Discussion{}, ErrNotFound
	}
	if err != nil {
		return models.Discussion{}, fmt.Errorf("find discussion: %w", err)
	}
	return d, nil
}

// FetchPostsForDiscussion returns the discussion's posts, root included,
// ordered by creation time (newest first unless sortOrder is "oldest").
func (s *Store) FetchPostsForDiscussion(ctx context.Context, discussionID int64, sortOrder string) ([]models.Post, error) {
	dir := -1
	if sortOrder == models.SortOldestFirst {
		dir = 1
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: dir},
		{Key: "_id", Value: dir},
	})
	cur, err := s.posts.Find(ctx, bson.M{"discussion_id": discussionID, "deleted": bson.M{"$ne": true}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find posts: %w", err)
	}
	var posts []models.Post
	if err := cur.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	return posts, nil
}

// GetPost loads a post.
func (s *Store) GetPost(ctx context.Context, postID int64) (models.Post, error) {
	var p models.Post
	err := s.posts.FindOne(ctx, bson.M{"_id": postID}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return models.Post{}, ErrNotFound
	}
	if err != nil {
		return models.Post{}, fmt.Errorf("find post: %w", err)
	}
	return p, nil
}

// RootPost returns the seed post of a discussion.
func (s *Store) RootPost(ctx context.Context, discussionID int64) (models.Post, error) {
	var p models.Post
	err := s.posts.FindOne(ctx, bson.M{"discussion_id": discussionID, "parent_id": int64(0)}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return models.Post{}, ErrNotFound
	}
	if err != nil {
		return models.Post{}, fmt.Errorf("find root post: %w", err)
	}
	return p, nil
}

// CreateDiscussion starts a discussion in a forum with a seed post written
// by in.UserID. It returns ErrPermissionDenied when the acting user may not
// post in the forum.
func (s *Store) CreateDiscussion(ctx context.Context, in NewDiscussion) (int64, error) {
	forum, err := s.ForumByID(ctx, in.ForumID)
	if err != nil {
		return 0, err
	}
	actor := in.ActorID
	if actor == 0 {
		actor = in.UserID
	}
	ok, err := s.CanUserPost(ctx, in.ForumID, 0, actor)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrPermissionDenied
	}

	discussionID, err := s.nextID(ctx, "forum_discussions")
	if err != nil {
		return 0, err
	}
	postID, err := s.nextID(ctx, "forum_posts")
	if err != nil {
		return 0, err
	}

	now := s.now()
	d := models.Discussion{
		ID:          discussionID,
		CourseID:    forum.CourseID,
		ForumID:     forum.ID,
		Name:        strings.TrimSpace(in.Subject),
		FirstPostID: postID,
		UserID:      in.UserID,
		CreatedAt:   now,
		ModifiedAt:  now,
	}
	root := models.Post{
		ID:           postID,
		DiscussionID: discussionID,
		ParentID:     0,
		UserID:       in.UserID,
		Subject:      d.Name,
		Message:      in.Message,
		CreatedAt:    now,
		ModifiedAt:   now,
	}

	// Root first: a discussion is never visible without its seed post.
	if _, err := s.posts.InsertOne(ctx, root); err != nil {
		return 0, fmt.Errorf("insert root post: %w", err)
	}
	if _, err := s.discussions.InsertOne(ctx, d); err != nil {
		_, _ = s.posts.DeleteOne(ctx, bson.M{"_id": postID})
		return 0, fmt.Errorf("insert discussion: %w", err)
	}
	return discussionID, nil
}

// CreatePost adds a reply under in.ParentID. A zero ParentID replies to the
// discussion's root post. An empty subject becomes "Re: {parent subject}".
func (s *Store) CreatePost(ctx context.Context, in NewPost) (int64, error) {
	var parent models.Post
	var err error
	if in.ParentID == 0 {
		parent, err = s.RootPost(ctx, in.DiscussionID)
	} else {
		parent, err = s.GetPost(ctx, in.ParentID)
	}
	if errors.Is(err, ErrNotFound) || (err == nil && parent.DiscussionID != in.DiscussionID) {
		return 0, ErrInvalidParent
	}
	if err != nil {
		return 0, err
	}

	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		subject = "Re: " + parent.Subject
	}

	id, err := s.nextID(ctx, "forum_posts")
	if err != nil {
		return 0, err
	}
	now := s.now()
	p := models.Post{
		ID:           id,
		DiscussionID: in.DiscussionID,
		ParentID:     parent.ID,
		UserID:       in.UserID,
		Subject:      subject,
		Message:      in.Message,
		CreatedAt:    now,
		ModifiedAt:   now,
	}
	if _, err := s.posts.InsertOne(ctx, p); err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}
	if _, err := s.discussions.UpdateByID(ctx, in.DiscussionID, bson.M{"$set": bson.M{"modified_at": now}}); err != nil {
		return id, fmt.Errorf("touch discussion: %w", err)
	}
	return id, nil
}

func (s *Store) enrolment(ctx context.Context, courseID, userID int64) (models.CourseEnrolment, bool, error) {
	var e models.CourseEnrolment
	err := s.enrolments.FindOne(ctx, bson.M{"course_id": courseID, "user_id": userID, "active": true}).Decode(&e)
	if err == mongo.ErrNoDocuments {
		return models.CourseEnrolment{}, false, nil
	}
	if err != nil {
		return models.CourseEnrolment{}, false, fmt.Errorf("find enrolment: %w", err)
	}
	return e, true, nil
}

// CanUserPost reports whether userID may post in the forum, and when
// discussionID is non-zero, in that discussion. Posting needs an active
// enrolment in the forum's course; news forums need a teaching role; locked
// discussions and discussions of another forum refuse replies.
func (s *Store) CanUserPost(ctx context.Context, forumID, discussionID, userID int64) (bool, error) {
	forum, err := s.ForumByID(ctx, forumID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	e, ok, err := s.enrolment(ctx, forum.CourseID, userID)
	if err != nil || !ok {
		return false, err
	}
	if forum.Type == models.ForumTypeNews && !e.CanPostInNews() {
		return false, nil
	}

	if discussionID != 0 {
		d, err := s.FetchDiscussion(ctx, discussionID)
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if d.ForumID != forumID || d.Locked {
			return false, nil
		}
		if !d.TimeEnd.IsZero() && s.now().After(d.TimeEnd) && !e.CanEditAnyPost() {
			return false, nil
		}
	}
	return true, nil
}

// CanUserEdit reports whether userID holds the elevated capability to edit
// any post in the course that owns postID.
func (s *Store) CanUserEdit(ctx context.Context, userID, postID int64) (bool, error) {
	p, err := s.GetPost(ctx, postID)
	if err != nil {
		return false, err
	}
	d, err := s.FetchDiscussion(ctx, p.DiscussionID)
	if err != nil {
		return false, err
	}
	e, ok, err := s.enrolment(ctx, d.CourseID, userID)
	if err != nil || !ok {
		return false, err
	}
	return e.CanEditAnyPost(), nil
}
