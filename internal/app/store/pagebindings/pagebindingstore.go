// internal/app/store/pagebindings/pagebindingstore.go
package pagebindingstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/coursediscuss/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a page has no discussion bound to it.
var ErrNotFound = errors.New("page binding not found")

// maxBindAttempts bounds the read/compare/write loop in BindIfAbsent.
const maxBindAttempts = 3

// Store provides access to the page_bindings collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new page binding store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("page_bindings")}
}

// BindResult reports what Bind did to the row for a page.
type BindResult struct {
	// Inserted is true when no row existed for the page.
	Inserted bool
	// PreviousDiscussionID is the overwritten value when a row was reused.
	PreviousDiscussionID int64
}

// BindOutcome reports the result of BindIfAbsent.
type BindOutcome struct {
	// DiscussionID is the discussion the page is bound to after the call.
	DiscussionID int64
	// Adopted is true when another writer's live binding won and the
	// caller's discussion was not recorded.
	Adopted bool
	// Replaced is true when a stale binding was overwritten.
	Replaced bool
}

func keyFilter(courseID int64, kind models.PageKind, pageInternalID int64) bson.M {
	return bson.M{
		"course_id":        courseID,
		"page_kind":        kind,
		"page_internal_id": pageInternalID,
	}
}

// Get returns the full binding row for a page.
func (s *Store) Get(ctx context.Context, courseID int64, kind models.PageKind, pageInternalID int64) (models.PageBinding, error) {
	var pb models.PageBinding
	err := s.c.FindOne(ctx, keyFilter(courseID, kind, pageInternalID)).Decode(&pb)
	if err == mongo.ErrNoDocuments {
		return models.PageBinding{}, ErrNotFound
	}
	if err != nil {
		return models.PageBinding{}, fmt.Errorf("find page binding: %w", err)
	}
	return pb, nil
}

// GetDiscussionID returns the discussion bound to a page. The id may refer
// to a discussion that no longer exists; callers verify liveness.
func (s *Store) GetDiscussionID(ctx context.Context, courseID int64, kind models.PageKind, pageInternalID int64) (int64, error) {
	var row struct {
		DiscussionID int64 `bson:"discussion_id"`
	}
	opts := options.FindOne().SetProjection(bson.M{"discussion_id": 1})
	err := s.c.FindOne(ctx, keyFilter(courseID, kind, pageInternalID), opts).Decode(&row)
	if err == mongo.ErrNoDocuments {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("find page binding: %w", err)
	}
	return row.DiscussionID, nil
}

// Bind records discussionID for the page, overwriting any existing row for
// the same key in a single round trip. It is the unconditional upsert;
// request paths go through BindIfAbsent, which uses the same write for its
// stale-row replace.
func (s *Store) Bind(ctx context.Context, courseID, pageInternalID int64, kind models.PageKind, forumID, discussionID int64) (BindResult, error) {
	prev, found, err := s.setDiscussion(ctx, keyFilter(courseID, kind, pageInternalID), forumID, discussionID, true)
	if err != nil {
		return BindResult{}, fmt.Errorf("bind page: %w", err)
	}
	if !found {
		return BindResult{Inserted: true}, nil
	}
	return BindResult{PreviousDiscussionID: prev.DiscussionID}, nil
}

// setDiscussion points the row matching filter at discussionID and returns
// the row as it was before. found is false when no row matched; with upsert
// a new row was inserted in that case.
func (s *Store) setDiscussion(ctx context.Context, filter bson.M, forumID, discussionID int64, upsert bool) (models.PageBinding, bool, error) {
	update := bson.M{
		"$set": bson.M{
			"forum_id":      forumID,
			"discussion_id": discussionID,
		},
	}
	if upsert {
		update["$setOnInsert"] = bson.M{
			"_id":        primitive.NewObjectID(),
			"created_at": time.Now().UTC(),
		}
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(upsert).
		SetReturnDocument(options.Before)

	var prev models.PageBinding
	err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&prev)
	if err == mongo.ErrNoDocuments {
		return models.PageBinding{}, false, nil
	}
	if err != nil {
		return models.PageBinding{}, false, err
	}
	return prev, true, nil
}

// BindIfAbsent records discussionID for the page only when no live binding
// exists. A missing row is inserted; a row whose discussion isStale reports
// as gone is overwritten with a compare-and-set on the old id; any other row
// wins and its discussion id is returned with Adopted set.
func (s *Store) BindIfAbsent(
	ctx context.Context,
	courseID, pageInternalID int64,
	kind models.PageKind,
	forumID, discussionID int64,
	isStale func(discussionID int64) bool,
) (BindOutcome, error) {
	filter := keyFilter(courseID, kind, pageInternalID)

	for attempt := 0; attempt < maxBindAttempts; attempt++ {
		current, err := s.insertOrGet(ctx, filter, forumID, discussionID)
		if wafflemongo.IsDup(err) {
			// concurrent upsert on the same key; the row exists now
			continue
		}
		if err != nil {
			return BindOutcome{}, err
		}

		if current.DiscussionID == discussionID {
			return BindOutcome{DiscussionID: discussionID}, nil
		}
		if isStale == nil || !isStale(current.DiscussionID) {
			return BindOutcome{DiscussionID: current.DiscussionID, Adopted: true}, nil
		}

		casFilter := keyFilter(courseID, kind, pageInternalID)
		casFilter["discussion_id"] = current.DiscussionID
		_, found, err := s.setDiscussion(ctx, casFilter, forumID, discussionID, false)
		if err != nil {
			return BindOutcome{}, fmt.Errorf("replace stale page binding: %w", err)
		}
		if found {
			return BindOutcome{DiscussionID: discussionID, Replaced: true}, nil
		}
		// someone else replaced the stale row first; look again
	}
	return BindOutcome{}, fmt.Errorf("bind page: gave up after %d attempts", maxBindAttempts)
}

// insertOrGet inserts the row when absent and returns whatever row is
// stored for the key afterwards.
func (s *Store) insertOrGet(ctx context.Context, filter bson.M, forumID, discussionID int64) (models.PageBinding, error) {
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":           primitive.NewObjectID(),
			"forum_id":      forumID,
			"discussion_id": discussionID,
			"created_at":    time.Now().UTC(),
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var pb models.PageBinding
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&pb); err != nil {
		if wafflemongo.IsDup(err) {
			return models.PageBinding{}, err
		}
		return models.PageBinding{}, fmt.Errorf("insert page binding: %w", err)
	}
	return pb, nil
}

// DeleteByCourse removes every binding of a course. It is the teardown
// for a deleted course; no request path calls it.
func (s *Store) DeleteByCourse(ctx context.Context, courseID int64) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"course_id": courseID})
	if err != nil {
		return 0, fmt.Errorf("delete page bindings: %w", err)
	}
	return res.DeletedCount, nil
}
