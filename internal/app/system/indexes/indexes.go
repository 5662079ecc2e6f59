// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	sets := []struct {
		coll   string
		ensure func(context.Context, *mongo.Database) error
	}{
		{"forum_bindings", ensureForumBindings},
		{"page_bindings", ensurePageBindings},
		{"forum_posts", ensureForumPosts},
		{"forum_discussions", ensureForumDiscussions},
		{"course_modules", ensureCourseModules},
		{"course_enrolments", ensureCourseEnrolments},
	}
	for _, s := range sets {
		if err := s.ensure(ctx, db); err != nil {
			problems = append(problems, s.coll+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func isUnique(b *bool) bool {
	return b != nil && *b
}

func listIndexes(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	existing := map[string]existingIndex{} // sig -> index
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing, cur.Err()
}

// ensureIndexSet makes coll carry every index in want. An index with the
// same keys is reused when its uniqueness matches and its name matches (or
// no name is requested); otherwise it is dropped and recreated.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, want []mongo.IndexModel) error {
	existing, err := listIndexes(ctx, coll)
	if err != nil {
		// A collection that does not exist yet has no indexes to reconcile.
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range want {
		var name string
		var unique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			unique = m.Options.Unique
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()

		if ex, ok := existing[sig]; ok {
			if isUnique(ex.Unique) == isUnique(unique) && (name == "" || ex.Name == name) {
				zap.L().Debug("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", sig))
				continue
			}
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), name, err))
				continue
			}
			zap.L().Info("dropped index for recreation",
				zap.String("collection", coll.Name()),
				zap.String("from", ex.Name),
				zap.String("to", name),
				zap.Bool("unique", isUnique(unique)))
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if wafflemongo.IsDup(err) && isUnique(unique) {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present on %s)", coll.Name(), name, sig))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			}
			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", name),
				zap.String("keys", sig),
				zap.Error(err))
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", isUnique(unique)),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureForumBindings(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("forum_bindings"), []mongo.IndexModel{
		{
			// at most one forum per course; concurrent resolvers collide here
			Keys:    bson.D{{Key: "course_id", Value: 1}},
			Options: options.Index().SetName("uniq_forum_bindings_course").SetUnique(true),
		},
	})
}

func ensurePageBindings(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("page_bindings"), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "course_id", Value: 1},
				{Key: "page_kind", Value: 1},
				{Key: "page_internal_id", Value: 1},
			},
			Options: options.Index().SetName("uniq_page_bindings_key").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "discussion_id", Value: 1}},
			Options: options.Index().SetName("idx_page_bindings_discussion"),
		},
	})
}

func ensureForumPosts(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("forum_posts"), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "discussion_id", Value: 1},
				{Key: "created_at", Value: -1},
				{Key: "_id", Value: -1},
			},
			Options: options.Index().SetName("idx_forum_posts_discussion_created"),
		},
		{
			Keys: bson.D{
				{Key: "discussion_id", Value: 1},
				{Key: "parent_id", Value: 1},
			},
			Options: options.Index().SetName("idx_forum_posts_discussion_parent"),
		},
	})
}

func ensureForumDiscussions(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("forum_discussions"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "forum_id", Value: 1}},
			Options: options.Index().SetName("idx_forum_discussions_forum"),
		},
	})
}

func ensureCourseModules(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("course_modules"), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "course_id", Value: 1},
				{Key: "modname", Value: 1},
			},
			Options: options.Index().SetName("idx_course_modules_course_modname"),
		},
	})
}

func ensureCourseEnrolments(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("course_enrolments"), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "course_id", Value: 1},
				{Key: "user_id", Value: 1},
			},
			Options: options.Index().SetName("idx_course_enrolments_course_user"),
		},
	})
}
