// Package bindingcache keeps course-to-forum bindings in Redis so repeated
// page views skip the forum_bindings lookup.
package bindingcache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dalemusser/coursediscuss/internal/domain/models"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "coursediscuss:forum_binding:"

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Connect opens a Redis client and verifies it with a ping.
func Connect(ctx context.Context, opts Options) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Backing is the authoritative forum binding store.
type Backing interface {
	Get(ctx context.Context, courseID int64) (models.ForumBinding, error)
	Insert(ctx context.Context, courseID, forumID int64) (models.ForumBinding, error)
	DeleteByCourse(ctx context.Context, courseID int64) error
}

// Store is a read-through cache in front of a Backing store. Errors from
// Redis are logged and treated as misses; the backing store stays the
// source of truth.
type Store struct {
	backing Backing
	rdb     *goredis.Client
	ttl     time.Duration
	log     *zap.Logger
}

// New wraps backing with a Redis cache. A nil rdb disables caching.
func New(backing Backing, rdb *goredis.Client, ttl time.Duration, logger *zap.Logger) *Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Store{backing: backing, rdb: rdb, ttl: ttl, log: logger}
}

func key(courseID int64) string {
	return keyPrefix + strconv.FormatInt(courseID, 10)
}

// Get returns the binding for a course, from Redis when present.
func (s *Store) Get(ctx context.Context, courseID int64) (models.ForumBinding, error) {
	if s.rdb != nil {
		v, err := s.rdb.Get(ctx, key(courseID)).Int64()
		switch {
		case err == nil:
			return models.ForumBinding{CourseID: courseID, ForumID: v}, nil
		case !errors.Is(err, goredis.Nil):
			s.log.Warn("forum binding cache read failed",
				zap.Int64("course_id", courseID), zap.Error(err))
		}
	}

	fb, err := s.backing.Get(ctx, courseID)
	if err != nil {
		return fb, err
	}
	s.set(ctx, courseID, fb.ForumID)
	return fb, nil
}

// Insert writes through to the backing store and drops any cached value.
func (s *Store) Insert(ctx context.Context, courseID, forumID int64) (models.ForumBinding, error) {
	s.invalidate(ctx, courseID)
	return s.backing.Insert(ctx, courseID, forumID)
}

// DeleteByCourse deletes from the backing store and drops any cached value.
func (s *Store) DeleteByCourse(ctx context.Context, courseID int64) error {
	s.invalidate(ctx, courseID)
	return s.backing.DeleteByCourse(ctx, courseID)
}

func (s *Store) set(ctx context.Context, courseID, forumID int64) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Set(ctx, key(courseID), forumID, s.ttl).Err(); err != nil {
		s.log.Warn("forum binding cache write failed",
			zap.Int64("course_id", courseID), zap.Error(err))
	}
}

func (s *Store) invalidate(ctx context.Context, courseID int64) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, key(courseID)).Err(); err != nil {
		s.log.Warn("forum binding cache invalidate failed",
			zap.Int64("course_id", courseID), zap.Error(err))
	}
}
