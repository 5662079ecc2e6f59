// Package forumlocator decides which forum of a course holds its page
// discussions and remembers the choice.
package forumlocator

import (
	"context"
	"errors"
	"fmt"

	forumbindingstore "github.com/dalemusser/coursediscuss/internal/app/store/forumbindings"
	"github.com/dalemusser/coursediscuss/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// ErrNoForum is returned when the course has no general-purpose forum.
var ErrNoForum = errors.New("no general-purpose forum in course")

// Bindings persists the chosen forum per course.
type Bindings interface {
	Get(ctx context.Context, courseID int64) (models.ForumBinding, error)
	Insert(ctx context.Context, courseID, forumID int64) (models.ForumBinding, error)
	DeleteByCourse(ctx context.Context, courseID int64) error
}

// Forums lists the forum activities of a course.
type Forums interface {
	ListForumActivities(ctx context.Context, courseID int64) ([]models.ForumActivity, error)
}

// Locator resolves the discussion forum of a course.
type Locator struct {
	bindings Bindings
	forums   Forums
	rules    MatchRules
	log      *zap.Logger
}

// New creates a Locator.
func New(bindings Bindings, forums Forums, rules MatchRules, logger *zap.Logger) *Locator {
	return &Locator{bindings: bindings, forums: forums, rules: rules, log: logger}
}

// Resolve returns the forum that backs page discussions in courseID.
//
// A remembered binding is returned while its forum is still one of the
// course's forum activities; a binding to a vanished forum is deleted and
// the forum is chosen again. Choice order: the first general forum whose
// name matches a rule (rules in order, then activities in order), else the
// general forum with the lowest instance id.
func (l *Locator) Resolve(ctx context.Context, courseID int64) (int64, error) {
	activities, err := l.forums.ListForumActivities(ctx, courseID)
	if err != nil {
		return 0, fmt.Errorf("list forum activities: %w", err)
	}

	fb, err := l.bindings.Get(ctx, courseID)
	switch {
	case err == nil:
		if containsInstance(activities, fb.ForumID) {
			return fb.ForumID, nil
		}
		if err := l.bindings.DeleteByCourse(ctx, courseID); err != nil {
			return 0, err
		}
		l.log.Info("removed forum binding to missing forum",
			zap.Int64("course_id", courseID),
			zap.Int64("forum_id", fb.ForumID))
	case !errors.Is(err, forumbindingstore.ErrNotFound):
		return 0, err
	}

	forumID, ok := Choose(activities, l.rules)
	if !ok {
		return 0, ErrNoForum
	}

	if _, err := l.bindings.Insert(ctx, courseID, forumID); err != nil {
		if wafflemongo.IsDup(err) {
			// a concurrent resolver stored its choice first; use it
			winner, gerr := l.bindings.Get(ctx, courseID)
			if gerr != nil {
				return 0, gerr
			}
			return winner.ForumID, nil
		}
		return 0, err
	}
	l.log.Info("bound course to forum",
		zap.Int64("course_id", courseID),
		zap.Int64("forum_id", forumID))
	return forumID, nil
}

// Choose picks the discussion forum among activities without touching
// storage. It reports false when no general-purpose forum exists.
func Choose(activities []models.ForumActivity, rules MatchRules) (int64, bool) {
	for _, rule := range rules {
		for _, a := range activities {
			if a.IsGeneral() && Matches(rule, a.Name) {
				return a.InstanceID, true
			}
		}
	}

	var best int64
	found := false
	for _, a := range activities {
		if !a.IsGeneral() {
			continue
		}
		if !found || a.InstanceID < best {
			best = a.InstanceID
			found = true
		}
	}
	return best, found
}

func containsInstance(activities []models.ForumActivity, id int64) bool {
	for _, a := range activities {
		if a.InstanceID == id {
			return true
		}
	}
	return false
}
