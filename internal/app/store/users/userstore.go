package userstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/coursediscuss/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no user has the requested id.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateID is returned when creating a user whose id is taken.
	ErrDuplicateID = errors.New("a user with this id already exists")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// GetByID loads a user by id.
func (s *Store) GetByID(ctx context.Context, id int64) (models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// Exists reports whether an active (not deleted) user has the given id.
func (s *Store) Exists(ctx context.Context, id int64) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id, "deleted": bson.M{"$ne": true}})
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n > 0, nil
}

// ByIDs loads the display fields of every user in ids. Missing users are
// simply absent from the result.
func (s *Store) ByIDs(ctx context.Context, ids []int64) (map[int64]models.User, error) {
	out := make(map[int64]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	proj := options.Find().SetProjection(bson.M{
		"_id":         1,
		"first_name":  1,
		"last_name":   1,
		"username":    1,
		"picture_url": 1,
		"suspended":   1,
		"deleted":     1,
	})
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, proj)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		out[u.ID] = u
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}

// Create inserts a user. Ids are assigned by the host LMS, so u.ID must be set.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	if u.ID <= 0 {
		return models.User{}, errors.New("user id must be positive")
	}
	u.FirstName = strings.TrimSpace(u.FirstName)
	u.LastName = strings.TrimSpace(u.LastName)
	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateID
		}
		return models.User{}, err
	}
	return u, nil
}
