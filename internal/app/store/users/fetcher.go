package userstore

import (
	"context"

	"github.com/dalemusser/coursediscuss/internal/app/system/auth"
	"github.com/dalemusser/coursediscuss/internal/app/system/timeouts"
	"github.com/dalemusser/coursediscuss/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Fetcher implements auth.UserFetcher to load fresh user data on each request.
type Fetcher struct {
	users *mongo.Collection
}

// NewFetcher creates a UserFetcher that queries the given database.
func NewFetcher(db *mongo.Database) *Fetcher {
	return &Fetcher{users: db.Collection("users")}
}

// FetchUser retrieves a user by id and returns nil if the user is not found,
// suspended, deleted, or if any error occurs.
func (f *Fetcher) FetchUser(ctx context.Context, userID int64) *auth.SessionUser {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var u models.User
	proj := options.FindOne().SetProjection(bson.M{
		"_id":        1,
		"first_name": 1,
		"last_name":  1,
		"username":   1,
		"suspended":  1,
		"deleted":    1,
	})
	if err := f.users.FindOne(ctx, bson.M{"_id": userID}, proj).Decode(&u); err != nil {
		return nil
	}
	if u.Suspended || u.Deleted {
		return nil
	}

	return &auth.SessionUser{
		ID:       u.ID,
		Name:     u.FullName(),
		Username: u.Username,
	}
}

