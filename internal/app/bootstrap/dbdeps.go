// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Redis is nil when the forum binding cache is disabled.
	Redis *goredis.Client
}
