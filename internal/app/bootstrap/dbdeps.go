// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/bookhunter/internal/app/store"
	"github.com/dalemusser/bookhunter/internal/app/system/ratelimit"
	"github.com/dalemusser/bookhunter/internal/app/system/workers"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	// Nil with the memory store backend.
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Nil when redis_addr is blank.
	Redis *redis.Client

	Accounts store.AccountStore
	Books    store.BookStore

	// Notifications wraps the SMTP (or log) notifier; started in Startup.
	Notifications *workers.NotificationDispatcher

	// Rate limit backends for the auth routes: one keyed by client IP,
	// one by username.
	IPLimiter   ratelimit.Backend
	UserLimiter ratelimit.Backend
}
