// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	accountstore "github.com/dalemusser/bookhunter/internal/app/store/accounts"
	bookstore "github.com/dalemusser/bookhunter/internal/app/store/books"
	"github.com/dalemusser/bookhunter/internal/app/store/memstore"
	"github.com/dalemusser/bookhunter/internal/app/system/mailer"
	"github.com/dalemusser/bookhunter/internal/app/system/ratelimit"
	"github.com/dalemusser/bookhunter/internal/app/system/timeouts"
	"github.com/dalemusser/bookhunter/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Redis key prefixes for the shared limiters; the limiter adds the ":".
const (
	redisIPPrefix   = "bookhunter:rl:ip"
	redisUserPrefix = "bookhunter:rl:user"
)

// ConnectDB opens the configured backends: MongoDB (or the in-memory store),
// Redis when an address is set, and the outbound notifier.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	var deps DBDeps

	switch appCfg.StoreBackend {
	case backendMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		deps.Accounts = memstore.NewAccounts()
		deps.Books = memstore.NewBooks()
	default:
		client, err := connectMongo(ctx, appCfg, logger)
		if err != nil {
			return DBDeps{}, err
		}
		db := client.Database(appCfg.MongoDatabase)
		deps.MongoClient = client
		deps.MongoDatabase = db
		deps.Accounts = accountstore.New(db)
		deps.Books = bookstore.New(db)
	}

	if appCfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     appCfg.RedisAddr,
			Password: appCfg.RedisPassword,
			DB:       appCfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			// Limiters fail open, so a missing Redis only weakens throttling.
			logger.Warn("redis ping failed; continuing", zap.String("addr", appCfg.RedisAddr), zap.Error(err))
		} else {
			logger.Info("connected to redis", zap.String("addr", appCfg.RedisAddr))
		}
		deps.Redis = rdb
		deps.IPLimiter = ratelimit.NewRedis(rdb, redisIPPrefix, appCfg.AuthRateLimit, appCfg.AuthRateWindow)
		deps.UserLimiter = ratelimit.NewRedis(rdb, redisUserPrefix, appCfg.AuthRateLimit, appCfg.AuthRateWindow)
	} else {
		deps.IPLimiter = ratelimit.New(appCfg.AuthRateLimit, appCfg.AuthRateWindow)
		deps.UserLimiter = ratelimit.New(appCfg.AuthRateLimit, appCfg.AuthRateWindow)
	}

	deps.Notifications = workers.NewNotificationDispatcher(buildNotifier(appCfg, logger), logger, appCfg.NotifyQueueSize, 30*time.Second)

	return deps, nil
}

func connectMongo(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	connectCtx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool", appCfg.MongoMaxPoolSize))
	return client, nil
}

func buildNotifier(appCfg AppConfig, logger *zap.Logger) mailer.Notifier {
	if appCfg.MailSMTPHost == "" {
		logger.Warn("mail_smtp_host is blank; emails will be logged, not sent")
		return mailer.LogNotifier{Logger: logger}
	}
	return mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		Username: appCfg.MailSMTPUser,
		Password: appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
	}, logger)
}

// EnsureSchema creates the unique username index and the book query indexes.
// Nothing to do for the memory backend.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.MongoDatabase == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	if err := accountstore.New(deps.MongoDatabase).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure account indexes: %w", err)
	}
	if err := bookstore.New(deps.MongoDatabase).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure book indexes: %w", err)
	}
	logger.Info("schema ready")
	return nil
}
