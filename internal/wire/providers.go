package wire

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"gochats/internal/chat/repository"
	"gochats/internal/chat/service"
	"gochats/internal/common"
	"gochats/internal/config"
	"gochats/internal/dbmongo"
	"gochats/internal/notif"
)

type Application struct {
	Config   *config.Config
	Logger   *slog.Logger
	Mongo    *dbmongo.MongoClient
	Messages *mongo.Collection
	Notifier common.Notifier
	Router   http.Handler
}

func ProvideLogger(cfg *config.Config) *slog.Logger {
	return common.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
}

func ProvideMongo(cfg *config.Config, logger *slog.Logger) (*dbmongo.MongoClient, func(), error) {
	client, err := dbmongo.NewMongoConnection(cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("connected to MongoDB", "database", cfg.MongoDB.Database)

	return client, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Close(ctx); err != nil {
			logger.Warn("failed to disconnect MongoDB", "error", err)
		}
	}, nil
}

func ProvideMessageCollection(cfg *config.Config, client *dbmongo.MongoClient) *mongo.Collection {
	return client.Collection(cfg.MongoDB.Collection)
}

func ProvideNotifier(cfg *config.Config, logger *slog.Logger) (common.Notifier, func()) {
	return notif.NewNotifier(cfg, logger)
}

func ProvideChatService(cfg *config.Config, repo repository.ChatRepository, n common.Notifier) service.ChatService {
	return service.NewChatService(repo, n, cfg.Notification.ServiceName)
}

// ProvideErrorResponder keeps error logs out of test runs.
func ProvideErrorResponder(cfg *config.Config, logger *slog.Logger) *common.ErrorResponder {
	return common.NewErrorResponder(logger, cfg.IsTest())
}

func ProvideRateLimiter(cfg *config.Config) *common.RateLimiter {
	return common.NewRateLimiter(cfg.RateLimitWindow(), cfg.RateLimit.Max)
}
