//go:build wireinject
// +build wireinject

package wire

import (
	"github.com/google/wire"

	"gochats/internal/chat/handler"
	"gochats/internal/chat/repository"
	"gochats/internal/config"
)

func InitializeApplication(cfg *config.Config) (*Application, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideMongo,
		ProvideMessageCollection,
		repository.NewChatRepository,
		ProvideNotifier,
		ProvideChatService,
		ProvideErrorResponder,
		ProvideRateLimiter,
		handler.NewChatHandler,
		handler.NewRouter,
		wire.Struct(new(Application), "*"),
	)
	return nil, nil, nil
}
