package app

import (
	"github.com/avitalVissoky/ChatLibrary/internal/chatapi"
	"github.com/avitalVissoky/ChatLibrary/internal/config"
	"go.uber.org/zap"
)

// NewClient builds the chat service client described by cfg.
func NewClient(cfg *config.Config, logger *zap.Logger) (*chatapi.Client, error) {
	keys := chatapi.DefaultKeys()
	keys.Send = cfg.Keys.Send
	keys.Delete = cfg.Keys.Delete
	keys.Update = cfg.Keys.Update

	return chatapi.New(chatapi.Options{
		BaseURL:         cfg.Server.BaseURL,
		Timeout:         cfg.HTTP.Timeout.Duration,
		RateLimit:       cfg.HTTP.RateLimit,
		RateBurst:       cfg.HTTP.RateBurst,
		BreakerFailures: cfg.HTTP.BreakerFailures,
		BreakerTimeout:  cfg.HTTP.BreakerTimeout.Duration,
		Keys:            keys,
		Logger:          logger,
	})
}
