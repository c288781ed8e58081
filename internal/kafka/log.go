package kafka

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func logger(consumer, topic string) zerolog.Logger {
	return log.With().Str("consumer", consumer).Str("topic", topic).Logger()
}
