package observability

import (
	"github.com/danmuck/bitsctl/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger installs the process logger from cfg and returns it tagged with app.
func InitLogger(app string, cfg logging.Config) zerolog.Logger {
	logging.Apply(cfg)
	return log.Logger.With().Str("app", app).Logger()
}
