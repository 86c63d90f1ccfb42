package observability

import (
	"sync"

	"github.com/danmuck/irlink/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	baseOnce   sync.Once
	baseLogger zerolog.Logger
	initMu     sync.Mutex
	initialized bool
)

// InitLogger configures the runtime logger and tags every line with app.
// Repeat calls retag the same base logger rather than stacking fields.
func InitLogger(app string) zerolog.Logger {
	logging.ConfigureRuntime()
	baseOnce.Do(func() {
		baseLogger = log.Logger
	})
	logger := baseLogger.With().Str("app", app).Logger()

	initMu.Lock()
	defer initMu.Unlock()
	log.Logger = logger
	initialized = true
	return logger
}

// LoggerInitialized reports whether InitLogger has run in this process.
func LoggerInitialized() bool {
	initMu.Lock()
	defer initMu.Unlock()
	return initialized
}
