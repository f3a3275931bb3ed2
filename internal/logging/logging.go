// Package logging provides the shared zerolog logger for the engine.
package logging

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var once sync.Once

var log zerolog.Logger

// Level reads the log level from LABTRAIL_LOG_LEVEL, defaulting to warn so
// the CLI output stays quiet unless asked otherwise.
func Level() zerolog.Level {
	level, err := strconv.Atoi(os.Getenv("LABTRAIL_LOG_LEVEL"))
	if err != nil {
		return zerolog.WarnLevel
	}
	return zerolog.Level(level)
}

// Get returns the process-wide logger, initializing it on first use.
func Get() zerolog.Logger {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano

		log = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}).
			Level(Level()).
			With().
			Timestamp().
			Logger()
	})

	return log
}
