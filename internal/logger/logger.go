// Package logger provides structured logging using zerolog,
// matching the format used across the polite-betrayal services.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const milliTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Init initializes the global logger with proper configuration based on environment.
func Init() {
	InitWithOutput(os.Stderr)
}

// InitWithOutput is Init with an explicit console destination. Command output
// (reports, predicted orders) goes to stdout, so logs default to stderr.
func InitWithOutput(out io.Writer) {
	zerolog.TimeFieldFormat = milliTimeFormat
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }

	const callerWidth = 30
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		path := fmt.Sprintf("%s:%d", filepath.Base(file), line)
		if len(path) >= callerWidth {
			return path[len(path)-callerWidth:]
		}
		return path + strings.Repeat(" ", callerWidth-len(path))
	}

	level := ParseLevel(os.Getenv("LOG_LEVEL"))
	zerolog.SetGlobalLevel(level)

	var output io.Writer = zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: milliTimeFormat,
		NoColor:    !isDevelopmentMode(),
	}

	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		f, ferr := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if ferr == nil {
			output = io.MultiWriter(output, f)
		}
	}

	log.Logger = log.Output(output).With().Timestamp().Caller().Logger()

	log.Debug().
		Str("level", level.String()).
		Bool("dev", isDevelopmentMode()).
		Msg("Logger initialized")
}

// ParseLevel parses a level name, defaulting to info for empty or unknown names.
func ParseLevel(name string) zerolog.Level {
	if name == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

func isDevelopmentMode() bool {
	return os.Getenv("DEV") == "true" ||
		os.Getenv("DEV_MODE") == "true" ||
		os.Getenv("DEVELOPMENT") == "true"
}

// Get returns the global logger instance.
func Get() zerolog.Logger {
	return log.Logger
}

// For returns a child of the global logger tagged with a component name.
// Components receive this handle through their constructors.
func For(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}
