package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger. Development gets a console writer and debug
// level; everything else logs JSON at info.
func New(appEnv, component string) zerolog.Logger {
	return newWithWriter(os.Stdout, appEnv, component)
}

func newWithWriter(w io.Writer, appEnv, component string) zerolog.Logger {
	level := zerolog.InfoLevel
	var out io.Writer = w
	if appEnv == "development" {
		level = zerolog.DebugLevel
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}
