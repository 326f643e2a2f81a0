package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// InitLogger returns a console logger tagged with app. Relay components take
// it through their options; the global logger is left to the logging package.
func InitLogger(app string) zerolog.Logger {
	return NewLogger(os.Stdout, app)
}

func NewLogger(out io.Writer, app string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).With().Timestamp().Str("app", app).Logger()
}
