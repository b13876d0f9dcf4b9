package memecli

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

func Logger(service Service) zerolog.Logger {
	return LoggerTo(os.Stdout, service)
}

func LoggerTo(w io.Writer, service Service) zerolog.Logger {
	return zerolog.New(w).With().
		Timestamp().
		Str("service", service.Name).
		Str("version", service.Version).
		Logger()
}
