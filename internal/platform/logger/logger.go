// Package logger builds the zerolog logger every process entry point
// shares.
package logger

import (
	"os"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	zpkgerrors "github.com/rs/zerolog/pkgerrors"
)

var marshalOnce sync.Once

// New returns a JSON logger writing to stdout, tagged with the service
// name. Error events called with .Stack() render a pkg/errors stack
// trace; errors without one get a stack attached at the log site.
func New(serviceName string) zerolog.Logger {
	marshalOnce.Do(func() {
		type stackTracer interface{ StackTrace() pkgerrors.StackTrace }

		zerolog.ErrorStackMarshaler = func(err error) interface{} {
			if _, ok := err.(stackTracer); !ok {
				err = pkgerrors.WithStack(err)
			}
			return zpkgerrors.MarshalStack(err)
		}
		zerolog.ErrorMarshalFunc = func(err error) interface{} {
			if _, ok := err.(stackTracer); ok {
				return err
			}
			return pkgerrors.WithStack(err)
		}
	})

	return zerolog.New(os.Stdout).With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}
