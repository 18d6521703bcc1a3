package logger

import (
	"io"

	"github.com/remiges-tech/logharbour/logharbour"
)

// LoadLogger builds a *logharbour.Logger tagged with appName, writing to
// w (os.Stdout in production, a buffer in tests).
func LoadLogger(appName string, w io.Writer) *logharbour.Logger {
	return logharbour.NewLogger(&logharbour.LoggerContext{}, appName, w)
}
