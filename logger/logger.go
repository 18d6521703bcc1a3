// Package logger provides a small Logger facade plus a LogHarbour
// adapter so callers that only need "log a line" (rather than the full
// logharbour severity/activity API) have a minimal interface to depend
// on.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/remiges-tech/logharbour/logharbour"
)

// Logger is the minimal single-method facade.
type Logger interface {
	Log(message string)
}

// ConsoleLogger logs messages to the console.
type ConsoleLogger struct{}

func (cl *ConsoleLogger) Log(message string) {
	fmt.Println(message)
}

// NewLogger builds a Logger that writes each message as a line to w.
func NewLogger(w io.Writer) Logger {
	return &writerLogger{w: w}
}

type writerLogger struct {
	w io.Writer
}

func (l *writerLogger) Log(message string) {
	fmt.Fprintln(l.w, message)
}

// FileLogger logs messages to a file, opened append-only per call.
type FileLogger struct {
	FilePath string
}

// NewFileLogger builds a FileLogger writing to path.
func NewFileLogger(path string) Logger {
	return &FileLogger{FilePath: path}
}

func (fl *FileLogger) Log(message string) {
	if fl.FilePath == "" {
		log.Fatalln("File path cannot be empty")
	}

	file, err := os.OpenFile(fl.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatalf("Error opening log file: %v", err)
	}
	defer file.Close()

	logger := log.New(file, "", log.LstdFlags)
	logger.Println(message)
}

// LogHarbour adapts a *logharbour.Logger to the Logger facade for callers
// that don't need the full severity/activity API.
type LogHarbour struct {
	*logharbour.Logger
}

func (lh *LogHarbour) Log(message string) {
	lh.Info().LogActivity(message, nil)
}
