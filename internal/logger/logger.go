// ABOUTME: Structured logging configuration using zerolog
// ABOUTME: Init sets the global logger's level, format and sink (stderr or a debug.log file)

package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls Init. Empty values fall back to warn/text/stderr.
type Options struct {
	// Level: debug, info, warn, error
	Level string
	// Format: text, json
	Format string
	// FileDir, when set, sends logs to <FileDir>/debug.log instead of stderr
	// so they don't interfere with the terminal UI
	FileDir string
}

var (
	mu      sync.Mutex
	logFile *os.File
)

// Init configures the global zerolog logger
func Init(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()

	var out io.Writer = os.Stderr
	if opts.FileDir != "" {
		f, err := openLogFile(opts.FileDir)
		if err != nil {
			return err
		}
		logFile = f
		out = f
	}

	log.Logger = New(out, opts.Level, opts.Format)
	zerolog.SetGlobalLevel(parseLevel(opts.Level))
	return nil
}

// New builds a logger writing to out
func New(out io.Writer, level, format string) zerolog.Logger {
	if strings.ToLower(format) != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen, NoColor: out != io.Writer(os.Stderr)}
	}
	return zerolog.New(out).Level(parseLevel(level)).With().Timestamp().Logger()
}

// Close flushes and closes the debug log file, if any
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
}

func closeLocked() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

func openLogFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "debug.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("open debug log: %w", err)
	}
	return f, nil
}

// parseLevel converts a string log level to a zerolog.Level
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.WarnLevel
	}
}
