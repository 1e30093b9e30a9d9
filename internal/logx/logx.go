package logx

import (
	"bytes"
	"io"
	"log"
	"os"
	"strings"
)

const (
	levelDebug = iota
	levelInfo
	levelWarn
	levelError
)

// leveledWriter drops log lines tagged below minLevel. Lines are tagged with
// a "[DEBUG]", "[INFO]", "[WARN]", "[ERROR]" or "[FATAL]" marker; untagged
// lines count as info.
type leveledWriter struct {
	minLevel int
	target   io.Writer
}

func (w *leveledWriter) Write(p []byte) (int, error) {
	if levelFromMessage(p) < w.minLevel {
		return len(p), nil
	}
	return w.target.Write(p)
}

// Setup installs the level filter on the standard logger.
func Setup(level string) {
	SetupWriter(level, os.Stdout)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(level string, target io.Writer) {
	log.SetOutput(&leveledWriter{minLevel: parseLevel(level), target: target})
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

func parseLevel(level string) int {
	switch strings.ToLower(level) {
	case "debug":
		return levelDebug
	case "warn", "warning":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func levelFromMessage(p []byte) int {
	switch {
	case bytes.Contains(p, []byte("[ERROR]")), bytes.Contains(p, []byte("[FATAL]")):
		return levelError
	case bytes.Contains(p, []byte("[WARN]")):
		return levelWarn
	case bytes.Contains(p, []byte("[DEBUG]")):
		return levelDebug
	default:
		return levelInfo
	}
}
