// Package logging holds the process-wide log sink.
//
// Init is called once at startup with the log file path and the minimum
// severity. Everything else in the process (stdlib log.Printf, gin's access
// log and recovery output) ends up in the same file through L and Writer.
package logging

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	global  = slog.New(slog.NewTextHandler(io.Discard, nil))
	logFile *os.File
	logPath string
)

// Init opens path for appending and installs a text handler filtering below
// minLevel. The returned function closes the file and resets the sink.
func Init(path string, minLevel slog.Level) (func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	l := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: minLevel}))

	mu.Lock()
	prev := logFile
	global = l
	logFile = f
	logPath = path
	mu.Unlock()
	if prev != nil {
		prev.Close()
	}

	// routes stdlib log.Printf through the same handler at info level
	slog.SetDefault(l)

	cleanup := func() error {
		mu.Lock()
		defer mu.Unlock()
		if logFile != f {
			return nil
		}
		cerr := f.Close()
		global = slog.New(slog.NewTextHandler(io.Discard, nil))
		logFile = nil
		logPath = ""
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
		log.SetOutput(os.Stderr)
		return cerr
	}
	return cleanup, nil
}

// L returns the current process-wide logger
func L() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Path returns the file the sink writes to, empty before Init
func Path() string {
	mu.RLock()
	defer mu.RUnlock()
	return logPath
}

// IsReady reports whether Init has run and the sink is open
func IsReady() error {
	mu.RLock()
	defer mu.RUnlock()
	if logFile == nil || logPath == "" {
		return errors.New("logger not initialized")
	}
	return nil
}

// Writer adapts the sink to an io.Writer. Every Write becomes one record at
// level with the trailing newline stripped.
func Writer(level slog.Level) io.Writer {
	return levelWriter{level: level}
}

type levelWriter struct {
	level slog.Level
}

func (w levelWriter) Write(p []byte) (int, error) {
	msg := string(bytes.TrimRight(p, "\r\n"))
	if msg != "" {
		L().Log(context.Background(), w.level, msg)
	}
	return len(p), nil
}
