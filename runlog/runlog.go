// Package runlog writes the per-run log file.
//
// Every extraction run appends to exactly one file.  Entries from concurrent
// workers are written one line at a time, never interleaved.
package runlog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tekkamanendless/nvr-segment-extractor/hikindex"
)

// Log is an open run log.
type Log struct {
	Filename string

	handle *os.File
	logger *logrus.Logger
}

// Filename returns the name of the run log for a run that started at the given time.
func Filename(started time.Time) string {
	return fmt.Sprintf("run-%s.log", hikindex.FormatTime(started))
}

// Open creates (or appends to) the run log in the given directory.
func Open(dir string, started time.Time) (*Log, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create log directory %q: %w", dir, err)
	}

	filename := filepath.Join(dir, Filename(started))
	handle, err := os.OpenFile(filename, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("could not open run log %q: %w", filename, err)
	}

	logger := logrus.New()
	logger.SetOutput(handle)
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&LineFormatter{
		TimestampFormat: time.RFC3339,
	})

	return &Log{
		Filename: filename,
		handle:   handle,
		logger:   logger,
	}, nil
}

// Discard returns a log that throws everything away.
func Discard() *Log {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &Log{logger: logger}
}

// Entry returns an entry carrying the given context fields.
func (l *Log) Entry(fields logrus.Fields) *logrus.Entry {
	return l.logger.WithFields(fields)
}

// Close closes the underlying file.
func (l *Log) Close() error {
	if l.handle == nil {
		return nil
	}
	return l.handle.Close()
}

// LineWriter turns a byte stream (such as the output of an external process)
// into one log entry per line.
type LineWriter struct {
	entry *logrus.Entry

	mutex   sync.Mutex
	pending []byte
}

// Writer returns a `LineWriter` that logs to the given entry.
func Writer(entry *logrus.Entry) *LineWriter {
	return &LineWriter{entry: entry}
}

// Write implements `io.Writer`.
func (w *LineWriter) Write(p []byte) (int, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.pending = append(w.pending, p...)
	for {
		index := bytes.IndexAny(w.pending, "\r\n")
		if index < 0 {
			break
		}
		line := w.pending[0:index]
		if len(bytes.TrimSpace(line)) > 0 {
			w.entry.Info(string(line))
		}
		w.pending = w.pending[index+1:]
	}
	return len(p), nil
}

// Close flushes a trailing partial line.
func (w *LineWriter) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if len(bytes.TrimSpace(w.pending)) > 0 {
		w.entry.Info(string(w.pending))
	}
	w.pending = nil
	return nil
}
