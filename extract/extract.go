// Package extract copies recorded segments out of the recorder's container
// files and remuxes them into standalone clips.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tekkamanendless/nvr-segment-extractor/daymerge"
	"github.com/tekkamanendless/nvr-segment-extractor/hikindex"
	"github.com/tekkamanendless/nvr-segment-extractor/runlog"
	"github.com/tekkamanendless/nvr-segment-extractor/transcode"
)

// DefaultWorkers is the default number of segments extracted at once.
const DefaultWorkers = 2

// DefaultExtension is the output container extension.
const DefaultExtension = "mp4"

// RawExtension is the extension of the intermediate program stream file.
const RawExtension = "ps"

// ErrTargetUnavailable means that nothing can be written to the target
// directory; every remaining segment would fail the same way.
var ErrTargetUnavailable = errors.New("target directory is unavailable")

var logger = logrus.New()

// SetLogLevel sets the log level for this package.
func SetLogLevel(level logrus.Level) {
	logger.SetLevel(level)
}

// Options control an extraction run.
type Options struct {
	SourceDir string // Where the hivNNNNN.mp4 files are.
	TargetDir string // Where the clips go.

	// From and To select segments by start time, as `hikindex.TimeLayout`
	// strings; see `hikindex.Catalog.Filter`.
	From string
	To   string

	Workers   int
	Replace   bool
	Extension string
	KeepRaw   bool // Keep the intermediate file even when the remux succeeds.

	MergeDays bool
	Merge     daymerge.Options // Dir is always TargetDir.
}

// Extractor runs extractions.
type Extractor struct {
	Transcoder transcode.Transcoder
	Log        *runlog.Log
	Options    Options
}

func (e *Extractor) extension() string {
	if e.Options.Extension == "" {
		return DefaultExtension
	}
	return strings.TrimPrefix(e.Options.Extension, ".")
}

func (e *Extractor) workers() int {
	if e.Options.Workers <= 0 {
		return DefaultWorkers
	}
	return e.Options.Workers
}

func (e *Extractor) log() *runlog.Log {
	if e.Log == nil {
		return runlog.Discard()
	}
	return e.Log
}

// OutputPath returns where the given segment is extracted to.
func (e *Extractor) OutputPath(segment *hikindex.Segment) string {
	return filepath.Join(e.Options.TargetDir, segment.OutputName(e.extension()))
}

// RawPath returns the intermediate file for the given segment.  Its name does
// not parse as an extracted clip, so a leftover one is never merged.
func (e *Extractor) RawPath(segment *hikindex.Segment) string {
	return e.OutputPath(segment) + "." + RawExtension
}

// ExtractSegment extracts a single segment and returns the output path.
//
// If the output already exists and `Replace` is not set, nothing is done and
// `skipped` is true.
func (e *Extractor) ExtractSegment(ctx context.Context, worker int, segment *hikindex.Segment) (output string, skipped bool, err error) {
	output = e.OutputPath(segment)
	entry := e.log().Entry(logrus.Fields{
		"worker":  worker,
		"segment": fmt.Sprintf("%s-%s", segment.SourceFileIndexString(), segment.SourceFileSlotIndexString()),
		"start":   segment.StartTimeString,
	})

	if _, statErr := os.Stat(output); statErr == nil {
		if !e.Options.Replace {
			entry.Infof("Output %q already exists; skipping.", output)
			return output, true, nil
		}
		if err := os.Remove(output); err != nil {
			entry.Errorf("Could not remove existing output: %v", err)
			return output, false, fmt.Errorf("could not remove existing output %q: %w", output, err)
		}
	}

	raw := e.RawPath(segment)
	source := filepath.Join(e.Options.SourceDir, segment.SourceFileName)
	entry.Infof("Copying [%d, %d) of %q to %q.", segment.StartOffset, segment.EndOffset, source, raw)
	if err := copyRange(source, raw, segment.StartOffset, segment.EndOffset); err != nil {
		entry.Errorf("Copy failed: %v", err)
		return output, false, err
	}

	entry.Infof("Remuxing into %q.", output)
	writer := runlog.Writer(entry)
	err = e.Transcoder.Remux(ctx, raw, output, writer)
	writer.Close()
	if err != nil {
		entry.Errorf("Remux failed; keeping %q: %v", raw, err)
		removeIfEmpty(output)
		return output, false, fmt.Errorf("could not remux %q: %w", raw, err)
	}

	if !e.Options.KeepRaw {
		if err := os.Remove(raw); err != nil {
			entry.Warnf("Could not remove %q: %v", raw, err)
		}
	}
	entry.Infof("Extracted %q.", output)
	return output, false, nil
}

// copyRange copies [start, end) of the source file into a new destination file.
func copyRange(source string, destination string, start int64, end int64) error {
	in, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("could not open source %q: %w", source, err)
	}
	defer in.Close()

	out, err := os.Create(destination)
	if err != nil {
		return fmt.Errorf("could not create %q: %w: %w", destination, ErrTargetUnavailable, err)
	}

	count, err := io.Copy(out, io.NewSectionReader(in, start, end-start))
	closeErr := out.Close()
	if err != nil {
		return fmt.Errorf("could not copy from %q: %w", source, err)
	}
	if closeErr != nil {
		return fmt.Errorf("could not close %q: %w", destination, closeErr)
	}
	if count != end-start {
		return fmt.Errorf("short read from %q: got %d bytes, expected %d", source, count, end-start)
	}
	return nil
}

// removeIfEmpty deletes a zero-byte artifact left by a failed transcoder call.
func removeIfEmpty(filename string) {
	fileInfo, err := os.Stat(filename)
	if err != nil {
		return
	}
	if fileInfo.Size() == 0 {
		if err := os.Remove(filename); err != nil {
			logger.Warnf("Could not remove empty output %q: %v", filename, err)
		}
	}
}
