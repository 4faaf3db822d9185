package daymerge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tekkamanendless/nvr-segment-extractor/runlog"
	"github.com/tekkamanendless/nvr-segment-extractor/transcode"
)

// Options control a merge.
type Options struct {
	Dir          string // Where the extracted files are.
	OutputDir    string // Where the merged files go; defaults to Dir.
	ChunkLimit   int64  // Maximum bytes per merged file; zero for no limit.
	DeleteInputs bool   // Remove a chunk's inputs after it merges.
}

// Summary counts what a merge did.
type Summary struct {
	Days   int
	Chunks int
	Merged int
	Failed int
}

// Add accumulates another summary into this one.
func (s *Summary) Add(other *Summary) {
	s.Days += other.Days
	s.Chunks += other.Chunks
	s.Merged += other.Merged
	s.Failed += other.Failed
}

// Merger runs the day merge.
type Merger struct {
	Transcoder transcode.Transcoder
	Log        *runlog.Log
	Options    Options
}

func (m *Merger) outputDir() string {
	if m.Options.OutputDir != "" {
		return m.Options.OutputDir
	}
	return m.Options.Dir
}

func (m *Merger) log() *runlog.Log {
	if m.Log == nil {
		return runlog.Discard()
	}
	return m.Log
}

// Run merges every day found in the directory.
//
// Only a failure to read the directory is returned; a chunk that fails to
// merge is logged and counted.
func (m *Merger) Run(ctx context.Context) (*Summary, error) {
	files, err := Scan(m.Options.Dir)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	for _, day := range GroupByDay(files) {
		m.mergeDay(ctx, day, summary)
	}
	return summary, nil
}

// MergeDay merges the files for a single day ("YYYY-MM-DD").
func (m *Merger) MergeDay(ctx context.Context, key string) (*Summary, error) {
	files, err := Scan(m.Options.Dir)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	for _, day := range GroupByDay(files) {
		if day.Key == key {
			m.mergeDay(ctx, day, summary)
		}
	}
	return summary, nil
}

func (m *Merger) mergeDay(ctx context.Context, day *Day, summary *Summary) {
	chunks := Chunk(day.Files, m.Options.ChunkLimit)
	logger.Infof("Day %s: %d files in %d chunks.", day.Key, len(day.Files), len(chunks))

	summary.Days++
	for chunkIndex, chunk := range chunks {
		summary.Chunks++
		output, err := m.mergeChunk(ctx, day.Key, chunkIndex, chunk)
		if err != nil {
			logger.Errorf("Day %s: chunk %d: %v", day.Key, chunkIndex, err)
			summary.Failed++
			continue
		}
		logger.Infof("Day %s: chunk %d -> %s", day.Key, chunkIndex, output)
		summary.Merged++
	}
}

func (m *Merger) mergeChunk(ctx context.Context, dayKey string, chunkIndex int, chunk []File) (string, error) {
	entry := m.log().Entry(logrus.Fields{
		"day":   dayKey,
		"chunk": chunkIndex,
	})

	outputDir := m.outputDir()
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("could not create output directory %q: %w", outputDir, err)
	}
	output := filepath.Join(outputDir, OutputName(chunk))

	paths := []string{}
	for _, file := range chunk {
		paths = append(paths, file.Path)
	}

	manifest := filepath.Join(outputDir, fmt.Sprintf("concat-%s.txt", uuid.NewString()))
	if err := transcode.CreateManifest(manifest, paths); err != nil {
		entry.Errorf("Could not write manifest: %v", err)
		return "", err
	}
	defer os.Remove(manifest)

	entry.Infof("Merging %d files into %q.", len(chunk), output)
	writer := runlog.Writer(entry)
	err := m.Transcoder.Concat(ctx, manifest, output, writer)
	writer.Close()
	if err != nil {
		entry.Errorf("Merge failed: %v", err)
		removeIfEmpty(output)
		return "", fmt.Errorf("could not merge into %q: %w", output, err)
	}
	entry.Infof("Merged into %q.", output)

	if m.Options.DeleteInputs {
		for _, path := range paths {
			if err := os.Remove(path); err != nil {
				entry.Warnf("Could not delete %q: %v", path, err)
				logger.Warnf("Could not delete %q: %v", path, err)
			}
		}
	}
	return output, nil
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
