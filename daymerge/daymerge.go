// Package daymerge concatenates extracted clips into one file per UTC day.
//
// The inputs are whatever extracted files are on disk at the time; they are
// recognized by the extraction naming convention.
package daymerge

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/tekkamanendless/nvr-segment-extractor/hikindex"
)

var logger = logrus.New()

// SetLogLevel sets the log level for this package.
func SetLogLevel(level logrus.Level) {
	logger.SetLevel(level)
}

// File is an extracted clip on disk.
type File struct {
	Path string
	Name hikindex.ParsedName
	Size int64
}

// Day holds the files whose start time falls on one UTC day, sorted by
// filename (and therefore by time).
type Day struct {
	Key   string // "YYYY-MM-DD"
	Files []File
}

// Scan lists the extracted files in a directory.  Anything that does not
// follow the extraction naming convention (including merged output) is
// ignored.
func Scan(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("could not read directory %q: %w", dir, err)
	}

	files := []File{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ok := hikindex.ParseOutputName(entry.Name())
		if !ok {
			continue
		}
		fileInfo, err := entry.Info()
		if err != nil {
			logger.Warnf("Could not stat %q: %v", entry.Name(), err)
			continue
		}
		files = append(files, File{
			Path: filepath.Join(dir, entry.Name()),
			Name: name,
			Size: fileInfo.Size(),
		})
	}
	return files, nil
}

// GroupByDay buckets the files by the UTC day of their encoded start time.
// Days are returned in ascending order.
func GroupByDay(files []File) []*Day {
	dayMap := map[string]*Day{}
	for _, file := range files {
		key := file.Name.Day()
		day, ok := dayMap[key]
		if !ok {
			day = &Day{Key: key}
			dayMap[key] = day
		}
		day.Files = append(day.Files, file)
	}

	days := []*Day{}
	for _, day := range dayMap {
		sort.Slice(day.Files, func(i, j int) bool {
			return filepath.Base(day.Files[i].Path) < filepath.Base(day.Files[j].Path)
		})
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Key < days[j].Key
	})
	return days
}

// Chunk splits the files into contiguous runs whose total size does not
// exceed the limit.
//
// A file is added to the current chunk unless that would push it over the
// limit, in which case it starts a new chunk.  A file larger than the limit
// gets a chunk to itself.  A limit of zero or less means a single chunk.
func Chunk(files []File, limit int64) [][]File {
	if len(files) == 0 {
		return nil
	}
	if limit <= 0 {
		return [][]File{files}
	}

	chunks := [][]File{}
	var current []File
	var currentSize int64
	for _, file := range files {
		if len(current) > 0 && currentSize+file.Size > limit {
			chunks = append(chunks, current)
			current = nil
			currentSize = 0
		}
		current = append(current, file)
		currentSize += file.Size
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}

// OutputName returns the merged filename for a chunk.
func OutputName(chunk []File) string {
	first := chunk[0].Name
	last := chunk[len(chunk)-1].Name
	return fmt.Sprintf("%s - %s (merged).%s", first.StartTime, last.EndTime, first.Extension)
}
