package hikindex

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tekkamanendless/nvr-segment-extractor/mpegps"
)

// Validate checks the start of every segment against its source container
// and returns the segments that look like genuine recordings, along with the
// number that were rejected.
//
// Each segment's `Validation` field is set.  The source containers are only
// ever opened for reading.
func (c Catalog) Validate(sourceDir string, windowSize int) (Catalog, int) {
	if windowSize <= 0 {
		windowSize = mpegps.WindowSize
	}

	handles := map[int]*os.File{}
	sizes := map[int]int64{}
	defer func() {
		for _, handle := range handles {
			if handle != nil {
				handle.Close()
			}
		}
	}()

	valid := Catalog{}
	rejected := 0
	for _, segment := range c {
		handle, ok := handles[segment.SourceFileIndex]
		if !ok {
			filename := filepath.Join(sourceDir, segment.SourceFileName)
			var err error
			handle, err = os.Open(filename)
			if err != nil {
				logger.Warnf("Could not open source file %q: %v", filename, err)
				handle = nil
			} else {
				fileInfo, err := handle.Stat()
				if err != nil {
					logger.Warnf("Could not stat source file %q: %v", filename, err)
					handle.Close()
					handle = nil
				} else {
					sizes[segment.SourceFileIndex] = fileInfo.Size()
				}
			}
			handles[segment.SourceFileIndex] = handle
		}

		result := validateSegment(handle, sizes[segment.SourceFileIndex], segment, windowSize)
		segment.Validation = &result
		if !result.Valid {
			logger.Debugf("Rejecting %s (%s-%s): %s", segment.StartTimeString, segment.SourceFileIndexString(), segment.SourceFileSlotIndexString(), result.Reason)
			rejected++
			continue
		}
		valid = append(valid, segment)
	}

	logger.Infof("Validated %d segments: %d valid, %d rejected.", len(c), len(valid), rejected)
	return valid, rejected
}

func validateSegment(handle *os.File, size int64, segment *Segment, windowSize int) mpegps.Result {
	if handle == nil {
		return mpegps.Result{
			Reason:  fmt.Sprintf("source file %s is not readable", segment.SourceFileName),
			Details: map[string]string{},
		}
	}
	if segment.EndOffset > size {
		return mpegps.Result{
			Reason:  fmt.Sprintf("byte range [%d, %d) runs past the end of %s (%d bytes)", segment.StartOffset, segment.EndOffset, segment.SourceFileName, size),
			Details: map[string]string{},
		}
	}

	window, err := ReadWindow(handle, segment, windowSize)
	if err != nil {
		return mpegps.Result{
			Reason:  fmt.Sprintf("could not read the start of the segment: %v", err),
			Details: map[string]string{},
		}
	}
	return mpegps.Validate(window)
}

// ReadWindow reads up to `windowSize` bytes at the segment's start offset,
// without going past its end offset.
func ReadWindow(reader io.ReaderAt, segment *Segment, windowSize int) ([]byte, error) {
	length := int64(windowSize)
	if segment.Size() < length {
		length = segment.Size()
	}
	buffer := make([]byte, length)
	count, err := reader.ReadAt(buffer, segment.StartOffset)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buffer[0:count], nil
}
