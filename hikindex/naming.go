package hikindex

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// TimeLayout is the canonical display form of a timestamp.  It uses hyphens
// instead of colons so that it is safe in filenames, and it sorts
// lexicographically.
const TimeLayout = "2006-01-02 15-04-05"

// DayLayout is the UTC calendar day form; it is a prefix of `TimeLayout`.
const DayLayout = "2006-01-02"

// FormatTime renders a time in `TimeLayout` (UTC).
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a `TimeLayout` timestamp as UTC.
func ParseTime(value string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, value, time.UTC)
}

// SourceFileName returns the name of the container file with the given index.
func SourceFileName(sourceFileIndex int) string {
	return fmt.Sprintf("hiv%05d.mp4", sourceFileIndex)
}

// SourceFileIndexString returns the zero-padded source file index.
func (s *Segment) SourceFileIndexString() string {
	return fmt.Sprintf("%05d", s.SourceFileIndex)
}

// SourceFileSlotIndexString returns the zero-padded slot index.
func (s *Segment) SourceFileSlotIndexString() string {
	return fmt.Sprintf("%03d", s.SourceFileSlotIndex)
}

// OutputName returns the filename that this segment is extracted to.
//
// For example: "2023-11-14 22-13-20 - 2023-11-14 22-14-20 (00000-000).mp4"
func (s *Segment) OutputName(extension string) string {
	return fmt.Sprintf("%s - %s (%s-%s).%s", s.StartTimeString, s.EndTimeString, s.SourceFileIndexString(), s.SourceFileSlotIndexString(), extension)
}

// ParsedName is the parsed form of an extracted filename.
type ParsedName struct {
	StartTime           string
	EndTime             string
	SourceFileIndex     int
	SourceFileSlotIndex int
	Extension           string
}

// Day returns the UTC calendar day encoded in the start time.
func (o ParsedName) Day() string {
	return o.StartTime[0:len(DayLayout)]
}

var outputNamePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}-\d{2}-\d{2}) - (\d{4}-\d{2}-\d{2} \d{2}-\d{2}-\d{2}) \((\d{5,})-(\d{3,})\)\.([A-Za-z0-9]+)$`)

// ParseOutputName parses a filename produced by `Segment.OutputName`.
// The second return value is false when the name does not follow the
// convention.
func ParseOutputName(name string) (ParsedName, bool) {
	matches := outputNamePattern.FindStringSubmatch(name)
	if matches == nil {
		return ParsedName{}, false
	}
	if _, err := ParseTime(matches[1]); err != nil {
		return ParsedName{}, false
	}
	if _, err := ParseTime(matches[2]); err != nil {
		return ParsedName{}, false
	}
	fileIndex, err := strconv.Atoi(matches[3])
	if err != nil {
		return ParsedName{}, false
	}
	slotIndex, err := strconv.Atoi(matches[4])
	if err != nil {
		return ParsedName{}, false
	}
	return ParsedName{
		StartTime:           matches[1],
		EndTime:             matches[2],
		SourceFileIndex:     fileIndex,
		SourceFileSlotIndex: slotIndex,
		Extension:           matches[5],
	}, true
}
