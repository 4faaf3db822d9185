package hikindex

import (
	"time"

	"github.com/tekkamanendless/nvr-segment-extractor/mpegps"
)

// Index is everything decoded from an index file.
type Index struct {
	Filename string
	Header   Header
	Catalog  Catalog

	// Skipped is the number of used slots that were dropped because their byte
	// range was empty or inverted.
	Skipped int
}

// Header is the fixed leading region of an index file.
type Header struct {
	ModifyTimes   uint64
	Version       uint32
	AVFiles       uint32 // Number of source container files.
	NextFileRecNo uint32
	LastFileRecNo uint32
	CurFileRec    []byte // Opaque.
	Reserved      []byte
	Checksum      uint32
}

// SegmentRecord is a single 80-byte slot, exactly as stored.
//
// The 64-bit time fields still carry the recorder flags in their high 32 bits;
// use `UnixTime` to get the timestamp.
type SegmentRecord struct {
	Type                 uint8
	Status               uint8
	Reserved16           uint16
	Resolution           uint32
	StartTime            uint64
	EndTime              uint64
	FirstKeyFrameAbsTime uint64
	FirstKeyFrameStdTime uint32
	LastFrameStdTime     uint32
	StartOffset          uint32
	EndOffset            uint32
	Reserved32           uint32
	InfoNum              uint32
	InfoTypes            uint64
	InfoStartTime        uint32
	InfoEndTime          uint32
	InfoStartOffset      uint32
	InfoEndOffset        uint32
}

// Segment is one recorded clip, derived from a used slot.
type Segment struct {
	SourceFileIndex     int
	SourceFileSlotIndex int
	SourceFileName      string

	StartTime       time.Time
	EndTime         time.Time
	StartTimeString string
	EndTimeString   string

	// The byte range is [StartOffset, EndOffset).
	StartOffset int64
	EndOffset   int64

	Record SegmentRecord

	// Validation is only set when the catalog has been validated.
	Validation *mpegps.Result
}

// Size returns the length of the byte range.
func (s *Segment) Size() int64 {
	return s.EndOffset - s.StartOffset
}

// Duration returns the length of the recording.
func (s *Segment) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// Day returns the UTC calendar day of the segment start, as "YYYY-MM-DD".
func (s *Segment) Day() string {
	return s.StartTime.Format(DayLayout)
}
