package hikindex

import (
	"encoding/binary"
	"fmt"
	"os"
	"sort"
	"time"
)

// Layout constants for the binary index.
const (
	HeaderSize        = 1280
	FileRecordSize    = 32
	SegmentRecordSize = 80
	SlotsPerFile      = 256
)

// TimeMask keeps the Unix-seconds part of a 64-bit time field; the high
// 32 bits are recorder flags.
const TimeMask uint64 = 0xFFFFFFFF

const (
	curFileRecOffset = 24
	curFileRecSize   = 1176
	reservedOffset   = curFileRecOffset + curFileRecSize
	reservedSize     = 76
	checksumOffset   = reservedOffset + reservedSize
)

// UnixTime converts a raw 64-bit time field to a UTC time.
func UnixTime(value uint64) time.Time {
	return time.Unix(int64(value&TimeMask), 0).UTC()
}

// ParseFile reads and decodes the given index file.
func ParseFile(filename string) (*Index, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read index file %q: %w", filename, err)
	}

	index, err := ParseBytes(contents)
	if err != nil {
		return nil, fmt.Errorf("could not parse index file %q: %w", filename, err)
	}
	index.Filename = filename
	return index, nil
}

// ParseBytes decodes the contents of an index file.
//
// Slots are visited by source file and then by slot; the resulting catalog is
// sorted by start time.
func ParseBytes(contents []byte) (*Index, error) {
	header, err := parseHeader(contents)
	if err != nil {
		return nil, err
	}
	logger.Debugf("Header: version: %d, AV files: %d, modify times: %d", header.Version, header.AVFiles, header.ModifyTimes)

	index := &Index{
		Header: *header,
	}

	offset := int64(HeaderSize) + int64(header.AVFiles)*FileRecordSize
	if offset > int64(len(contents)) {
		return nil, fmt.Errorf("segment table at offset %d is beyond the end of the data (%d bytes) for %d files", offset, len(contents), header.AVFiles)
	}

	length := int64(len(contents))
scan:
	for fileIndex := 0; fileIndex < int(header.AVFiles); fileIndex++ {
		for slotIndex := 0; slotIndex < SlotsPerFile; slotIndex++ {
			if length-offset < SegmentRecordSize {
				logger.Debugf("Only %d bytes left at offset %d; stopping at file %d slot %d.", length-offset, offset, fileIndex, slotIndex)
				break scan
			}

			record := parseSegmentRecord(contents[offset : offset+SegmentRecordSize])
			offset += SegmentRecordSize

			if record.EndTime&TimeMask == 0 {
				continue
			}

			segment := newSegment(fileIndex, slotIndex, record)
			if segment.StartOffset >= segment.EndOffset {
				logger.Warnf("File %d slot %d: empty byte range [%d, %d); skipping.", fileIndex, slotIndex, segment.StartOffset, segment.EndOffset)
				index.Skipped++
				continue
			}
			logger.Debugf("File %d slot %d: %s - %s [%d, %d)", fileIndex, slotIndex, segment.StartTimeString, segment.EndTimeString, segment.StartOffset, segment.EndOffset)

			index.Catalog = append(index.Catalog, segment)
		}
	}

	sort.SliceStable(index.Catalog, func(i, j int) bool {
		return index.Catalog[i].StartTime.Before(index.Catalog[j].StartTime)
	})

	return index, nil
}

func parseHeader(contents []byte) (*Header, error) {
	if len(contents) < HeaderSize {
		return nil, fmt.Errorf("could not read header: need %d bytes, got %d (offset %d)", HeaderSize, len(contents), len(contents))
	}

	header := &Header{
		ModifyTimes:   binary.LittleEndian.Uint64(contents[0:8]),
		Version:       binary.LittleEndian.Uint32(contents[8:12]),
		AVFiles:       binary.LittleEndian.Uint32(contents[12:16]),
		NextFileRecNo: binary.LittleEndian.Uint32(contents[16:20]),
		LastFileRecNo: binary.LittleEndian.Uint32(contents[20:24]),
		CurFileRec:    append([]byte(nil), contents[curFileRecOffset:reservedOffset]...),
		Reserved:      append([]byte(nil), contents[reservedOffset:checksumOffset]...),
		Checksum:      binary.LittleEndian.Uint32(contents[checksumOffset:HeaderSize]),
	}
	return header, nil
}

func parseSegmentRecord(buffer []byte) SegmentRecord {
	return SegmentRecord{
		Type:                 buffer[0],
		Status:               buffer[1],
		Reserved16:           binary.LittleEndian.Uint16(buffer[2:4]),
		Resolution:           binary.LittleEndian.Uint32(buffer[4:8]),
		StartTime:            binary.LittleEndian.Uint64(buffer[8:16]),
		EndTime:              binary.LittleEndian.Uint64(buffer[16:24]),
		FirstKeyFrameAbsTime: binary.LittleEndian.Uint64(buffer[24:32]),
		FirstKeyFrameStdTime: binary.LittleEndian.Uint32(buffer[32:36]),
		LastFrameStdTime:     binary.LittleEndian.Uint32(buffer[36:40]),
		StartOffset:          binary.LittleEndian.Uint32(buffer[40:44]),
		EndOffset:            binary.LittleEndian.Uint32(buffer[44:48]),
		Reserved32:           binary.LittleEndian.Uint32(buffer[48:52]),
		InfoNum:              binary.LittleEndian.Uint32(buffer[52:56]),
		InfoTypes:            binary.LittleEndian.Uint64(buffer[56:64]),
		InfoStartTime:        binary.LittleEndian.Uint32(buffer[64:68]),
		InfoEndTime:          binary.LittleEndian.Uint32(buffer[68:72]),
		InfoStartOffset:      binary.LittleEndian.Uint32(buffer[72:76]),
		InfoEndOffset:        binary.LittleEndian.Uint32(buffer[76:80]),
	}
}

func newSegment(fileIndex int, slotIndex int, record SegmentRecord) *Segment {
	startTime := UnixTime(record.StartTime)
	endTime := UnixTime(record.EndTime)
	return &Segment{
		SourceFileIndex:     fileIndex,
		SourceFileSlotIndex: slotIndex,
		SourceFileName:      SourceFileName(fileIndex),
		StartTime:           startTime,
		EndTime:             endTime,
		StartTimeString:     FormatTime(startTime),
		EndTimeString:       FormatTime(endTime),
		StartOffset:         int64(record.StartOffset),
		EndOffset:           int64(record.EndOffset),
		Record:              record,
	}
}
