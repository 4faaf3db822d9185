package hikindex

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

const flags = uint64(0xABCD0000) << 32

func TestParseSingleSegment(t *testing.T) {
	header := &Header{Version: 1, AVFiles: 1}
	files := [][]SegmentRecord{
		{
			{StartTime: flags | 1700000000, EndTime: flags | 1700000060, StartOffset: 1000, EndOffset: 5000},
		},
	}

	index, err := ParseBytes(Encode(header, files))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(index.Catalog) != 1 {
		t.Fatalf("Expected 1 segment, got %d: %s", len(index.Catalog), spew.Sdump(index.Catalog))
	}

	segment := index.Catalog[0]
	if segment.StartOffset != 1000 || segment.EndOffset != 5000 {
		t.Errorf("Wrong byte range: [%d, %d)", segment.StartOffset, segment.EndOffset)
	}
	if segment.StartTime.Unix() != 1700000000 {
		t.Errorf("Start time was not masked: %d", segment.StartTime.Unix())
	}
	if segment.EndTime.Unix() != 1700000060 {
		t.Errorf("End time was not masked: %d", segment.EndTime.Unix())
	}
	if segment.StartTimeString != "2023-11-14 22-13-20" {
		t.Errorf("Wrong start time string: %q", segment.StartTimeString)
	}
	if segment.EndTimeString != "2023-11-14 22-14-20" {
		t.Errorf("Wrong end time string: %q", segment.EndTimeString)
	}
	if segment.SourceFileName != "hiv00000.mp4" {
		t.Errorf("Wrong source file name: %q", segment.SourceFileName)
	}
	if segment.Record.StartTime != flags|1700000000 {
		t.Errorf("The raw record should keep the flags: %x", segment.Record.StartTime)
	}
	if index.Header.AVFiles != 1 || index.Header.Version != 1 {
		t.Errorf("Wrong header: %s", spew.Sdump(index.Header))
	}
}

func TestParseSkipsUnusedSlots(t *testing.T) {
	header := &Header{AVFiles: 2}
	files := [][]SegmentRecord{
		{
			{StartTime: 1700000000, EndTime: 0, StartOffset: 0, EndOffset: 100},
			{StartTime: 1700000100, EndTime: flags, StartOffset: 100, EndOffset: 200}, // Only flags; the time is zero.
			{StartTime: 1700000200, EndTime: 1700000300, StartOffset: 200, EndOffset: 300},
		},
		{
			{},
			{StartTime: 1700000400, EndTime: 1700000500, StartOffset: 0, EndOffset: 100},
		},
	}

	index, err := ParseBytes(Encode(header, files))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(index.Catalog) != 2 {
		t.Fatalf("Expected 2 segments, got %d: %s", len(index.Catalog), spew.Sdump(index.Catalog))
	}
	if index.Catalog[0].SourceFileIndex != 0 || index.Catalog[0].SourceFileSlotIndex != 2 {
		t.Errorf("Wrong first segment: %d-%d", index.Catalog[0].SourceFileIndex, index.Catalog[0].SourceFileSlotIndex)
	}
	if index.Catalog[1].SourceFileIndex != 1 || index.Catalog[1].SourceFileSlotIndex != 1 {
		t.Errorf("Wrong second segment: %d-%d", index.Catalog[1].SourceFileIndex, index.Catalog[1].SourceFileSlotIndex)
	}
	if index.Catalog[1].SourceFileName != "hiv00001.mp4" {
		t.Errorf("Wrong source file name: %q", index.Catalog[1].SourceFileName)
	}
}

func TestParseSortsByStartTime(t *testing.T) {
	header := &Header{AVFiles: 3}
	files := [][]SegmentRecord{
		{
			{StartTime: 1700000500, EndTime: 1700000600, StartOffset: 0, EndOffset: 10},
			{StartTime: 1700000100, EndTime: 1700000200, StartOffset: 10, EndOffset: 20},
		},
		{
			{StartTime: 1700000300, EndTime: 1700000400, StartOffset: 0, EndOffset: 10},
		},
		{
			{StartTime: flags | 1700000000, EndTime: 1700000050, StartOffset: 0, EndOffset: 10},
			{StartTime: 1700000900, EndTime: 1700000950, StartOffset: 10, EndOffset: 20},
		},
	}

	index, err := ParseBytes(Encode(header, files))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := []int64{1700000000, 1700000100, 1700000300, 1700000500, 1700000900}
	if len(index.Catalog) != len(expected) {
		t.Fatalf("Expected %d segments, got %d", len(expected), len(index.Catalog))
	}
	for i, segment := range index.Catalog {
		if segment.StartTime.Unix() != expected[i] {
			t.Errorf("Segment %d: expected start %d, got %d", i, expected[i], segment.StartTime.Unix())
		}
	}
}

func TestParseSkipsEmptyByteRanges(t *testing.T) {
	header := &Header{AVFiles: 1}
	files := [][]SegmentRecord{
		{
			{StartTime: 1700000000, EndTime: 1700000060, StartOffset: 500, EndOffset: 500},
			{StartTime: 1700000100, EndTime: 1700000160, StartOffset: 900, EndOffset: 100},
			{StartTime: 1700000200, EndTime: 1700000260, StartOffset: 100, EndOffset: 900},
		},
	}

	index, err := ParseBytes(Encode(header, files))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(index.Catalog) != 1 {
		t.Fatalf("Expected 1 segment, got %d", len(index.Catalog))
	}
	if index.Skipped != 2 {
		t.Errorf("Expected 2 skipped slots, got %d", index.Skipped)
	}
}

func TestParseTruncatedTrailingData(t *testing.T) {
	header := &Header{AVFiles: 1}
	files := [][]SegmentRecord{
		{
			{StartTime: 1700000000, EndTime: 1700000060, StartOffset: 0, EndOffset: 100},
			{StartTime: 1700000100, EndTime: 1700000160, StartOffset: 100, EndOffset: 200},
		},
	}
	contents := Encode(header, files)

	// Keep the first record and half of the second one.
	length := HeaderSize + FileRecordSize + SegmentRecordSize + SegmentRecordSize/2
	index, err := ParseBytes(contents[0:length])
	if err != nil {
		t.Fatalf("Truncated trailing data should not be an error: %v", err)
	}
	if len(index.Catalog) != 1 {
		t.Fatalf("Expected 1 segment, got %d", len(index.Catalog))
	}
}

func TestParseErrors(t *testing.T) {
	rows := []struct {
		description string
		input       []byte
		contains    string
	}{
		{
			description: "Empty",
			input:       []byte{},
			contains:    "offset 0",
		},
		{
			description: "Short header",
			input:       make([]byte, HeaderSize-1),
			contains:    "offset 1279",
		},
		{
			description: "File table past the end",
			input:       (&Header{AVFiles: 4}).Bytes(),
			contains:    "offset 1408",
		},
		{
			description: "Huge file count",
			input:       (&Header{AVFiles: 0xFFFFFFFF}).Bytes(),
			contains:    "beyond the end",
		},
	}
	for _, row := range rows {
		t.Run(row.description, func(t *testing.T) {
			_, err := ParseBytes(row.input)
			if err == nil {
				t.Fatalf("Expected an error")
			}
			if !strings.Contains(err.Error(), row.contains) {
				t.Errorf("Expected the error to contain %q: %v", row.contains, err)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()

	_, err := ParseFile(filepath.Join(dir, "index00.bin"))
	if err == nil {
		t.Fatalf("Expected an error for a missing file")
	}

	header := &Header{AVFiles: 1, Checksum: 0xDEADBEEF}
	files := [][]SegmentRecord{{{StartTime: 1700000000, EndTime: 1700000060, StartOffset: 0, EndOffset: 100}}}
	filename := filepath.Join(dir, "index00.bin")
	if err := os.WriteFile(filename, Encode(header, files), 0644); err != nil {
		t.Fatalf("Could not write index: %v", err)
	}

	index, err := ParseFile(filename)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if index.Filename != filename {
		t.Errorf("Wrong filename: %q", index.Filename)
	}
	if index.Header.Checksum != 0xDEADBEEF {
		t.Errorf("Wrong checksum: %x", index.Header.Checksum)
	}
	if len(index.Catalog) != 1 {
		t.Errorf("Expected 1 segment, got %d", len(index.Catalog))
	}
}
