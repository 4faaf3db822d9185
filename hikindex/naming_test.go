package hikindex

import (
	"testing"
	"time"
)

func TestOutputName(t *testing.T) {
	segment := newSegment(0, 0, SegmentRecord{StartTime: 1700000000, EndTime: 1700000060, StartOffset: 1000, EndOffset: 5000})
	name := segment.OutputName("mp4")
	if name != "2023-11-14 22-13-20 - 2023-11-14 22-14-20 (00000-000).mp4" {
		t.Errorf("Wrong name: %q", name)
	}

	segment = newSegment(12, 255, SegmentRecord{StartTime: 1717286400, EndTime: 1717290000, StartOffset: 1, EndOffset: 2})
	name = segment.OutputName("mkv")
	if name != "2024-06-02 00-00-00 - 2024-06-02 01-00-00 (00012-255).mkv" {
		t.Errorf("Wrong name: %q", name)
	}
}

func TestFormatTimeIsUTC(t *testing.T) {
	location := time.FixedZone("UTC+5", 5*60*60)
	value := time.Date(2024, 6, 2, 3, 0, 0, 0, location)
	if formatted := FormatTime(value); formatted != "2024-06-01 22-00-00" {
		t.Errorf("Wrong time: %q", formatted)
	}

	parsed, err := ParseTime("2024-06-01 22-00-00")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !parsed.Equal(value) {
		t.Errorf("Expected %v, got %v", value, parsed)
	}
}

func TestParseOutputName(t *testing.T) {
	name, ok := ParseOutputName("2023-11-14 22-13-20 - 2023-11-14 22-14-20 (00003-017).mp4")
	if !ok {
		t.Fatalf("Expected the name to parse")
	}
	if name.StartTime != "2023-11-14 22-13-20" || name.EndTime != "2023-11-14 22-14-20" {
		t.Errorf("Wrong times: %q, %q", name.StartTime, name.EndTime)
	}
	if name.SourceFileIndex != 3 || name.SourceFileSlotIndex != 17 {
		t.Errorf("Wrong indices: %d-%d", name.SourceFileIndex, name.SourceFileSlotIndex)
	}
	if name.Extension != "mp4" {
		t.Errorf("Wrong extension: %q", name.Extension)
	}
	if name.Day() != "2023-11-14" {
		t.Errorf("Wrong day: %q", name.Day())
	}

	for _, invalid := range []string{
		"",
		"hiv00000.mp4",
		"2023-11-14 22-13-20 - 2023-11-14 22-14-20 (merged).mp4",
		"2023-11-14 22-13-20 - 2023-11-14 22-14-20 (00003-017).mp4.ps",
		"2023-11-14 22:13:20 - 2023-11-14 22:14:20 (00003-017).mp4",
		"2023-13-14 22-13-20 - 2023-11-14 22-14-20 (00003-017).mp4",
		"run-2023-11-14 22-13-20.log",
	} {
		if _, ok := ParseOutputName(invalid); ok {
			t.Errorf("Expected %q not to parse", invalid)
		}
	}
}
