package transcode

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestRemuxArgs(t *testing.T) {
	rows := []struct {
		description string
		videoTag    string
		expected    []string
	}{
		{
			description: "Default tag",
			expected:    []string{"-hide_banner", "-y", "-i", "in.ps", "-map", "0:v", "-map", "0:a?", "-c:v", "copy", "-c:a", "copy", "-tag:v", "hvc1", "out.mp4"},
		},
		{
			description: "Custom tag",
			videoTag:    "avc1",
			expected:    []string{"-hide_banner", "-y", "-i", "in.ps", "-map", "0:v", "-map", "0:a?", "-c:v", "copy", "-c:a", "copy", "-tag:v", "avc1", "out.mp4"},
		},
		{
			description: "No tag",
			videoTag:    "-",
			expected:    []string{"-hide_banner", "-y", "-i", "in.ps", "-map", "0:v", "-map", "0:a?", "-c:v", "copy", "-c:a", "copy", "out.mp4"},
		},
	}
	for _, row := range rows {
		t.Run(row.description, func(t *testing.T) {
			ffmpeg := &FFmpeg{VideoTag: row.videoTag}
			args := ffmpeg.RemuxArgs("in.ps", "out.mp4")
			if !reflect.DeepEqual(args, row.expected) {
				t.Errorf("Expected %v, got %v", row.expected, args)
			}
		})
	}
}

func TestRemuxArgsMapsOnlyAudioAndVideo(t *testing.T) {
	ffmpeg := &FFmpeg{}
	args := ffmpeg.RemuxArgs("in.ps", "out.mp4")

	maps := []string{}
	for i, arg := range args {
		if arg == "-map" && i+1 < len(args) {
			maps = append(maps, args[i+1])
		}
	}
	expected := []string{"0:v", "0:a?"}
	if !reflect.DeepEqual(maps, expected) {
		t.Errorf("Expected maps %v, got %v", expected, maps)
	}
	for _, arg := range args {
		if arg == "-c" || arg == "-c:d" || arg == "-c:s" {
			t.Errorf("Unexpected codec option %q in %v", arg, args)
		}
	}
}

func TestConcatArgs(t *testing.T) {
	ffmpeg := &FFmpeg{}
	args := ffmpeg.ConcatArgs("list.txt", "out.mp4")
	expected := []string{"-hide_banner", "-y", "-f", "concat", "-safe", "0", "-i", "list.txt", "-c", "copy", "out.mp4"}
	if !reflect.DeepEqual(args, expected) {
		t.Errorf("Expected %v, got %v", expected, args)
	}
}

func TestParseVersion(t *testing.T) {
	rows := []struct {
		input    string
		expected string
	}{
		{input: "ffmpeg version 6.1.1-3ubuntu5 Copyright (c) 2000-2023 the FFmpeg developers\nbuilt with gcc 13", expected: "6.1.1"},
		{input: "ffmpeg version n7.0 Copyright (c) 2000-2024 the FFmpeg developers", expected: "7.0.0"},
		{input: "ffmpeg version 4.4.2-0ubuntu0.22.04.1 Copyright", expected: "4.4.2"},
		{input: "ffmpeg version 3.4.8 Copyright", expected: "3.4.8"},
	}
	for _, row := range rows {
		t.Run(row.expected, func(t *testing.T) {
			v, err := ParseVersion(row.input)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if v.String() != row.expected {
				t.Errorf("Expected %s, got %s", row.expected, v.String())
			}
		})
	}

	if _, err := ParseVersion("ffmpeg version N-112345-gabcdef Copyright"); err == nil {
		t.Errorf("Expected an error for a development build")
	}

	old, _ := ParseVersion("ffmpeg version 3.4.8")
	if !old.LessThan(MinimumVersion) {
		t.Errorf("3.4.8 should be older than %v", MinimumVersion)
	}
}

func TestWriteManifest(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		filepath.Join(dir, "2024-06-01 00-00-00 - 2024-06-01 00-01-00 (00000-000).mp4"),
		filepath.Join(dir, "it's here.mp4"),
	}

	var buffer bytes.Buffer
	if err := WriteManifest(&buffer, paths); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buffer.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d: %q", len(lines), buffer.String())
	}
	if lines[0] != "file '"+paths[0]+"'" {
		t.Errorf("Wrong line: %q", lines[0])
	}
	if lines[1] != "file '"+filepath.Join(dir, `it'\''s here.mp4`)+"'" {
		t.Errorf("Wrong line: %q", lines[1])
	}
}

func TestCreateManifestRelativePaths(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "list.txt")
	if err := CreateManifest(filename, []string{"relative.mp4"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	contents, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("Could not read manifest: %v", err)
	}
	absolutePath, _ := filepath.Abs("relative.mp4")
	if string(contents) != "file '"+absolutePath+"'\n" {
		t.Errorf("Wrong manifest: %q", string(contents))
	}
}
