package main

import (
	"path/filepath"
	"testing"
)

func TestResolveTargetDir(t *testing.T) {
	recorderDir := t.TempDir()

	rows := []struct {
		description string
		targetDir   string
		expected    string
	}{
		{
			description: "Default",
			targetDir:   "",
			expected:    DefaultTargetDir,
		},
		{
			description: "Given",
			targetDir:   "/mnt/clips",
			expected:    "/mnt/clips",
		},
		{
			description: "Inside the recorder directory",
			targetDir:   filepath.Join(recorderDir, "out"),
			expected:    filepath.Join(recorderDir, "out"),
		},
	}
	for _, row := range rows {
		t.Run(row.description, func(t *testing.T) {
			if targetDir := resolveTargetDir(recorderDir, row.targetDir); targetDir != row.expected {
				t.Errorf("Expected %q, got %q", row.expected, targetDir)
			}
		})
	}

	if isInside(recorderDir, resolveTargetDir(recorderDir, "")) {
		t.Errorf("The default target should not be inside the recorder directory")
	}
}

func TestIsInside(t *testing.T) {
	rows := []struct {
		dir      string
		path     string
		expected bool
	}{
		{dir: "/media/nvr", path: "/media/nvr", expected: true},
		{dir: "/media/nvr", path: "/media/nvr/extracted", expected: true},
		{dir: "/media/nvr", path: "/media/nvr/a/b", expected: true},
		{dir: "/media/nvr", path: "/media/nvr2", expected: false},
		{dir: "/media/nvr", path: "/media", expected: false},
		{dir: "/media/nvr", path: "/home/user/extracted", expected: false},
		{dir: "/media/nvr", path: "/media/nvr/..extracted", expected: true},
	}
	for _, row := range rows {
		t.Run(row.path, func(t *testing.T) {
			if result := isInside(row.dir, row.path); result != row.expected {
				t.Errorf("isInside(%q, %q): expected %t, got %t", row.dir, row.path, row.expected, result)
			}
		})
	}
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv(envWorkers, "4")
	t.Setenv(envValidate, "no")
	t.Setenv(envTarget, "")

	if workers := envInt64(envWorkers, 2); workers != 4 {
		t.Errorf("Expected 4 workers, got %d", workers)
	}
	if validate := envBool(envValidate, true); validate {
		t.Errorf("Expected validation to be off")
	}
	if target := envString(envTarget, "fallback"); target != "fallback" {
		t.Errorf("Expected the fallback for an empty value, got %q", target)
	}
}
