package transcode

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// WriteManifest writes a concat manifest, one `file '<path>'` line per input.
//
// Paths are made absolute and single quotes are escaped the way the concat
// demuxer expects.
func WriteManifest(writer io.Writer, paths []string) error {
	for _, path := range paths {
		absolutePath, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("could not get the absolute path of %q: %w", path, err)
		}
		line := fmt.Sprintf("file '%s'\n", strings.ReplaceAll(absolutePath, "'", `'\''`))
		if _, err := io.WriteString(writer, line); err != nil {
			return fmt.Errorf("could not write to the manifest: %w", err)
		}
	}
	return nil
}

// CreateManifest writes a manifest file at the given path.
func CreateManifest(filename string, paths []string) error {
	handle, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create manifest %q: %w", filename, err)
	}
	err = WriteManifest(handle, paths)
	closeErr := handle.Close()
	if err != nil {
		return err
	}
	if closeErr != nil {
		return fmt.Errorf("could not close manifest %q: %w", filename, closeErr)
	}
	return nil
}
