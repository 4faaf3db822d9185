package transcode

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hashicorp/go-version"
	"github.com/sirupsen/logrus"
)

// Transcoder is the external collaborator that repackages the recovered
// streams.  Nothing is ever re-encoded.
type Transcoder interface {
	// Remux copies the audio and video of a raw program stream into the output
	// container, overwriting the output if it exists.
	Remux(ctx context.Context, input string, output string, log io.Writer) error
	// Concat joins the files listed in a manifest (see `WriteManifest`).
	Concat(ctx context.Context, manifest string, output string, log io.Writer) error
}

// DefaultVideoTag is the video track tag that most players expect for the
// recorder's HEVC streams.
const DefaultVideoTag = "hvc1"

// MinimumVersion is the oldest ffmpeg that is known to handle the recorder's
// program streams.
var MinimumVersion = version.Must(version.NewVersion("4.0"))

var logger = logrus.New()

// SetLogLevel sets the log level for this package.
func SetLogLevel(level logrus.Level) {
	logger.SetLevel(level)
}

// FFmpeg runs the ffmpeg binary.
type FFmpeg struct {
	Binary   string // Defaults to "ffmpeg".
	VideoTag string // Defaults to `DefaultVideoTag`; "-" disables tagging.
}

func (f *FFmpeg) binary() string {
	if f.Binary == "" {
		return "ffmpeg"
	}
	return f.Binary
}

// RemuxArgs returns the ffmpeg arguments for `Remux`.
//
// Only the video and (if present) audio streams are mapped; the recorder's
// private data streams have no container mapping and are dropped.
func (f *FFmpeg) RemuxArgs(input string, output string) []string {
	args := []string{"-hide_banner", "-y", "-i", input, "-map", "0:v", "-map", "0:a?", "-c:v", "copy", "-c:a", "copy"}
	tag := f.VideoTag
	if tag == "" {
		tag = DefaultVideoTag
	}
	if tag != "-" {
		args = append(args, "-tag:v", tag)
	}
	return append(args, output)
}

// ConcatArgs returns the ffmpeg arguments for `Concat`.
func (f *FFmpeg) ConcatArgs(manifest string, output string) []string {
	return []string{"-hide_banner", "-y", "-f", "concat", "-safe", "0", "-i", manifest, "-c", "copy", output}
}

// Remux implements `Transcoder`.
func (f *FFmpeg) Remux(ctx context.Context, input string, output string, log io.Writer) error {
	return f.run(ctx, f.RemuxArgs(input, output), log)
}

// Concat implements `Transcoder`.
func (f *FFmpeg) Concat(ctx context.Context, manifest string, output string, log io.Writer) error {
	return f.run(ctx, f.ConcatArgs(manifest, output), log)
}

func (f *FFmpeg) run(ctx context.Context, args []string, log io.Writer) error {
	logger.Debugf("Running: %s %s", f.binary(), strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, f.binary(), args...)
	if log != nil {
		cmd.Stdout = log
		cmd.Stderr = log
	}
	err := cmd.Run()
	if err != nil {
		return fmt.Errorf("%s failed: %w", filepath.Base(f.binary()), err)
	}
	return nil
}

var versionPattern = regexp.MustCompile(`version n?(\d+(?:\.\d+)+)`)

// ParseVersion pulls the version out of the first line of `ffmpeg -version`.
func ParseVersion(output string) (*version.Version, error) {
	matches := versionPattern.FindStringSubmatch(output)
	if matches == nil {
		firstLine, _, _ := strings.Cut(output, "\n")
		return nil, fmt.Errorf("could not find a version in %q", firstLine)
	}
	return version.NewVersion(matches[1])
}

// Version runs `ffmpeg -version` and returns the version.
func (f *FFmpeg) Version(ctx context.Context) (*version.Version, error) {
	path, err := exec.LookPath(f.binary())
	if err != nil {
		return nil, fmt.Errorf("could not find %q: %w", f.binary(), err)
	}
	output, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return nil, fmt.Errorf("could not run %q: %w", path, err)
	}
	return ParseVersion(string(output))
}

// CheckVersion makes sure that ffmpeg is present.
//
// An old or unrecognizable version is only a warning; development builds do
// not carry a dotted version.
func (f *FFmpeg) CheckVersion(ctx context.Context) error {
	v, err := f.Version(ctx)
	if err != nil {
		if _, lookErr := exec.LookPath(f.binary()); lookErr != nil {
			return err
		}
		logger.Warnf("Could not determine the ffmpeg version: %v", err)
		return nil
	}
	logger.Infof("ffmpeg version: %v", v)
	if v.LessThan(MinimumVersion) {
		logger.Warnf("ffmpeg %v is older than %v; extraction may fail.", v, MinimumVersion)
	}
	return nil
}
