package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tekkamanendless/nvr-segment-extractor/daymerge"
	"github.com/tekkamanendless/nvr-segment-extractor/extract"
	"github.com/tekkamanendless/nvr-segment-extractor/hexline"
	"github.com/tekkamanendless/nvr-segment-extractor/hikindex"
	"github.com/tekkamanendless/nvr-segment-extractor/mpegps"
	"github.com/tekkamanendless/nvr-segment-extractor/runlog"
	"github.com/tekkamanendless/nvr-segment-extractor/transcode"
)

// DefaultIndexName is the index file inside a recorder directory.
const DefaultIndexName = "index00.bin"

// DefaultTargetDir is where clips go when no target is given.  It is relative
// to the working directory, never to the recorder's media.
const DefaultTargetDir = "extracted"

func main() {
	// A missing ".env" is fine.
	_ = godotenv.Load()

	debugValue := false
	indexValue := ""

	var rootCommand = &cobra.Command{
		Use:   "hikextract",
		Short: "Recover video clips from an NVR's recording directory",
		Long: `
This tool reads the binary index of an NVR recording directory (the "index00.bin" next to the "hivNNNNN.mp4" files)
and extracts each recorded segment into its own video file.
`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debugValue {
				hikindex.SetLogLevel(logrus.DebugLevel)
				extract.SetLogLevel(logrus.DebugLevel)
				daymerge.SetLogLevel(logrus.DebugLevel)
				transcode.SetLogLevel(logrus.DebugLevel)
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
			os.Exit(1)
		},
	}
	rootCommand.PersistentFlags().BoolVar(&debugValue, "debug", false, "Enable debug output")
	rootCommand.PersistentFlags().StringVar(&indexValue, "index", "", "The index file (default: <recorder-dir>/"+DefaultIndexName+")")

	{
		validateValue := false
		probeValue := false
		dumpValue := false
		fromValue := ""
		toValue := ""
		var infoCommand = &cobra.Command{
			Use:   "info <recorder-dir>",
			Short: "Show the index header and the segment catalog",
			Long: `
Each segment is listed with its catalog number (for use with "debug"), its time range, and its byte range.

For a more aggressive output, use the --dump flag.
`,
			Args: cobra.ExactArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				recorderDir := args[0]
				index, err := parseIndex(recorderDir, indexValue)
				if err != nil {
					fmt.Printf("Error: %v\n", err)
					os.Exit(1)
				}
				printHeader(index)

				catalog := index.Catalog
				if validateValue {
					var rejected int
					catalog, rejected = catalog.Validate(recorderDir, mpegps.WindowSize)
					fmt.Printf("Rejected by validation: %d\n", rejected)
				}
				catalog = selectCatalog(catalog, fromValue, toValue)

				fmt.Printf("Segments: (%d)\n", len(catalog))
				for i, segment := range catalog {
					fmt.Printf("   %d. %s - %s (%s-%s) %s [%d, %d) %d bytes\n", i, segment.StartTimeString, segment.EndTimeString, segment.SourceFileIndexString(), segment.SourceFileSlotIndexString(), segment.SourceFileName, segment.StartOffset, segment.EndOffset, segment.Size())
					if probeValue {
						printProbe(recorderDir, segment)
					}
				}

				if dumpValue {
					spew.Dump(index.Header)
					spew.Dump(catalog)
				}
			},
		}
		infoCommand.Flags().BoolVar(&validateValue, "validate", false, "Only list segments whose bytes still start a recording")
		infoCommand.Flags().BoolVar(&probeValue, "probe", false, "Look for the video dimensions of each segment")
		infoCommand.Flags().BoolVar(&dumpValue, "dump", false, "Dump out everything about the index")
		infoCommand.Flags().StringVar(&fromValue, "from", "", "Only list segments starting at or after this time (\"YYYY-MM-DD HH-mm-ss\", UTC)")
		infoCommand.Flags().StringVar(&toValue, "to", "", "Only list segments starting before this time (\"YYYY-MM-DD HH-mm-ss\", UTC)")
		rootCommand.AddCommand(infoCommand)
	}

	{
		var byteLimit int64
		var width int
		var debugCommand = &cobra.Command{
			Use:   "debug <recorder-dir> <segment>",
			Short: "Show debug information for one segment",
			Long: `
The segment is the catalog number shown by "info" (without any filters).

This prints the raw slot, the validator's verdict, and a hex dump of the bytes at the segment's start offset.
`,
			Args: cobra.ExactArgs(2),
			Run: func(cmd *cobra.Command, args []string) {
				recorderDir := args[0]
				index, err := parseIndex(recorderDir, indexValue)
				if err != nil {
					fmt.Printf("Error: %v\n", err)
					os.Exit(1)
				}

				segmentIndex, err := strconv.Atoi(args[1])
				if err != nil {
					fmt.Printf("Invalid segment number %q: %v\n", args[1], err)
					os.Exit(1)
				}
				if segmentIndex < 0 || segmentIndex >= len(index.Catalog) {
					fmt.Printf("Invalid segment number: %d (the catalog has %d)\n", segmentIndex, len(index.Catalog))
					os.Exit(1)
				}
				segment := index.Catalog[segmentIndex]

				fmt.Printf("Segment: %d\n", segmentIndex)
				fmt.Printf("Source: %s (slot %d)\n", segment.SourceFileName, segment.SourceFileSlotIndex)
				fmt.Printf("Time: %s - %s (%v)\n", segment.StartTimeString, segment.EndTimeString, segment.Duration())
				fmt.Printf("Bytes: [%d, %d) (%d)\n", segment.StartOffset, segment.EndOffset, segment.Size())
				fmt.Printf("Record:\n")
				spew.Dump(segment.Record)

				filename := filepath.Join(recorderDir, segment.SourceFileName)
				handle, err := os.Open(filename)
				if err != nil {
					fmt.Printf("Could not open file '%s': %v\n", filename, err)
					os.Exit(1)
				}
				defer handle.Close()

				window, err := hikindex.ReadWindow(handle, segment, mpegps.WindowSize)
				if err != nil {
					fmt.Printf("Could not read the segment: %v\n", err)
					os.Exit(1)
				}
				result := mpegps.Validate(window)
				fmt.Printf("Valid: %t (%s)\n", result.Valid, result.Reason)
				for key, value := range result.Details {
					fmt.Printf("   * %s = %s\n", key, value)
				}
				if videoInfo, err := mpegps.ProbeVideo(window); err == nil {
					fmt.Printf("Video: %dx%d (profile %d, level %d)\n", videoInfo.Width, videoInfo.Height, videoInfo.ProfileIdc, videoInfo.LevelIdc)
				} else {
					fmt.Printf("Video: %v\n", err)
				}

				length := byteLimit
				if length <= 0 || length > segment.Size() {
					length = segment.Size()
				}
				fmt.Printf("Data: (%d)\n", length)
				err = hexline.Write(os.Stdout, handle, segment.StartOffset, length, width)
				if err != nil {
					fmt.Printf("Error: %v\n", err)
					os.Exit(1)
				}
			},
		}
		debugCommand.Flags().Int64Var(&byteLimit, "byte-limit", 256, "The number of bytes to print; use 0 for the whole segment")
		debugCommand.Flags().IntVar(&width, "width", hexline.DefaultWidth, "The number of bytes per line")
		rootCommand.AddCommand(debugCommand)
	}

	{
		options := extract.Options{}
		validateValue := false
		logDir := ""
		ffmpeg := &transcode.FFmpeg{}
		var extractCommand = &cobra.Command{
			Use:   "extract <recorder-dir>",
			Short: "Extract the recorded segments into video files",
			Long: `
Every segment in the index (or only those starting in [--from, --to)) is copied out of its container file and remuxed
into "<start> - <end> (<file>-<slot>).mp4" in the target directory.  Existing files are left alone unless --replace is given.

With --merge-days, each day's files are concatenated once that day has been extracted.
`,
			Args: cobra.ExactArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				recorderDir := args[0]
				started := time.Now()
				ctx := context.Background()

				if (options.From == "") != (options.To == "") {
					logrus.Warnf("Both --from and --to are needed for a time range; extracting everything.")
				}

				index, err := parseIndex(recorderDir, indexValue)
				if err != nil {
					fmt.Printf("Error: %v\n", err)
					os.Exit(1)
				}

				if err := ffmpeg.CheckVersion(ctx); err != nil {
					fmt.Printf("Error: %v\n", err)
					os.Exit(1)
				}

				catalog := index.Catalog
				rejected := 0
				if validateValue {
					catalog, rejected = catalog.Validate(recorderDir, mpegps.WindowSize)
				}

				options.SourceDir = recorderDir
				options.TargetDir = resolveTargetDir(recorderDir, options.TargetDir)
				if logDir == "" {
					logDir = options.TargetDir
				}
				runLog, err := runlog.Open(logDir, started)
				if err != nil {
					fmt.Printf("Error: %v\n", err)
					os.Exit(1)
				}
				defer runLog.Close()
				fmt.Printf("Log: %s\n", runLog.Filename)

				extractor := &extract.Extractor{
					Transcoder: ffmpeg,
					Log:        runLog,
					Options:    options,
				}
				summary, err := extractor.Run(ctx, catalog)
				if err != nil {
					fmt.Printf("Error: %v\n", err)
					os.Exit(1)
				}

				fmt.Printf("Segments in index: %d\n", len(index.Catalog))
				fmt.Printf("Rejected by validation: %d\n", rejected)
				fmt.Printf("Selected: %d\n", summary.Selected)
				fmt.Printf("Extracted: %d\n", summary.Extracted)
				fmt.Printf("Already present: %d\n", summary.Skipped)
				fmt.Printf("Failed: %d\n", summary.Failed)
				if options.MergeDays {
					fmt.Printf("Merged chunks: %d (%d failed)\n", summary.Merge.Merged, summary.Merge.Failed)
				}
				fmt.Printf("Elapsed: %v\n", time.Since(started).Round(time.Second))
			},
		}
		extractCommand.Flags().StringVar(&options.TargetDir, "target", envString(envTarget, ""), "The output directory (default: \""+DefaultTargetDir+"\" in the working directory)")
		extractCommand.Flags().StringVar(&logDir, "log-dir", envString(envLogDir, ""), "Where to write the run log (default: the output directory)")
		extractCommand.Flags().StringVar(&options.From, "from", "", "Only extract segments starting at or after this time (\"YYYY-MM-DD HH-mm-ss\", UTC); needs --to")
		extractCommand.Flags().StringVar(&options.To, "to", "", "Only extract segments starting before this time (\"YYYY-MM-DD HH-mm-ss\", UTC); needs --from")
		extractCommand.Flags().IntVar(&options.Workers, "workers", int(envInt64(envWorkers, extract.DefaultWorkers)), "The number of segments to extract at once")
		extractCommand.Flags().BoolVar(&options.Replace, "replace", false, "Replace files that already exist")
		extractCommand.Flags().BoolVar(&options.KeepRaw, "keep-raw", false, "Keep the intermediate program stream files")
		extractCommand.Flags().StringVar(&options.Extension, "extension", extract.DefaultExtension, "The output file extension")
		extractCommand.Flags().BoolVar(&validateValue, "validate", envBool(envValidate, true), "Skip segments whose bytes no longer start a recording")
		extractCommand.Flags().BoolVar(&options.MergeDays, "merge-days", envBool(envMergeDays, false), "Merge each day's files after extracting it")
		extractCommand.Flags().Int64Var(&options.Merge.ChunkLimit, "merge-limit", envInt64(envMergeLimit, 0), "The maximum size of a merged file in bytes; 0 for one file per day")
		extractCommand.Flags().BoolVar(&options.Merge.DeleteInputs, "merge-delete", false, "Delete the extracted files once they have been merged")
		extractCommand.Flags().StringVar(&options.Merge.OutputDir, "merge-output", "", "Where to write the merged files (default: the output directory)")
		extractCommand.Flags().StringVar(&ffmpeg.Binary, "ffmpeg", envString(envFFmpeg, "ffmpeg"), "The ffmpeg binary")
		extractCommand.Flags().StringVar(&ffmpeg.VideoTag, "video-tag", envString(envVideoTag, transcode.DefaultVideoTag), "The tag for the video track; use \"-\" for none")
		rootCommand.AddCommand(extractCommand)
	}

	{
		options := daymerge.Options{}
		logDir := ""
		ffmpeg := &transcode.FFmpeg{}
		var mergeCommand = &cobra.Command{
			Use:   "merge <dir>",
			Short: "Merge extracted files into one file per day",
			Long: `
The files in the directory are grouped by the UTC day of their start time and concatenated in order.
With --limit, a day is split into several files of at most that many bytes each.
`,
			Args: cobra.ExactArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				started := time.Now()
				ctx := context.Background()
				options.Dir = args[0]

				if err := ffmpeg.CheckVersion(ctx); err != nil {
					fmt.Printf("Error: %v\n", err)
					os.Exit(1)
				}

				if logDir == "" {
					logDir = options.Dir
				}
				runLog, err := runlog.Open(logDir, started)
				if err != nil {
					fmt.Printf("Error: %v\n", err)
					os.Exit(1)
				}
				defer runLog.Close()

				merger := &daymerge.Merger{
					Transcoder: ffmpeg,
					Log:        runLog,
					Options:    options,
				}
				summary, err := merger.Run(ctx)
				if err != nil {
					fmt.Printf("Error: %v\n", err)
					os.Exit(1)
				}
				fmt.Printf("Days: %d\n", summary.Days)
				fmt.Printf("Chunks: %d\n", summary.Chunks)
				fmt.Printf("Merged: %d\n", summary.Merged)
				fmt.Printf("Failed: %d\n", summary.Failed)
			},
		}
		mergeCommand.Flags().Int64Var(&options.ChunkLimit, "limit", envInt64(envMergeLimit, 0), "The maximum size of a merged file in bytes; 0 for one file per day")
		mergeCommand.Flags().BoolVar(&options.DeleteInputs, "delete", false, "Delete the input files once they have been merged")
		mergeCommand.Flags().StringVar(&options.OutputDir, "output", "", "Where to write the merged files (default: the input directory)")
		mergeCommand.Flags().StringVar(&logDir, "log-dir", envString(envLogDir, ""), "Where to write the run log (default: the input directory)")
		mergeCommand.Flags().StringVar(&ffmpeg.Binary, "ffmpeg", envString(envFFmpeg, "ffmpeg"), "The ffmpeg binary")
		rootCommand.AddCommand(mergeCommand)
	}

	err := rootCommand.Execute()
	if err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}

// parseIndex decodes the index of a recorder directory.
func parseIndex(recorderDir string, indexFile string) (*hikindex.Index, error) {
	if indexFile == "" {
		indexFile = filepath.Join(recorderDir, DefaultIndexName)
	}
	index, err := hikindex.ParseFile(indexFile)
	if err != nil {
		return nil, err
	}
	return index, nil
}

// resolveTargetDir returns the output directory, warning when it lies inside
// the recorder directory.
func resolveTargetDir(recorderDir string, targetDir string) string {
	if targetDir == "" {
		targetDir = DefaultTargetDir
	}
	if isInside(recorderDir, targetDir) {
		logrus.Warnf("The output directory %q is inside the recorder directory %q.", targetDir, recorderDir)
	}
	return targetDir
}

// isInside reports whether the path is the directory or somewhere below it.
func isInside(dir string, path string) bool {
	absoluteDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absolutePath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	relativePath, err := filepath.Rel(absoluteDir, absolutePath)
	if err != nil {
		return false
	}
	return relativePath == "." || (relativePath != ".." && !strings.HasPrefix(relativePath, ".."+string(filepath.Separator)))
}

// selectCatalog applies a --from/--to pair, warning when only one was given.
func selectCatalog(catalog hikindex.Catalog, from string, to string) hikindex.Catalog {
	if (from == "") != (to == "") {
		logrus.Warnf("Both --from and --to are needed for a time range; listing everything.")
	}
	return catalog.Filter(from, to)
}

// printHeader prints the index header.
func printHeader(index *hikindex.Index) {
	fmt.Printf("Index: %s\n", index.Filename)
	fmt.Printf("Version: %d\n", index.Header.Version)
	fmt.Printf("Modify times: %d\n", index.Header.ModifyTimes)
	fmt.Printf("AV files: %d\n", index.Header.AVFiles)
	fmt.Printf("Next file record: %d\n", index.Header.NextFileRecNo)
	fmt.Printf("Last file record: %d\n", index.Header.LastFileRecNo)
	fmt.Printf("Checksum: 0x%08x\n", index.Header.Checksum)
	if index.Skipped > 0 {
		fmt.Printf("Slots with an empty byte range: %d\n", index.Skipped)
	}
}

// printProbe prints the video dimensions of a segment, if they can be found.
func printProbe(recorderDir string, segment *hikindex.Segment) {
	filename := filepath.Join(recorderDir, segment.SourceFileName)
	handle, err := os.Open(filename)
	if err != nil {
		fmt.Printf("      Could not open file '%s': %v\n", filename, err)
		return
	}
	defer handle.Close()

	window, err := hikindex.ReadWindow(handle, segment, mpegps.WindowSize)
	if err != nil {
		fmt.Printf("      Could not read: %v\n", err)
		return
	}
	videoInfo, err := mpegps.ProbeVideo(window)
	if err != nil {
		fmt.Printf("      Video: %v\n", err)
		return
	}
	fmt.Printf("      Video: %dx%d\n", videoInfo.Width, videoInfo.Height)
}
