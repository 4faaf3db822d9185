package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/sirupsen/logrus"
	"github.com/tekkamanendless/nvr-segment-extractor/daymerge"
	"github.com/tekkamanendless/nvr-segment-extractor/hikindex"
	"golang.org/x/sync/errgroup"
)

// Summary counts what a run did.
type Summary struct {
	Selected  int
	Extracted int
	Skipped   int
	Failed    int
	Days      int
	Merge     daymerge.Summary
}

// queue hands out the segments of one day, in order, to any number of
// workers.  Each index is claimed exactly once.
type queue struct {
	segments hikindex.Catalog
	cursor   atomic.Int64
}

func (q *queue) claim() (int, *hikindex.Segment, bool) {
	index := int(q.cursor.Add(1) - 1)
	if index >= len(q.segments) {
		return index, nil, false
	}
	return index, q.segments[index], true
}

// Run extracts every selected segment of the catalog.
//
// Days are processed in order, and a day is completely finished (including
// its merge, when enabled) before the next one begins.  A segment that fails
// is logged and counted; only a problem with the target directory (or a
// cancelled context) is returned as an error, and it stops the run.
func (e *Extractor) Run(ctx context.Context, catalog hikindex.Catalog) (*Summary, error) {
	if err := os.MkdirAll(e.Options.TargetDir, 0755); err != nil {
		return nil, fmt.Errorf("could not create target directory %q: %w", e.Options.TargetDir, err)
	}

	selected := catalog.Filter(e.Options.From, e.Options.To)
	summary := &Summary{
		Selected: len(selected),
	}
	e.log().Entry(logrus.Fields{}).Infof("Selected %d of %d segments (from %q, to %q).", len(selected), len(catalog), e.Options.From, e.Options.To)
	logger.Infof("Selected %d of %d segments.", len(selected), len(catalog))

	for _, day := range selected.GroupByDay() {
		err := e.runDay(ctx, day, summary)
		summary.Days++
		if err != nil {
			logger.Errorf("Day %s: stopping: %v", day.Key, err)
			return summary, fmt.Errorf("day %s: %w", day.Key, err)
		}

		if e.Options.MergeDays {
			merger := &daymerge.Merger{
				Transcoder: e.Transcoder,
				Log:        e.Log,
				Options:    e.Options.Merge,
			}
			merger.Options.Dir = e.Options.TargetDir
			mergeSummary, err := merger.MergeDay(ctx, day.Key)
			if err != nil {
				logger.Errorf("Day %s: could not merge: %v", day.Key, err)
				summary.Merge.Failed++
				continue
			}
			summary.Merge.Add(mergeSummary)
		}
	}

	logger.Infof("Done: %d extracted, %d skipped, %d failed over %d days.", summary.Extracted, summary.Skipped, summary.Failed, summary.Days)
	return summary, nil
}

// runDay extracts one day's segments with a pool of workers and returns once
// every claimed segment has been resolved.
//
// A worker stops on `ErrTargetUnavailable` and the others stop claiming; the
// segments already in flight still finish.
func (e *Extractor) runDay(ctx context.Context, day *hikindex.SegmentDay, summary *Summary) error {
	logger.Infof("Day %s: %d segments, %d bytes.", day.Key, len(day.Segments), day.Segments.TotalBytes())
	e.checkFreeSpace(day)

	q := &queue{segments: day.Segments}
	var mutex sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	for worker := 0; worker < e.workers(); worker++ {
		worker := worker
		group.Go(func() error {
			for {
				if err := groupCtx.Err(); err != nil {
					return err
				}
				index, segment, ok := q.claim()
				if !ok {
					return nil
				}
				logger.Debugf("Worker %d: claimed %d/%d.", worker, index+1, len(q.segments))

				output, skipped, err := e.ExtractSegment(ctx, worker, segment)

				mutex.Lock()
				switch {
				case err != nil:
					summary.Failed++
					logger.Errorf("Worker %d: %s (%s-%s): %v", worker, segment.StartTimeString, segment.SourceFileIndexString(), segment.SourceFileSlotIndexString(), err)
				case skipped:
					summary.Skipped++
					logger.Infof("Worker %d: exists: %s", worker, output)
				default:
					summary.Extracted++
					logger.Infof("Worker %d: [%d/%d] %s", worker, index+1, len(q.segments), output)
				}
				mutex.Unlock()

				if errors.Is(err, ErrTargetUnavailable) {
					return err
				}
			}
		})
	}
	return group.Wait()
}

// checkFreeSpace warns when the target directory cannot hold a day's worth of
// raw data.
func (e *Extractor) checkFreeSpace(day *hikindex.SegmentDay) {
	usage, err := disk.Usage(e.Options.TargetDir)
	if err != nil {
		logger.Debugf("Could not get the disk usage of %q: %v", e.Options.TargetDir, err)
		return
	}
	needed := day.Segments.TotalBytes()
	if usage.Free < uint64(needed) {
		logger.Warnf("Day %s needs about %d bytes, but only %d are free in %q.", day.Key, needed, usage.Free, e.Options.TargetDir)
	}
}
