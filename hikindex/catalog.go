package hikindex

import (
	"sort"
)

// Catalog is the list of segments from an index, sorted by start time.
type Catalog []*Segment

// Filter returns the segments whose start time falls in [from, to).
//
// The bounds are `TimeLayout` strings and are compared as strings, not as
// times.  Both bounds must be given; if either one is empty, the whole
// catalog is returned.
func (c Catalog) Filter(from string, to string) Catalog {
	if from == "" || to == "" {
		return c
	}

	result := Catalog{}
	for _, segment := range c {
		if segment.StartTimeString >= from && segment.StartTimeString < to {
			result = append(result, segment)
		}
	}
	return result
}

// TotalBytes returns the sum of all of the byte ranges.
func (c Catalog) TotalBytes() int64 {
	var total int64
	for _, segment := range c {
		total += segment.Size()
	}
	return total
}

// SegmentDay holds the segments that start on one UTC day.
type SegmentDay struct {
	Key      string // "YYYY-MM-DD"
	Segments Catalog
}

// GroupByDay buckets the catalog by the UTC day of each start time.
//
// The days are returned in ascending order, and each day keeps the catalog
// order.
func (c Catalog) GroupByDay() []*SegmentDay {
	dayMap := map[string]*SegmentDay{}
	for _, segment := range c {
		key := segment.Day()
		day, ok := dayMap[key]
		if !ok {
			day = &SegmentDay{Key: key}
			dayMap[key] = day
		}
		day.Segments = append(day.Segments, segment)
	}

	days := []*SegmentDay{}
	for _, day := range dayMap {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Key < days[j].Key
	})
	return days
}
