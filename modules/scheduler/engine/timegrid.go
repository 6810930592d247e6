package engine

import (
	"iter"
	"sort"
	"time"

	"group-scheduler/modules/scheduler/entity"
)

// EnumerateSlotStarts yields every t with windowStart <= t < windowEnd,
// step apart. The sequence can be ranged over any number of times.
func EnumerateSlotStarts(windowStart, windowEnd time.Time, step time.Duration) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		if step <= 0 {
			return
		}
		for t := windowStart; t.Before(windowEnd); t = t.Add(step) {
			if !yield(t) {
				return
			}
		}
	}
}

// IntervalsOverlap reports whether candidate [aStart, aEnd) touches free
// block [bStart, bEnd): the candidate starts inside the block, ends inside
// it, or swallows it. Any intersection counts, so a user free for only part
// of a meeting is still counted as available.
func IntervalsOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	startsInside := !aStart.Before(bStart) && aStart.Before(bEnd)
	endsInside := aEnd.After(bStart) && !aEnd.After(bEnd)
	contains := !aStart.After(bStart) && !aEnd.Before(bEnd)
	return startsInside || endsInside || contains
}

// IntervalContains reports whether [innerStart, innerEnd) lies inside [outerStart, outerEnd).
func IntervalContains(outerStart, outerEnd, innerStart, innerEnd time.Time) bool {
	return !innerStart.Before(outerStart) && !innerEnd.After(outerEnd)
}

type interval struct {
	start time.Time
	end   time.Time
}

// mergeIntervals joins overlapping or adjacent intervals.
func mergeIntervals(in []interval) []interval {
	if len(in) == 0 {
		return in
	}
	sorted := make([]interval, len(in))
	copy(sorted, in)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].start.Before(sorted[j].start)
	})

	merged := []interval{sorted[0]}
	for _, current := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !current.start.After(last.end) {
			if current.end.After(last.end) {
				last.end = current.end
			}
		} else {
			merged = append(merged, current)
		}
	}
	return merged
}

// GridColumns lists the HH:MM markers an availability grid shows for a
// daily window.
func GridColumns(start, end entity.ClockTime, stepMinutes int) []string {
	day := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	columns := []string{}
	for t := range EnumerateSlotStarts(start.On(day, time.UTC), end.On(day, time.UTC), time.Duration(stepMinutes)*time.Minute) {
		columns = append(columns, t.Format("15:04"))
	}
	return columns
}
