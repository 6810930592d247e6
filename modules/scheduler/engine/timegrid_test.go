package engine

import (
	"testing"
	"time"

	"group-scheduler/modules/scheduler/entity"

	"github.com/stretchr/testify/assert"
)

func at(hhmm string) time.Time {
	return entity.MustParseClock(hhmm).On(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), time.UTC)
}

func TestEnumerateSlotStarts(t *testing.T) {
	seq := EnumerateSlotStarts(at("09:00"), at("10:30"), 30*time.Minute)

	var first, second []string
	for v := range seq {
		first = append(first, v.Format("15:04"))
	}
	for v := range seq {
		second = append(second, v.Format("15:04"))
	}

	assert.Equal(t, []string{"09:00", "09:30", "10:00"}, first)
	assert.Equal(t, first, second, "sequence must be restartable")
}

func TestEnumerateSlotStartsEdges(t *testing.T) {
	count := func(seq func(func(time.Time) bool)) int {
		n := 0
		for range seq {
			n++
		}
		return n
	}

	assert.Zero(t, count(EnumerateSlotStarts(at("10:00"), at("10:00"), 30*time.Minute)))
	assert.Zero(t, count(EnumerateSlotStarts(at("11:00"), at("10:00"), 30*time.Minute)))
	assert.Zero(t, count(EnumerateSlotStarts(at("09:00"), at("10:00"), 0)))
	assert.Equal(t, 1, count(EnumerateSlotStarts(at("09:00"), at("09:15"), 30*time.Minute)))

	var stopped []time.Time
	for v := range EnumerateSlotStarts(at("09:00"), at("17:00"), 15*time.Minute) {
		stopped = append(stopped, v)
		if len(stopped) == 2 {
			break
		}
	}
	assert.Len(t, stopped, 2)
}

func TestIntervalsOverlap(t *testing.T) {
	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd string
		want                       bool
	}{
		{"identical", "09:00", "09:30", "09:00", "09:30", true},
		{"candidate starts inside block", "09:15", "10:15", "09:00", "09:30", true},
		{"candidate ends inside block", "08:45", "09:15", "09:00", "09:30", true},
		{"candidate contains block", "09:00", "10:00", "09:00", "09:30", true},
		{"block contains candidate", "09:10", "09:20", "09:00", "09:30", true},
		{"touching after", "09:30", "10:00", "09:00", "09:30", false},
		{"touching before", "08:30", "09:00", "09:00", "09:30", false},
		{"disjoint", "11:00", "12:00", "09:00", "09:30", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IntervalsOverlap(at(tt.aStart), at(tt.aEnd), at(tt.bStart), at(tt.bEnd))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIntervalContains(t *testing.T) {
	assert.True(t, IntervalContains(at("09:00"), at("10:00"), at("09:00"), at("10:00")))
	assert.True(t, IntervalContains(at("09:00"), at("10:00"), at("09:30"), at("10:00")))
	assert.False(t, IntervalContains(at("09:00"), at("09:30"), at("09:00"), at("10:00")))
}

func TestMergeIntervals(t *testing.T) {
	merged := mergeIntervals([]interval{
		{at("10:00"), at("10:30")},
		{at("09:00"), at("09:30")},
		{at("09:30"), at("10:00")},
		{at("12:00"), at("12:30")},
	})

	assert.Equal(t, []interval{
		{at("09:00"), at("10:30")},
		{at("12:00"), at("12:30")},
	}, merged)
	assert.Empty(t, mergeIntervals(nil))
}

func TestGridColumns(t *testing.T) {
	cols := GridColumns(entity.MustParseClock("09:00"), entity.MustParseClock("11:00"), 30)
	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30"}, cols)

	assert.Empty(t, GridColumns(entity.MustParseClock("11:00"), entity.MustParseClock("09:00"), 30))
}
