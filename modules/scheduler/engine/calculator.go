package engine

import (
	"sort"
	"time"

	"group-scheduler/core/config"
	"group-scheduler/core/constants"
	"group-scheduler/core/errors"
	"group-scheduler/modules/scheduler/entity"
)

// OverlapPolicy decides when a submitted block makes a user available.
type OverlapPolicy string

const (
	// OverlapAny counts any intersection between a block and the candidate.
	OverlapAny OverlapPolicy = "any"
	// OverlapContained requires the candidate to lie inside the user's
	// merged contiguous blocks.
	OverlapContained OverlapPolicy = "contained"
)

// WindowPolicy decides how the daily window bounds candidates.
type WindowPolicy string

const (
	// WindowStart bounds only candidate starts; a candidate may run past the window end.
	WindowStart WindowPolicy = "start"
	// WindowContained also requires start+duration <= window end.
	WindowContained WindowPolicy = "contained"
)

type Options struct {
	StepMinutes  int
	BlockMinutes int
	Overlap      OverlapPolicy
	Window       WindowPolicy
	Location     *time.Location
}

func DefaultOptions() Options {
	return Options{
		StepMinutes:  constants.DefaultStepMinutes,
		BlockMinutes: constants.DefaultBlockMinutes,
		Overlap:      OverlapAny,
		Window:       WindowStart,
		Location:     time.UTC,
	}
}

// Calculator enumerates feasible slots for a proposal. It is pure and safe
// for concurrent use.
type Calculator struct {
	opts Options
}

func NewCalculator(opts Options) *Calculator {
	def := DefaultOptions()
	if opts.StepMinutes <= 0 {
		opts.StepMinutes = def.StepMinutes
	}
	if opts.BlockMinutes <= 0 {
		opts.BlockMinutes = def.BlockMinutes
	}
	if opts.Overlap == "" {
		opts.Overlap = def.Overlap
	}
	if opts.Window == "" {
		opts.Window = def.Window
	}
	if opts.Location == nil {
		opts.Location = def.Location
	}
	return &Calculator{opts: opts}
}

func (c *Calculator) Options() Options {
	return c.opts
}

// Calculate returns every candidate slot with at least one available
// participant, ordered by date then start time. A proposal without dates,
// with an inverted window or a non-positive duration yields no slots.
// A nil proposal or an unparsable proposed date is a validation error.
func (c *Calculator) Calculate(proposal *entity.EventProposal, submissions []entity.AvailabilitySubmission) ([]entity.TimeSlot, error) {
	if proposal == nil {
		return nil, errors.NewAppError(errors.ErrValidation, "proposal is required", nil)
	}

	slots := []entity.TimeSlot{}
	if len(proposal.ProposedDates) == 0 ||
		proposal.TimeRangeStart >= proposal.TimeRangeEnd ||
		proposal.DurationMinutes <= 0 ||
		len(submissions) == 0 {
		return slots, nil
	}

	dates, err := c.sortedDates(proposal.ProposedDates)
	if err != nil {
		return nil, err
	}

	duration := time.Duration(proposal.DurationMinutes) * time.Minute
	step := time.Duration(c.opts.StepMinutes) * time.Minute

	for _, d := range dates {
		key := d.Format(constants.DateLayout)
		windowStart := proposal.TimeRangeStart.On(d, c.opts.Location)
		windowEnd := proposal.TimeRangeEnd.On(d, c.opts.Location)
		blocks := c.blocksForDate(submissions, key, d)

		for t := range EnumerateSlotStarts(windowStart, windowEnd, step) {
			end := t.Add(duration)
			if c.opts.Window == WindowContained && end.After(windowEnd) {
				break
			}

			participants := c.participantsFor(submissions, blocks, t, end)
			if len(participants) == 0 {
				continue
			}
			slots = append(slots, entity.TimeSlot{
				Start:        t,
				End:          end,
				Participants: participants,
			})
		}
	}
	return slots, nil
}

func (c *Calculator) sortedDates(raw []string) ([]time.Time, error) {
	seen := make(map[string]struct{}, len(raw))
	dates := make([]time.Time, 0, len(raw))
	for _, s := range raw {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		d, err := time.ParseInLocation(constants.DateLayout, s, c.opts.Location)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrValidation, "invalid proposed date "+s, err)
		}
		dates = append(dates, d)
	}
	sort.SliceStable(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
	return dates, nil
}

// blocksForDate parses each submission's markers for one date, indexed like
// submissions. Unparsable markers are skipped.
func (c *Calculator) blocksForDate(submissions []entity.AvailabilitySubmission, key string, day time.Time) [][]interval {
	block := time.Duration(c.opts.BlockMinutes) * time.Minute
	out := make([][]interval, len(submissions))
	for i, s := range submissions {
		markers := s.Availability[key]
		parsed := make([]interval, 0, len(markers))
		for _, m := range markers {
			clock, err := entity.ParseClock(m)
			if err != nil {
				continue
			}
			start := clock.On(day, c.opts.Location)
			parsed = append(parsed, interval{start: start, end: start.Add(block)})
		}
		if c.opts.Overlap == OverlapContained {
			parsed = mergeIntervals(parsed)
		}
		out[i] = parsed
	}
	return out
}

func (c *Calculator) participantsFor(submissions []entity.AvailabilitySubmission, blocks [][]interval, start, end time.Time) []string {
	participants := []string{}
	seen := make(map[string]struct{})
	for i, s := range submissions {
		if _, dup := seen[s.UserID]; dup {
			continue
		}
		if !c.available(blocks[i], start, end) {
			continue
		}
		seen[s.UserID] = struct{}{}
		participants = append(participants, s.UserID)
	}
	return participants
}

func (c *Calculator) available(blocks []interval, start, end time.Time) bool {
	for _, b := range blocks {
		if c.opts.Overlap == OverlapContained {
			if IntervalContains(b.start, b.end, start, end) {
				return true
			}
			continue
		}
		if IntervalsOverlap(start, end, b.start, b.end) {
			return true
		}
	}
	return false
}

// OptionsFromConfig maps the scheduler config section onto calculator
// options. The reference zone is a fixed offset from UTC.
func OptionsFromConfig(cfg config.SchedulerConfig) Options {
	return Options{
		StepMinutes:  cfg.StepMinutes,
		BlockMinutes: cfg.BlockMinutes,
		Overlap:      OverlapPolicy(cfg.OverlapPolicy),
		Window:       WindowPolicy(cfg.WindowPolicy),
		Location:     ReferenceLocation(cfg.ReferenceOffsetMinutes),
	}
}

func ReferenceLocation(offsetMinutes int) *time.Location {
	if offsetMinutes == 0 {
		return time.UTC
	}
	return time.FixedZone("reference", offsetMinutes*60)
}
