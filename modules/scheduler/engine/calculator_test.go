package engine

import (
	"testing"
	"time"

	"group-scheduler/core/errors"
	"group-scheduler/modules/scheduler/entity"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProposal(duration int, invitees ...string) *entity.EventProposal {
	return &entity.EventProposal{
		ID:              uuid.New(),
		CreatorID:       "creator",
		Title:           "Planning",
		ProposedDates:   pq.StringArray{"2024-06-10"},
		TimeRangeStart:  entity.MustParseClock("09:00"),
		TimeRangeEnd:    entity.MustParseClock("17:00"),
		DurationMinutes: duration,
		Timezone:        "UTC",
		InviteeIDs:      invitees,
	}
}

func submission(user string, availability entity.Availability) entity.AvailabilitySubmission {
	return entity.AvailabilitySubmission{UserID: user, Availability: availability}
}

func spans(slots []entity.TimeSlot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Start.Format("2006-01-02 15:04") + "-" + s.End.Format("15:04")
	}
	return out
}

func TestCalculateScenarioA(t *testing.T) {
	calc := NewCalculator(DefaultOptions())
	p := newProposal(30, "u1")

	slots, err := calc.Calculate(p, []entity.AvailabilitySubmission{
		submission("u1", entity.Availability{"2024-06-10": {"09:00", "09:30"}}),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-06-10 09:00-09:30", "2024-06-10 09:30-10:00"}, spans(slots))
	for _, s := range slots {
		assert.Equal(t, []string{"u1"}, s.Participants)
	}
}

func TestCalculateScenarioBGenerousOverlap(t *testing.T) {
	p := newProposal(60, "u1")
	subs := []entity.AvailabilitySubmission{
		submission("u1", entity.Availability{"2024-06-10": {"09:00"}}),
	}

	slots, err := NewCalculator(DefaultOptions()).Calculate(p, subs)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-10 09:00-10:00"}, spans(slots))

	strict := DefaultOptions()
	strict.Overlap = OverlapContained
	slots, err = NewCalculator(strict).Calculate(p, subs)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestCalculateContainedOverlapUsesMergedBlocks(t *testing.T) {
	opts := DefaultOptions()
	opts.Overlap = OverlapContained
	p := newProposal(60, "u1")

	slots, err := NewCalculator(opts).Calculate(p, []entity.AvailabilitySubmission{
		submission("u1", entity.Availability{"2024-06-10": {"09:30", "09:00", "10:00"}}),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-10 09:00-10:00", "2024-06-10 09:30-10:30"}, spans(slots))
}

func TestCalculateWindowPolicy(t *testing.T) {
	p := newProposal(60, "u1")
	p.TimeRangeEnd = entity.MustParseClock("10:00")
	subs := []entity.AvailabilitySubmission{
		submission("u1", entity.Availability{"2024-06-10": {"09:00", "09:30"}}),
	}

	slots, err := NewCalculator(DefaultOptions()).Calculate(p, subs)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-10 09:00-10:00", "2024-06-10 09:30-10:30"}, spans(slots),
		"candidates may run past the window end by default")

	opts := DefaultOptions()
	opts.Window = WindowContained
	slots, err = NewCalculator(opts).Calculate(p, subs)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-10 09:00-10:00"}, spans(slots))
}

func TestCalculateOrdersByDateThenStart(t *testing.T) {
	p := newProposal(30, "u1", "u2")
	p.ProposedDates = pq.StringArray{"2024-06-12", "2024-06-10", "2024-06-12"}

	slots, err := NewCalculator(DefaultOptions()).Calculate(p, []entity.AvailabilitySubmission{
		submission("u1", entity.Availability{"2024-06-12": {"14:00"}, "2024-06-10": {"16:30"}}),
		submission("u2", entity.Availability{"2024-06-10": {"09:00"}}),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"2024-06-10 09:00-09:30",
		"2024-06-10 16:30-17:00",
		"2024-06-12 14:00-14:30",
	}, spans(slots))
	assert.Equal(t, []string{"u2"}, slots[0].Participants)
	assert.Equal(t, []string{"u1"}, slots[1].Participants)
}

func TestCalculateCollectsParticipantsOnce(t *testing.T) {
	p := newProposal(30, "u1", "u2")
	slots, err := NewCalculator(DefaultOptions()).Calculate(p, []entity.AvailabilitySubmission{
		submission("u1", entity.Availability{"2024-06-10": {"09:00"}}),
		submission("u2", entity.Availability{"2024-06-10": {"09:00", "bogus"}}),
		submission("u1", entity.Availability{"2024-06-10": {"09:00"}}),
	})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, []string{"u1", "u2"}, slots[0].Participants)
}

func TestCalculateEmptyResults(t *testing.T) {
	subs := []entity.AvailabilitySubmission{
		submission("u1", entity.Availability{"2024-06-10": {"09:00"}}),
	}
	calc := NewCalculator(DefaultOptions())

	tests := []struct {
		name   string
		mutate func(*entity.EventProposal)
		subs   []entity.AvailabilitySubmission
	}{
		{"no submissions", func(*entity.EventProposal) {}, nil},
		{"no dates", func(p *entity.EventProposal) { p.ProposedDates = nil }, subs},
		{"inverted window", func(p *entity.EventProposal) {
			p.TimeRangeStart, p.TimeRangeEnd = p.TimeRangeEnd, p.TimeRangeStart
		}, subs},
		{"empty window", func(p *entity.EventProposal) { p.TimeRangeEnd = p.TimeRangeStart }, subs},
		{"zero duration", func(p *entity.EventProposal) { p.DurationMinutes = 0 }, subs},
		{"submission for another date", func(p *entity.EventProposal) { p.ProposedDates = pq.StringArray{"2024-06-11"} }, subs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProposal(30, "u1")
			tt.mutate(p)
			slots, err := calc.Calculate(p, tt.subs)
			require.NoError(t, err)
			assert.NotNil(t, slots)
			assert.Empty(t, slots)
		})
	}
}

func TestCalculateValidationErrors(t *testing.T) {
	calc := NewCalculator(DefaultOptions())

	_, err := calc.Calculate(nil, nil)
	assert.True(t, errors.HasCode(err, errors.ErrValidation))

	p := newProposal(30, "u1")
	p.ProposedDates = pq.StringArray{"10/06/2024"}
	_, err = calc.Calculate(p, []entity.AvailabilitySubmission{
		submission("u1", entity.Availability{"10/06/2024": {"09:00"}}),
	})
	assert.True(t, errors.HasCode(err, errors.ErrValidation))
}

func TestCalculateUsesReferenceLocation(t *testing.T) {
	opts := DefaultOptions()
	opts.Location = time.FixedZone("UTC+7", 7*3600)
	p := newProposal(30, "u1")

	slots, err := NewCalculator(opts).Calculate(p, []entity.AvailabilitySubmission{
		submission("u1", entity.Availability{"2024-06-10": {"09:00"}}),
	})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, 9, slots[0].Start.Hour())
	assert.Equal(t, 2, slots[0].Start.UTC().Hour())
}
