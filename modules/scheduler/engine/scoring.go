package engine

import (
	"sort"

	"group-scheduler/core/constants"
	"group-scheduler/modules/scheduler/entity"

	"github.com/google/uuid"
)

const (
	ParticipantWeight   = 10
	FullAttendanceBonus = 50
	OffHoursPenalty     = 20
	CoreHoursBonus      = 15
)

// Score rates one slot. The hour is the slot's local start hour.
func Score(slot entity.TimeSlot, inviteeCount int) int {
	n := len(slot.Participants)
	score := ParticipantWeight * n
	if n == inviteeCount {
		score += FullAttendanceBonus
	}

	hour := slot.Start.Hour()
	if hour < 9 || hour > 17 {
		score -= OffHoursPenalty
	}
	if hour >= 10 && hour <= 15 {
		score += CoreHoursBonus
	}
	return score
}

// ScoreSlots scores slots and orders them by descending score. Equal scores
// keep their input order.
func ScoreSlots(slots []entity.TimeSlot, proposal *entity.EventProposal) []entity.ScoredSlot {
	inviteeCount := 0
	if proposal != nil {
		inviteeCount = len(proposal.InviteeIDs)
	}

	scored := make([]entity.ScoredSlot, len(slots))
	for i, slot := range slots {
		scored[i] = entity.ScoredSlot{TimeSlot: slot, Score: Score(slot, inviteeCount)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// ToSuggestions maps ranked slots to their stored form, keeping order.
func ToSuggestions(proposalID uuid.UUID, scored []entity.ScoredSlot) []entity.Suggestion {
	out := make([]entity.Suggestion, len(scored))
	for i, s := range scored {
		out[i] = entity.Suggestion{
			ProposalID:         proposalID,
			SuggestedDate:      s.Start.Format(constants.DateLayout),
			SuggestedStartTime: s.Start.Format(constants.ClockLayoutSeconds),
			SuggestedEndTime:   s.End.Format(constants.ClockLayoutSeconds),
			ParticipantCount:   len(s.Participants),
			Score:              s.Score,
			Metadata: entity.SuggestionMetadata{
				Participants: append([]string{}, s.Participants...),
			},
		}
	}
	return out
}
