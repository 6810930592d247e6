package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"group-scheduler/core/constants"
	"group-scheduler/core/errors"
	"group-scheduler/modules/scheduler/entity"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
)

// ExportCalendar renders the current suggestions as tentative iCalendar
// events, best first.
func (s *SchedulerService) ExportCalendar(ctx context.Context, proposalID uuid.UUID) (string, *errors.AppError) {
	proposal, appErr := s.loadProposal(ctx, proposalID)
	if appErr != nil {
		return "", appErr
	}
	suggestions, appErr := s.ComputeAvailability(ctx, proposalID)
	if appErr != nil {
		return "", appErr
	}

	body, err := buildSuggestionCalendar(proposal, suggestions, s.calculator.Options().Location, s.now())
	if err != nil {
		return "", errors.NewAppError(errors.ErrInternalServer, "Failed to export calendar", err)
	}
	return body, nil
}

func buildSuggestionCalendar(proposal *entity.EventProposal, suggestions []entity.Suggestion, loc *time.Location, stamp time.Time) (string, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//group-scheduler//suggestions//EN")

	duration := time.Duration(proposal.DurationMinutes) * time.Minute
	for _, sug := range suggestions {
		start, err := time.ParseInLocation(constants.DateLayout+" "+constants.ClockLayoutSeconds, sug.SuggestedDate+" "+sug.SuggestedStartTime, loc)
		if err != nil {
			return "", fmt.Errorf("suggestion %s %s: %w", sug.SuggestedDate, sug.SuggestedStartTime, err)
		}

		uid := fmt.Sprintf("%s-%s-%s@group-scheduler", proposal.ID, sug.SuggestedDate, strings.ReplaceAll(sug.SuggestedStartTime, ":", ""))
		event := cal.AddEvent(uid)
		event.SetDtStampTime(stamp)
		event.SetStartAt(start)
		event.SetEndAt(start.Add(duration))
		event.SetSummary(fmt.Sprintf("%s (score %d)", proposal.Title, sug.Score))
		event.SetDescription(fmt.Sprintf("%d available: %s", sug.ParticipantCount, strings.Join(sug.Metadata.Participants, ", ")))
		event.SetStatus(ics.ObjectStatusTentative)
	}
	return cal.Serialize(), nil
}
