package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"group-scheduler/core/constants"
	"group-scheduler/core/errors"
	"group-scheduler/core/logger"
	"group-scheduler/core/realtime"
	"group-scheduler/core/utils"
	"group-scheduler/modules/scheduler/dto"
	"group-scheduler/modules/scheduler/engine"
	"group-scheduler/modules/scheduler/entity"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// CreateProposal validates and stores a new proposal owned by creatorID.
func (s *SchedulerService) CreateProposal(ctx context.Context, creatorID string, req *dto.CreateProposalRequest) (*dto.ProposalResponse, *errors.AppError) {
	proposal, appErr := buildProposal(creatorID, req)
	if appErr != nil {
		return nil, appErr
	}
	proposal.ShareSlug = utils.GenerateShareSlug(proposal.Title)

	created, err := s.repo.CreateProposal(ctx, proposal)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrCreateFailed, "Failed to create proposal", err)
	}

	logger.Info("SchedulerService:CreateProposal", "proposal_id", created.ID, "creator_id", creatorID, "dates", len(created.ProposedDates))
	return dto.ToProposalResponse(created), nil
}

func (s *SchedulerService) GetProposal(ctx context.Context, id uuid.UUID) (*dto.ProposalResponse, *errors.AppError) {
	proposal, appErr := s.loadProposal(ctx, id)
	if appErr != nil {
		return nil, appErr
	}
	return dto.ToProposalResponse(proposal), nil
}

func (s *SchedulerService) ListMyProposals(ctx context.Context, creatorID string) ([]dto.ProposalResponse, *errors.AppError) {
	proposals, err := s.repo.GetProposalsByCreator(ctx, creatorID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get proposals", err)
	}

	result := make([]dto.ProposalResponse, 0, len(proposals))
	for i := range proposals {
		result = append(result, *dto.ToProposalResponse(&proposals[i]))
	}
	return result, nil
}

// GetGrid returns the dates and block markers a participant picks from.
func (s *SchedulerService) GetGrid(ctx context.Context, id uuid.UUID) (*dto.GridResponse, *errors.AppError) {
	proposal, appErr := s.loadProposal(ctx, id)
	if appErr != nil {
		return nil, appErr
	}

	block := s.calculator.Options().BlockMinutes
	return &dto.GridResponse{
		ProposalID:   proposal.ID.String(),
		Dates:        append([]string{}, proposal.ProposedDates...),
		Times:        engine.GridColumns(proposal.TimeRangeStart, proposal.TimeRangeEnd, block),
		BlockMinutes: block,
	}, nil
}

// SubmitAvailability stores (or replaces) the caller's availability, then
// invalidates the proposal cache and announces the write.
func (s *SchedulerService) SubmitAvailability(ctx context.Context, userID string, proposalID uuid.UUID, req *dto.SubmitAvailabilityRequest) (*dto.SubmissionResponse, *errors.AppError) {
	proposal, appErr := s.loadProposal(ctx, proposalID)
	if appErr != nil {
		return nil, appErr
	}

	availability, appErr := normalizeAvailability(proposal, req.Availability)
	if appErr != nil {
		return nil, appErr
	}

	saved, err := s.repo.UpsertSubmission(ctx, &entity.AvailabilitySubmission{
		UserID:       userID,
		ProposalID:   proposalID,
		Availability: availability,
		SubmittedAt:  s.now().UTC(),
	})
	if err != nil {
		return nil, errors.NewAppError(errors.ErrCreateFailed, "Failed to save availability", err)
	}

	s.ClearProposalCache(ctx, proposalID)
	if s.publisher != nil {
		s.publisher.Publish(realtime.InsertEvent{
			Table: constants.TableAvailabilitySubmissions,
			Row: map[string]string{
				constants.ColumnProposalID: proposalID.String(),
				"user_id":                  userID,
			},
		})
	}
	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueRecompute(ctx, proposalID); err != nil {
			logger.Error("SchedulerService:SubmitAvailability:Enqueue", "proposal_id", proposalID,
				"error", errors.NewAppError(errors.ErrQueueFailed, "Failed to enqueue recompute", err))
		}
	}

	logger.Info("SchedulerService:SubmitAvailability", "proposal_id", proposalID, "user_id", userID, "dates", len(availability))
	return dto.ToSubmissionResponse(saved), nil
}

// ListStoredSuggestions reads the last persisted suggestions, grouped by date.
func (s *SchedulerService) ListStoredSuggestions(ctx context.Context, proposalID uuid.UUID) (*dto.StoredSuggestionsResponse, *errors.AppError) {
	if _, appErr := s.loadProposal(ctx, proposalID); appErr != nil {
		return nil, appErr
	}

	suggestions, err := s.repo.ListSuggestions(ctx, proposalID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get suggestions", err)
	}
	return &dto.StoredSuggestionsResponse{
		ProposalID: proposalID.String(),
		Groups:     dto.GroupByDate(suggestions),
	}, nil
}

func (s *SchedulerService) loadProposal(ctx context.Context, id uuid.UUID) (*entity.EventProposal, *errors.AppError) {
	proposal, err := s.repo.GetProposalByID(ctx, id)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get proposal", err)
	}
	if proposal == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "Proposal not found", nil)
	}
	return proposal, nil
}

// buildProposal validates a create request. Dates come from the explicit
// list when given, otherwise from the inclusive range; duplicates are dropped
// keeping first occurrence.
func buildProposal(creatorID string, req *dto.CreateProposalRequest) (*entity.EventProposal, *errors.AppError) {
	invalid := func(msg string, args ...any) *errors.AppError {
		return errors.NewAppError(errors.ErrValidation, fmt.Sprintf(msg, args...), nil)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, invalid("title is required")
	}

	dates, appErr := proposalDates(req)
	if appErr != nil {
		return nil, appErr
	}

	start, err := entity.ParseClock(req.TimeRangeStart)
	if err != nil {
		return nil, invalid("invalid time_range_start %q", req.TimeRangeStart)
	}
	end, err := entity.ParseClock(req.TimeRangeEnd)
	if err != nil {
		return nil, invalid("invalid time_range_end %q", req.TimeRangeEnd)
	}
	if end <= start {
		return nil, invalid("time_range_end must be after time_range_start")
	}

	if req.DurationMinutes <= 0 || req.DurationMinutes%constants.GridGranularityMinutes != 0 {
		return nil, invalid("duration_minutes must be a positive multiple of %d", constants.GridGranularityMinutes)
	}
	if req.DurationMinutes > int(end-start) {
		return nil, invalid("duration_minutes does not fit in the time range")
	}

	timezone := strings.TrimSpace(req.Timezone)
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, invalid("unknown timezone %q", timezone)
	}

	return &entity.EventProposal{
		CreatorID:       creatorID,
		Title:           title,
		Description:     strings.TrimSpace(req.Description),
		ProposedDates:   pq.StringArray(dates),
		TimeRangeStart:  start,
		TimeRangeEnd:    end,
		DurationMinutes: req.DurationMinutes,
		Timezone:        timezone,
		InviteeIDs:      pq.StringArray(uniqueNonEmpty(req.InviteeIDs)),
	}, nil
}

func proposalDates(req *dto.CreateProposalRequest) ([]string, *errors.AppError) {
	var dates []string
	if len(req.ProposedDates) > 0 {
		for _, raw := range req.ProposedDates {
			d, err := time.Parse(constants.DateLayout, strings.TrimSpace(raw))
			if err != nil {
				return nil, errors.NewAppError(errors.ErrValidation, fmt.Sprintf("invalid proposed date %q", raw), err)
			}
			dates = append(dates, d.Format(constants.DateLayout))
		}
	} else {
		if req.DateRangeStart == "" || req.DateRangeEnd == "" {
			return nil, errors.NewAppError(errors.ErrValidation, "proposed_dates or a date range is required", nil)
		}
		from, err := time.Parse(constants.DateLayout, req.DateRangeStart)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrValidation, fmt.Sprintf("invalid date_range_start %q", req.DateRangeStart), err)
		}
		to, err := time.Parse(constants.DateLayout, req.DateRangeEnd)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrValidation, fmt.Sprintf("invalid date_range_end %q", req.DateRangeEnd), err)
		}
		if to.Before(from) {
			return nil, errors.NewAppError(errors.ErrValidation, "date_range_end must not be before date_range_start", nil)
		}
		for d := from; !d.After(to) && len(dates) <= constants.MaxProposalDates; d = d.AddDate(0, 0, 1) {
			dates = append(dates, d.Format(constants.DateLayout))
		}
	}

	dates = uniqueNonEmpty(dates)
	if len(dates) > constants.MaxProposalDates {
		return nil, errors.NewAppError(errors.ErrValidation, fmt.Sprintf("at most %d dates may be proposed", constants.MaxProposalDates), nil)
	}
	return dates, nil
}

// normalizeAvailability checks that every date belongs to the proposal and
// every marker is a grid-aligned time inside the daily window. Markers are
// deduplicated and sorted; dates left without markers are dropped.
func normalizeAvailability(proposal *entity.EventProposal, raw map[string][]string) (entity.Availability, *errors.AppError) {
	allowed := make(map[string]struct{}, len(proposal.ProposedDates))
	for _, d := range proposal.ProposedDates {
		allowed[d] = struct{}{}
	}

	out := entity.Availability{}
	for date, markers := range raw {
		if _, ok := allowed[date]; !ok {
			return nil, errors.NewAppError(errors.ErrValidation, fmt.Sprintf("date %q is not part of the proposal", date), nil)
		}

		seen := make(map[entity.ClockTime]struct{}, len(markers))
		clocks := make([]entity.ClockTime, 0, len(markers))
		for _, m := range markers {
			c, err := entity.ParseClock(m)
			if err != nil {
				return nil, errors.NewAppError(errors.ErrValidation, fmt.Sprintf("invalid time %q on %s", m, date), err)
			}
			if c < proposal.TimeRangeStart || c >= proposal.TimeRangeEnd || int(c)%constants.GridGranularityMinutes != 0 {
				return nil, errors.NewAppError(errors.ErrValidation, fmt.Sprintf("time %s on %s is outside the grid", c.HHMM(), date), nil)
			}
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			clocks = append(clocks, c)
		}
		if len(clocks) == 0 {
			continue
		}

		sort.Slice(clocks, func(i, j int) bool { return clocks[i] < clocks[j] })
		list := make([]string, len(clocks))
		for i, c := range clocks {
			list[i] = c.HHMM()
		}
		out[date] = list
	}

	if len(out) == 0 {
		return nil, errors.NewAppError(errors.ErrValidation, "Select at least one time slot", nil)
	}
	return out, nil
}

func uniqueNonEmpty(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
