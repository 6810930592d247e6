package dto

import (
	"time"

	"group-scheduler/modules/scheduler/entity"
)

// ===================== Request DTOs =====================

// CreateProposalRequest for proposing a meeting. Dates come either as an
// explicit list or as an inclusive range.
type CreateProposalRequest struct {
	Title           string   `json:"title" validate:"required"`
	Description     string   `json:"description"`
	ProposedDates   []string `json:"proposed_dates"`   // YYYY-MM-DD
	DateRangeStart  string   `json:"date_range_start"` // YYYY-MM-DD
	DateRangeEnd    string   `json:"date_range_end"`   // YYYY-MM-DD
	TimeRangeStart  string   `json:"time_range_start" validate:"required"` // HH:MM
	TimeRangeEnd    string   `json:"time_range_end" validate:"required"`   // HH:MM
	DurationMinutes int      `json:"duration_minutes" validate:"required"`
	Timezone        string   `json:"timezone"`
	InviteeIDs      []string `json:"invitee_ids"`
}

// SubmitAvailabilityRequest carries the grid cells a user marked free.
type SubmitAvailabilityRequest struct {
	Availability map[string][]string `json:"availability"`
}

// ===================== Response DTOs =====================

type ProposalResponse struct {
	ID              string    `json:"id"`
	CreatorID       string    `json:"creator_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	ProposedDates   []string  `json:"proposed_dates"`
	TimeRangeStart  string    `json:"time_range_start"`
	TimeRangeEnd    string    `json:"time_range_end"`
	DurationMinutes int       `json:"duration_minutes"`
	Timezone        string    `json:"timezone"`
	InviteeIDs      []string  `json:"invitee_ids"`
	ShareSlug       string    `json:"share_slug"`
	CreatedAt       time.Time `json:"created_at"`
}

// GridResponse describes the availability grid: one column per date, one
// row per HH:MM block.
type GridResponse struct {
	ProposalID   string   `json:"proposal_id"`
	Dates        []string `json:"dates"`
	Times        []string `json:"times"`
	BlockMinutes int      `json:"block_minutes"`
}

type SubmissionResponse struct {
	UserID       string              `json:"user_id"`
	ProposalID   string              `json:"proposal_id"`
	Availability map[string][]string `json:"availability"`
	SubmittedAt  time.Time           `json:"submitted_at"`
}

type SuggestionsResponse struct {
	ProposalID  string              `json:"proposal_id"`
	Suggestions []entity.Suggestion `json:"suggestions"`
}

type SuggestionGroup struct {
	Date        string              `json:"date"`
	Suggestions []entity.Suggestion `json:"suggestions"`
}

type StoredSuggestionsResponse struct {
	ProposalID string            `json:"proposal_id"`
	Groups     []SuggestionGroup `json:"groups"`
}

// ===================== Mapper Functions =====================

func ToProposalResponse(p *entity.EventProposal) *ProposalResponse {
	return &ProposalResponse{
		ID:              p.ID.String(),
		CreatorID:       p.CreatorID,
		Title:           p.Title,
		Description:     p.Description,
		ProposedDates:   append([]string{}, p.ProposedDates...),
		TimeRangeStart:  p.TimeRangeStart.HHMM(),
		TimeRangeEnd:    p.TimeRangeEnd.HHMM(),
		DurationMinutes: p.DurationMinutes,
		Timezone:        p.Timezone,
		InviteeIDs:      append([]string{}, p.InviteeIDs...),
		ShareSlug:       p.ShareSlug,
		CreatedAt:       p.CreatedAt,
	}
}

func ToSubmissionResponse(s *entity.AvailabilitySubmission) *SubmissionResponse {
	return &SubmissionResponse{
		UserID:       s.UserID,
		ProposalID:   s.ProposalID.String(),
		Availability: s.Availability,
		SubmittedAt:  s.SubmittedAt,
	}
}

// GroupByDate buckets suggestions by date. Groups appear in order of their
// first suggestion and keep the ranking inside each group.
func GroupByDate(suggestions []entity.Suggestion) []SuggestionGroup {
	groups := []SuggestionGroup{}
	index := make(map[string]int)
	for _, s := range suggestions {
		i, ok := index[s.SuggestedDate]
		if !ok {
			i = len(groups)
			index[s.SuggestedDate] = i
			groups = append(groups, SuggestionGroup{Date: s.SuggestedDate})
		}
		groups[i].Suggestions = append(groups[i].Suggestions, s)
	}
	return groups
}
