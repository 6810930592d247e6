package repository

import (
	"context"
	"database/sql"
	"errors"

	"group-scheduler/core/database"
	"group-scheduler/core/logger"
	"group-scheduler/modules/scheduler/entity"

	"github.com/google/uuid"
)

// SchedulerRepository stores proposals, submissions and suggestions
// (event_proposals, availability_submissions, event_suggestions tables).
type SchedulerRepository struct {
	DB database.IDatabase
}

func NewSchedulerRepository(db database.IDatabase) *SchedulerRepository {
	return &SchedulerRepository{DB: db}
}

// SchedulerRepositoryInterface defines the repository contract.
type SchedulerRepositoryInterface interface {
	// Proposals
	CreateProposal(ctx context.Context, proposal *entity.EventProposal) (*entity.EventProposal, error)
	GetProposalByID(ctx context.Context, id uuid.UUID) (*entity.EventProposal, error)
	GetProposalsByCreator(ctx context.Context, creatorID string) ([]entity.EventProposal, error)

	// Submissions
	UpsertSubmission(ctx context.Context, submission *entity.AvailabilitySubmission) (*entity.AvailabilitySubmission, error)
	ListSubmissions(ctx context.Context, proposalID uuid.UUID) ([]entity.AvailabilitySubmission, error)

	// Suggestions
	SaveSuggestions(ctx context.Context, proposalID uuid.UUID, suggestions []entity.Suggestion) error
	ListSuggestions(ctx context.Context, proposalID uuid.UUID) ([]entity.Suggestion, error)
}

const proposalColumns = `id, creator_id, title, description, proposed_dates, time_range_start, time_range_end,
		       duration_minutes, timezone, invitee_ids, share_slug, created_at`

// ===================== Proposals =====================

func (r *SchedulerRepository) CreateProposal(ctx context.Context, proposal *entity.EventProposal) (*entity.EventProposal, error) {
	query := `
		INSERT INTO event_proposals (creator_id, title, description, proposed_dates, time_range_start, time_range_end,
		                             duration_minutes, timezone, invitee_ids, share_slug)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + proposalColumns

	var created entity.EventProposal
	err := r.DB.GetContext(ctx, &created, query,
		proposal.CreatorID, proposal.Title, proposal.Description, proposal.ProposedDates,
		proposal.TimeRangeStart, proposal.TimeRangeEnd, proposal.DurationMinutes,
		proposal.Timezone, proposal.InviteeIDs, proposal.ShareSlug)
	if err != nil {
		logger.Error("SchedulerRepository:CreateProposal", err)
		return nil, err
	}
	return &created, nil
}

func (r *SchedulerRepository) GetProposalByID(ctx context.Context, id uuid.UUID) (*entity.EventProposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM event_proposals WHERE id = $1`

	var proposal entity.EventProposal
	err := r.DB.GetContext(ctx, &proposal, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Error("SchedulerRepository:GetProposalByID", err)
		return nil, err
	}
	return &proposal, nil
}

func (r *SchedulerRepository) GetProposalsByCreator(ctx context.Context, creatorID string) ([]entity.EventProposal, error) {
	query := `
		SELECT ` + proposalColumns + `
		FROM event_proposals
		WHERE creator_id = $1
		ORDER BY created_at DESC
	`

	proposals := []entity.EventProposal{}
	err := r.DB.SelectContext(ctx, &proposals, query, creatorID)
	if err != nil {
		logger.Error("SchedulerRepository:GetProposalsByCreator", err)
		return nil, err
	}
	return proposals, nil
}

// ===================== Submissions =====================

func (r *SchedulerRepository) UpsertSubmission(ctx context.Context, submission *entity.AvailabilitySubmission) (*entity.AvailabilitySubmission, error) {
	query := `
		INSERT INTO availability_submissions (user_id, proposal_id, availability, submitted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, proposal_id) DO UPDATE
		SET availability = EXCLUDED.availability, submitted_at = EXCLUDED.submitted_at
		RETURNING user_id, proposal_id, availability, submitted_at
	`

	var saved entity.AvailabilitySubmission
	err := r.DB.GetContext(ctx, &saved, query,
		submission.UserID, submission.ProposalID, submission.Availability, submission.SubmittedAt)
	if err != nil {
		logger.Error("SchedulerRepository:UpsertSubmission", err)
		return nil, err
	}
	return &saved, nil
}

func (r *SchedulerRepository) ListSubmissions(ctx context.Context, proposalID uuid.UUID) ([]entity.AvailabilitySubmission, error) {
	query := `
		SELECT user_id, proposal_id, availability, submitted_at
		FROM availability_submissions
		WHERE proposal_id = $1
		ORDER BY submitted_at, user_id
	`

	submissions := []entity.AvailabilitySubmission{}
	err := r.DB.SelectContext(ctx, &submissions, query, proposalID)
	if err != nil {
		logger.Error("SchedulerRepository:ListSubmissions", err)
		return nil, err
	}
	return submissions, nil
}

// ===================== Suggestions =====================

// SaveSuggestions replaces the stored suggestions of a proposal in one
// transaction. Rows are keyed by (proposal_id, suggested_date, suggested_start_time),
// so racing writers converge instead of duplicating.
func (r *SchedulerRepository) SaveSuggestions(ctx context.Context, proposalID uuid.UUID, suggestions []entity.Suggestion) (err error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		logger.Error("SchedulerRepository:SaveSuggestions:Begin", err)
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM event_suggestions WHERE proposal_id = $1`, proposalID); err != nil {
		logger.Error("SchedulerRepository:SaveSuggestions:Clear", err)
		return err
	}

	query := `
		INSERT INTO event_suggestions (proposal_id, suggested_date, suggested_start_time, suggested_end_time,
		                               participant_count, score, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (proposal_id, suggested_date, suggested_start_time) DO UPDATE
		SET suggested_end_time = EXCLUDED.suggested_end_time,
		    participant_count = EXCLUDED.participant_count,
		    score = EXCLUDED.score,
		    metadata = EXCLUDED.metadata
	`
	for _, s := range suggestions {
		if _, err = tx.ExecContext(ctx, query,
			proposalID, s.SuggestedDate, s.SuggestedStartTime, s.SuggestedEndTime,
			s.ParticipantCount, s.Score, s.Metadata); err != nil {
			logger.Error("SchedulerRepository:SaveSuggestions:Insert", err)
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		logger.Error("SchedulerRepository:SaveSuggestions:Commit", err)
		return err
	}
	return nil
}

func (r *SchedulerRepository) ListSuggestions(ctx context.Context, proposalID uuid.UUID) ([]entity.Suggestion, error) {
	query := `
		SELECT proposal_id, suggested_date, suggested_start_time, suggested_end_time,
		       participant_count, score, metadata
		FROM event_suggestions
		WHERE proposal_id = $1
		ORDER BY score DESC, suggested_date ASC, suggested_start_time ASC
	`

	suggestions := []entity.Suggestion{}
	err := r.DB.SelectContext(ctx, &suggestions, query, proposalID)
	if err != nil {
		logger.Error("SchedulerRepository:ListSuggestions", err)
		return nil, err
	}
	return suggestions, nil
}
