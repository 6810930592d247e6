package worker

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"group-scheduler/core/constants"
	"group-scheduler/core/errors"
	"group-scheduler/core/logger"
	"group-scheduler/modules/scheduler/entity"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// RecomputePayload is the body of a proposal:recompute task.
type RecomputePayload struct {
	ProposalID uuid.UUID `json:"proposal_id"`
}

func NewRecomputeTask(proposalID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(RecomputePayload{ProposalID: proposalID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(constants.TaskProposalRecompute, payload), nil
}

// TaskClient is satisfied by *asynq.Client.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer schedules recompute tasks. Bursts of submissions for the same
// proposal collapse into one pending task.
type Enqueuer struct {
	client   TaskClient
	queue    string
	maxRetry int
	unique   time.Duration
}

func NewEnqueuer(client TaskClient, queue string, maxRetry int) *Enqueuer {
	return &Enqueuer{
		client:   client,
		queue:    queue,
		maxRetry: maxRetry,
		unique:   10 * time.Second,
	}
}

func (e *Enqueuer) EnqueueRecompute(ctx context.Context, proposalID uuid.UUID) error {
	task, err := NewRecomputeTask(proposalID)
	if err != nil {
		return err
	}

	info, err := e.client.EnqueueContext(ctx, task,
		asynq.Queue(e.queue),
		asynq.MaxRetry(e.maxRetry),
		asynq.Unique(e.unique),
	)
	if err != nil {
		if stderrors.Is(err, asynq.ErrDuplicateTask) {
			logger.Debug("Enqueuer:EnqueueRecompute:Duplicate", "proposal_id", proposalID)
			return nil
		}
		return fmt.Errorf("enqueue %s: %w", constants.TaskProposalRecompute, err)
	}

	logger.Debug("Enqueuer:EnqueueRecompute", "proposal_id", proposalID, "task_id", info.ID)
	return nil
}

// Recomputer is the part of the scheduler service the worker drives.
type Recomputer interface {
	ClearProposalCache(ctx context.Context, proposalID uuid.UUID)
	ComputeAvailability(ctx context.Context, proposalID uuid.UUID) ([]entity.Suggestion, *errors.AppError)
}

// RecomputeHandler refreshes cached and stored suggestions for a proposal.
type RecomputeHandler struct {
	service Recomputer
}

func NewRecomputeHandler(service Recomputer) *RecomputeHandler {
	return &RecomputeHandler{service: service}
}

// Register mounts the handler on mux.
func (h *RecomputeHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(constants.TaskProposalRecompute, h.ProcessTask)
}

func (h *RecomputeHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload RecomputePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.ProposalID == uuid.Nil {
		return fmt.Errorf("missing proposal_id: %w", asynq.SkipRetry)
	}

	h.service.ClearProposalCache(ctx, payload.ProposalID)
	suggestions, appErr := h.service.ComputeAvailability(ctx, payload.ProposalID)
	if appErr != nil {
		if appErr.Code == errors.ErrNotFound {
			return fmt.Errorf("%v: %w", appErr, asynq.SkipRetry)
		}
		return appErr
	}

	logger.Info("RecomputeHandler:ProcessTask", "proposal_id", payload.ProposalID, "suggestions", len(suggestions))
	return nil
}
