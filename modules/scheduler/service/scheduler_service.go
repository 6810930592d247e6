package service

import (
	"context"
	"fmt"
	"time"

	"group-scheduler/core/constants"
	"group-scheduler/core/errors"
	"group-scheduler/core/logger"
	"group-scheduler/core/realtime"
	"group-scheduler/modules/scheduler/dto"
	"group-scheduler/modules/scheduler/engine"
	"group-scheduler/modules/scheduler/entity"
	"group-scheduler/modules/scheduler/repository"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Enqueuer schedules a background recomputation for a proposal.
type Enqueuer interface {
	EnqueueRecompute(ctx context.Context, proposalID uuid.UUID) error
}

// SchedulerService handles proposals, submissions and suggestion computation.
type SchedulerService struct {
	repo       repository.SchedulerRepositoryInterface
	cache      *SuggestionCache
	calculator *engine.Calculator

	subscriber realtime.Subscriber
	publisher  realtime.Publisher
	enqueuer   Enqueuer

	fetchTimeout   time.Duration
	persistTimeout time.Duration
	now            func() time.Time

	flights singleflight.Group
}

// SchedulerServiceInterface defines the service contract
type SchedulerServiceInterface interface {
	// Proposals
	CreateProposal(ctx context.Context, creatorID string, req *dto.CreateProposalRequest) (*dto.ProposalResponse, *errors.AppError)
	GetProposal(ctx context.Context, id uuid.UUID) (*dto.ProposalResponse, *errors.AppError)
	ListMyProposals(ctx context.Context, creatorID string) ([]dto.ProposalResponse, *errors.AppError)
	GetGrid(ctx context.Context, id uuid.UUID) (*dto.GridResponse, *errors.AppError)

	// Submissions
	SubmitAvailability(ctx context.Context, userID string, proposalID uuid.UUID, req *dto.SubmitAvailabilityRequest) (*dto.SubmissionResponse, *errors.AppError)

	// Suggestions
	ComputeAvailability(ctx context.Context, proposalID uuid.UUID) ([]entity.Suggestion, *errors.AppError)
	ClearProposalCache(ctx context.Context, proposalID uuid.UUID)
	OnNewSubmission(proposalID uuid.UUID, handler func([]entity.Suggestion)) (realtime.Unsubscribe, *errors.AppError)
	ListStoredSuggestions(ctx context.Context, proposalID uuid.UUID) (*dto.StoredSuggestionsResponse, *errors.AppError)
	ExportCalendar(ctx context.Context, proposalID uuid.UUID) (string, *errors.AppError)
}

type Option func(*SchedulerService)

// WithRealtime sets the transport used to watch and announce submissions.
// Either side may be nil.
func WithRealtime(subscriber realtime.Subscriber, publisher realtime.Publisher) Option {
	return func(s *SchedulerService) {
		s.subscriber = subscriber
		s.publisher = publisher
	}
}

func WithEnqueuer(enqueuer Enqueuer) Option {
	return func(s *SchedulerService) { s.enqueuer = enqueuer }
}

func WithTimeouts(fetch, persist time.Duration) Option {
	return func(s *SchedulerService) {
		if fetch > 0 {
			s.fetchTimeout = fetch
		}
		if persist > 0 {
			s.persistTimeout = persist
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *SchedulerService) { s.now = now }
}

// NewSchedulerService creates a new scheduler service
func NewSchedulerService(repo repository.SchedulerRepositoryInterface, cache *SuggestionCache, calculator *engine.Calculator, opts ...Option) *SchedulerService {
	s := &SchedulerService{
		repo:           repo,
		cache:          cache,
		calculator:     calculator,
		fetchTimeout:   constants.DefaultFetchTimeout,
		persistTimeout: constants.DefaultPersistTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ComputeAvailability returns the ranked suggestions for a proposal, from
// cache when present. Concurrent misses for the same proposal and cache
// generation share one computation. Persisting the result is best-effort.
func (s *SchedulerService) ComputeAvailability(ctx context.Context, proposalID uuid.UUID) ([]entity.Suggestion, *errors.AppError) {
	if cached, ok := s.cache.Suggestions(ctx, proposalID); ok {
		logger.Debug("SchedulerService:ComputeAvailability:CacheHit", "proposal_id", proposalID)
		return cached, nil
	}

	gen := s.cache.Generation(proposalID)
	key := fmt.Sprintf("%s#%d", proposalID, gen)

	// The flight outlives any single caller, so it must not inherit a cancel.
	flightCtx := context.WithoutCancel(ctx)
	v, err, shared := s.flights.Do(key, func() (any, error) {
		if cached, ok := s.cache.Suggestions(flightCtx, proposalID); ok {
			return cached, nil
		}
		return s.recompute(flightCtx, proposalID, gen)
	})
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			return nil, appErr
		}
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to compute availability", err)
	}

	suggestions := v.([]entity.Suggestion)
	if shared {
		suggestions = entity.CloneSuggestions(suggestions)
	}
	return suggestions, nil
}

func (s *SchedulerService) recompute(ctx context.Context, proposalID uuid.UUID, gen uint64) ([]entity.Suggestion, error) {
	proposal, submissions, appErr := s.fetchInputs(ctx, proposalID)
	if appErr != nil {
		return nil, appErr
	}

	slots, err := s.calculator.Calculate(proposal, submissions)
	if err != nil {
		return nil, err
	}
	suggestions := engine.ToSuggestions(proposalID, engine.ScoreSlots(slots, proposal))

	if !s.cache.Store(ctx, proposalID, gen, submissions, suggestions) {
		logger.Info("SchedulerService:ComputeAvailability:NotCached", "proposal_id", proposalID, "generation", gen)
	}
	s.persist(ctx, proposalID, suggestions)

	logger.Info("SchedulerService:ComputeAvailability:Computed",
		"proposal_id", proposalID,
		"submissions", len(submissions),
		"suggestions", len(suggestions),
	)
	return entity.CloneSuggestions(suggestions), nil
}

// fetchInputs loads the proposal and its submissions concurrently.
func (s *SchedulerService) fetchInputs(ctx context.Context, proposalID uuid.UUID) (*entity.EventProposal, []entity.AvailabilitySubmission, *errors.AppError) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	var (
		proposal    *entity.EventProposal
		submissions []entity.AvailabilitySubmission
	)
	g, gctx := errgroup.WithContext(fetchCtx)
	g.Go(func() error {
		p, err := s.repo.GetProposalByID(gctx, proposalID)
		if err != nil {
			return errors.NewAppError(errors.ErrFetchFailed, "Failed to fetch proposal", err)
		}
		if p == nil {
			return errors.NewAppError(errors.ErrNotFound, "Proposal not found", nil)
		}
		proposal = p
		return nil
	})
	g.Go(func() error {
		list, err := s.repo.ListSubmissions(gctx, proposalID)
		if err != nil {
			return errors.NewAppError(errors.ErrFetchFailed, "Failed to fetch submissions", err)
		}
		submissions = list
		return nil
	})

	if err := g.Wait(); err != nil {
		appErr, ok := errors.AsAppError(err)
		if !ok {
			appErr = errors.NewAppError(errors.ErrFetchFailed, "Failed to fetch proposal data", err)
		}
		logger.Error("SchedulerService:ComputeAvailability:Fetch", "proposal_id", proposalID, "error", appErr)
		return nil, nil, appErr
	}
	return proposal, submissions, nil
}

func (s *SchedulerService) persist(ctx context.Context, proposalID uuid.UUID, suggestions []entity.Suggestion) {
	persistCtx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()

	if err := s.repo.SaveSuggestions(persistCtx, proposalID, suggestions); err != nil {
		appErr := errors.NewAppError(errors.ErrPersistFailed, "Failed to persist suggestions", err)
		logger.Error("SchedulerService:ComputeAvailability:Persist", "proposal_id", proposalID, "error", appErr)
	}
}

// ClearProposalCache invalidates cached suggestions and submissions for a
// proposal. It never fails.
func (s *SchedulerService) ClearProposalCache(ctx context.Context, proposalID uuid.UUID) {
	s.cache.Clear(ctx, proposalID)
	logger.Debug("SchedulerService:ClearProposalCache", "proposal_id", proposalID)
}

// OnNewSubmission calls handler with fresh suggestions after every
// submission written for the proposal. Recomputation failures are logged and
// the handler is skipped for that event.
func (s *SchedulerService) OnNewSubmission(proposalID uuid.UUID, handler func([]entity.Suggestion)) (realtime.Unsubscribe, *errors.AppError) {
	if s.subscriber == nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Realtime transport is not configured", nil)
	}

	filter := realtime.Filter{Column: constants.ColumnProposalID, Value: proposalID.String()}
	unsubscribe, err := s.subscriber.SubscribeInsert(constants.TableAvailabilitySubmissions, filter, func(ev realtime.InsertEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultRequestTimeout)
		defer cancel()

		s.ClearProposalCache(ctx, proposalID)
		suggestions, appErr := s.ComputeAvailability(ctx, proposalID)
		if appErr != nil {
			logger.Error("SchedulerService:OnNewSubmission:Compute", "proposal_id", proposalID, "user_id", ev.Row["user_id"], "error", appErr)
			return
		}
		handler(suggestions)
	})
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to subscribe to submissions", err)
	}

	logger.Info("SchedulerService:OnNewSubmission:Subscribed", "proposal_id", proposalID)
	return unsubscribe, nil
}
