package service

import (
	"context"
	"sync"

	"group-scheduler/core/cache"
	"group-scheduler/core/constants"
	"group-scheduler/core/logger"
	"group-scheduler/modules/scheduler/entity"

	"github.com/google/uuid"
)

// SuggestionCache keeps the last computed suggestions and the submissions
// they were computed from, keyed per proposal. Entries have no TTL; they
// live until Clear.
//
// Each proposal carries a generation that Clear bumps. A computation records
// the generation it started under and may only populate the cache if it is
// still current, so a result built from pre-invalidation data is dropped.
type SuggestionCache struct {
	store  cache.Store
	prefix string

	mu          sync.Mutex
	generations map[uuid.UUID]uint64
}

func NewSuggestionCache(store cache.Store, prefix string) *SuggestionCache {
	return &SuggestionCache{
		store:       store,
		prefix:      prefix,
		generations: make(map[uuid.UUID]uint64),
	}
}

func (c *SuggestionCache) suggestionsKey(id uuid.UUID) string {
	return c.prefix + constants.CacheKeySuggestions + id.String()
}

func (c *SuggestionCache) submissionsKey(id uuid.UUID) string {
	return c.prefix + constants.CacheKeySubmissions + id.String()
}

// Suggestions returns the cached list. Backend errors count as a miss.
func (c *SuggestionCache) Suggestions(ctx context.Context, id uuid.UUID) ([]entity.Suggestion, bool) {
	var out []entity.Suggestion
	ok, err := cache.GetJSON(ctx, c.store, c.suggestionsKey(id), &out)
	if err != nil {
		logger.Warn("SuggestionCache:Suggestions", "proposal_id", id, "error", err)
		return nil, false
	}
	if ok && out == nil {
		out = []entity.Suggestion{}
	}
	return out, ok
}

// Submissions returns the submissions the cached suggestions were built from.
func (c *SuggestionCache) Submissions(ctx context.Context, id uuid.UUID) ([]entity.AvailabilitySubmission, bool) {
	var out []entity.AvailabilitySubmission
	ok, err := cache.GetJSON(ctx, c.store, c.submissionsKey(id), &out)
	if err != nil {
		logger.Warn("SuggestionCache:Submissions", "proposal_id", id, "error", err)
		return nil, false
	}
	return out, ok
}

func (c *SuggestionCache) Generation(id uuid.UUID) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[id]
}

// Store writes both entries if gen is still the proposal's generation and
// reports whether it did.
func (c *SuggestionCache) Store(ctx context.Context, id uuid.UUID, gen uint64, submissions []entity.AvailabilitySubmission, suggestions []entity.Suggestion) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generations[id] != gen {
		return false
	}
	if err := cache.SetJSON(ctx, c.store, c.submissionsKey(id), submissions); err != nil {
		logger.Warn("SuggestionCache:Store:Submissions", "proposal_id", id, "error", err)
		return false
	}
	if err := cache.SetJSON(ctx, c.store, c.suggestionsKey(id), suggestions); err != nil {
		logger.Warn("SuggestionCache:Store:Suggestions", "proposal_id", id, "error", err)
		_ = c.store.Del(ctx, c.submissionsKey(id))
		return false
	}
	return true
}

// Clear drops both entries and starts a new generation. Safe to call for an
// unknown proposal and any number of times.
func (c *SuggestionCache) Clear(ctx context.Context, id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generations[id]++
	if err := c.store.Del(ctx, c.suggestionsKey(id), c.submissionsKey(id)); err != nil {
		logger.Warn("SuggestionCache:Clear", "proposal_id", id, "error", err)
	}
}
