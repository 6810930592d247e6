package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// EventProposal is a request to find a meeting time among invitees.
// It is immutable once created.
type EventProposal struct {
	ID              uuid.UUID      `db:"id" json:"id"`
	CreatorID       string         `db:"creator_id" json:"creator_id"`
	Title           string         `db:"title" json:"title"`
	Description     string         `db:"description" json:"description"`
	ProposedDates   pq.StringArray `db:"proposed_dates" json:"proposed_dates"` // YYYY-MM-DD, display order
	TimeRangeStart  ClockTime      `db:"time_range_start" json:"time_range_start"`
	TimeRangeEnd    ClockTime      `db:"time_range_end" json:"time_range_end"`
	DurationMinutes int            `db:"duration_minutes" json:"duration_minutes"`
	Timezone        string         `db:"timezone" json:"timezone"`
	InviteeIDs      pq.StringArray `db:"invitee_ids" json:"invitee_ids"`
	ShareSlug       string         `db:"share_slug" json:"share_slug"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
}
