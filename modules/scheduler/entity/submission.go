package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// AvailabilitySubmission holds one user's free blocks for one proposal.
// (UserID, ProposalID) is unique; a resubmission replaces the row.
type AvailabilitySubmission struct {
	UserID       string       `db:"user_id" json:"user_id"`
	ProposalID   uuid.UUID    `db:"proposal_id" json:"proposal_id"`
	Availability Availability `db:"availability" json:"availability"`
	SubmittedAt  time.Time    `db:"submitted_at" json:"submitted_at"`
}

// Availability maps a date (YYYY-MM-DD) to the HH:MM starts of the blocks
// the user marked free.
type Availability map[string][]string

func (a Availability) Value() (driver.Value, error) {
	if a == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(a)
}

func (a *Availability) Scan(value any) error {
	if value == nil {
		*a = Availability{}
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, a)
}
