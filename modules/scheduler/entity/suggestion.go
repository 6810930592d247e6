package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// TimeSlot is a candidate meeting interval and the users free for it.
type TimeSlot struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Participants []string  `json:"participants"`
}

type ScoredSlot struct {
	TimeSlot
	Score int `json:"score"`
}

// Suggestion is the stored form of a ScoredSlot.
type Suggestion struct {
	ProposalID         uuid.UUID          `db:"proposal_id" json:"proposal_id"`
	SuggestedDate      string             `db:"suggested_date" json:"suggested_date"`
	SuggestedStartTime string             `db:"suggested_start_time" json:"suggested_start_time"`
	SuggestedEndTime   string             `db:"suggested_end_time" json:"suggested_end_time"`
	ParticipantCount   int                `db:"participant_count" json:"participant_count"`
	Score              int                `db:"score" json:"score"`
	Metadata           SuggestionMetadata `db:"metadata" json:"metadata"`
}

type SuggestionMetadata struct {
	Participants []string `json:"participants"`
}

func (m SuggestionMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *SuggestionMetadata) Scan(value any) error {
	if value == nil {
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
	return json.Unmarshal(b, m)
}

// CloneSuggestions deep-copies list so callers cannot mutate cached state.
func CloneSuggestions(list []Suggestion) []Suggestion {
	if list == nil {
		return nil
	}
	out := make([]Suggestion, len(list))
	for i, s := range list {
		out[i] = s
		out[i].Metadata.Participants = append([]string(nil), s.Metadata.Participants...)
	}
	return out
}
