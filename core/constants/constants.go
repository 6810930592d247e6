package constants

import "time"

const (
	DefaultRequestTimeout = 10 * time.Second
	DefaultFetchTimeout   = 5 * time.Second
	DefaultPersistTimeout = 5 * time.Second
	DefaultShutdownTime   = 10 * time.Second
)

// Database defaults
const (
	DatabaseSSLMode         = "disable"
	DatabaseMaxOpenConns    = 25
	DatabaseMaxIdleConns    = 5
	DatabaseConnMaxLifetime = 30 // minutes
)

// Echo context keys
const (
	ContextTokenData = "token_data"
	HeaderRequestID  = "X-Request-ID"
)

// Cache keys, prefixed by cache.key_prefix
const (
	CacheKeySuggestions = "suggestions:"
	CacheKeySubmissions = "submissions:"
)

// Tables watched by the realtime bridge
const (
	TableAvailabilitySubmissions = "availability_submissions"
	ColumnProposalID             = "proposal_id"
)

// Task types
const (
	TaskProposalRecompute = "proposal:recompute"
	QueueScheduler        = "scheduler"
)

// Scheduling grid
const (
	GridGranularityMinutes = 15
	DefaultStepMinutes     = 30
	DefaultBlockMinutes    = 30
	MaxProposalDates       = 62
	DateLayout             = "2006-01-02"
	ClockLayout            = "15:04"
	ClockLayoutSeconds     = "15:04:05"
)
