package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClockTime is a wall-clock time of day, stored as minutes after midnight.
type ClockTime int

// ParseClock accepts "HH:MM" and "HH:MM:SS". Seconds must be zero.
func ParseClock(s string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		if len(p) != 2 {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
		nums[i] = n
	}
	if nums[0] > 23 || nums[1] > 59 || (len(nums) == 3 && nums[2] != 0) {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return ClockTime(nums[0]*60 + nums[1]), nil
}

func MustParseClock(s string) ClockTime {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }

// On places c on the calendar day of d in loc.
func (c ClockTime) On(d time.Time, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, loc)
}

// HHMM renders "09:30", the marker format used by availability grids.
func (c ClockTime) HHMM() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// String renders "09:30:00".
func (c ClockTime) String() string {
	return c.HHMM() + ":00"
}

func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ClockTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c ClockTime) Value() (driver.Value, error) {
	return c.String(), nil
}

func (c *ClockTime) Scan(value any) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case time.Time:
		*c = ClockTime(v.Hour()*60 + v.Minute())
		return nil
	default:
		return fmt.Errorf("cannot scan %T into ClockTime", value)
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
