package tracker

import (
	"strings"
	"time"
)

// Time is a timestamp as the tracker formats it, e.g.
// 2025-12-19T02:02:43.196+0000.
type Time struct {
	time.Time
}

// The tracker writes offsets as +0000, which time.RFC3339 does not accept.
var timeLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05-0700",
	time.RFC3339Nano,
	time.RFC3339,
}

// UnmarshalJSON accepts any of timeLayouts. Empty strings and null leave t
// at the zero time.
func (t *Time) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}

	var lastErr error
	for _, layout := range timeLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// Ref is the reference form the tracker uses for statuses, priorities,
// types, resolutions and queues embedded in an issue.
type Ref struct {
	ID      string `json:"id"`
	Key     string `json:"key"`
	Display string `json:"display"`
}

// UserRef identifies a user.
type UserRef struct {
	ID      string `json:"id"`
	Display string `json:"display"`
	Login   string `json:"login,omitempty"`
}

// Queue is a tracker queue.
type Queue struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Lead        *UserRef `json:"lead,omitempty"`
}

// Issue is a single tracker issue.
type Issue struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Queue       Ref       `json:"queue"`
	Status      Ref       `json:"status"`
	Priority    Ref       `json:"priority"`
	Type        Ref       `json:"type"`
	Resolution  *Ref      `json:"resolution"`
	Author      UserRef   `json:"createdBy"`
	Assignee    *UserRef  `json:"assignee"`
	Followers   []UserRef `json:"followers"`
	Tags        []string  `json:"tags"`
	CreatedAt   Time      `json:"createdAt"`
	UpdatedAt   Time      `json:"updatedAt"`
	ResolvedAt  *Time     `json:"resolvedAt"`
}

// Comment is a comment on an issue.
type Comment struct {
	ID        int64   `json:"id"`
	Text      string  `json:"text"`
	Author    UserRef `json:"createdBy"`
	CreatedAt Time    `json:"createdAt"`
	UpdatedAt Time    `json:"updatedAt"`
}

type searchRequest struct {
	Query string `json:"query,omitempty"`
}
