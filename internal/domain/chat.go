package domain

import "time"

// Role identifies who produced a chat turn.
type Role string

const (
	// RoleUser marks a turn typed by the user.
	RoleUser Role = "user"
	// RoleAssistant marks a generated turn.
	RoleAssistant Role = "assistant"
)

// ChatTurn is one entry in a session's append-only history.
// Recommendations and ResponseTime are set on assistant turns only.
type ChatTurn struct {
	Role            Role             `json:"role"`
	Content         string           `json:"content"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
	ResponseTime    time.Duration    `json:"response_time,omitempty"`
}

// Answer is the result of one pass through the query pipeline.
type Answer struct {
	Text            string
	Recommendations []Recommendation
	Elapsed         time.Duration
}
