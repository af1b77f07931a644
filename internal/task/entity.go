package task

import "time"

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPlanned            Status = "planned"
	StatusWaitingForInternet Status = "waiting_for_internet"
	StatusExecuting          Status = "executing"
	StatusCompleted          Status = "completed"
	StatusFailed             Status = "failed"
)

// CanTransition reports whether a status change is legal. Transitions are
// monotonic except for the executing/waiting_for_internet retry edge.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPlanned:
		return to == StatusExecuting || to == StatusWaitingForInternet || to == StatusCompleted
	case StatusWaitingForInternet:
		return to == StatusExecuting || to == StatusCompleted
	case StatusExecuting:
		return to == StatusWaitingForInternet || to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// Source is a citation attached to a task by the external completion path.
type Source struct {
	Title string `yaml:"title" json:"title"`
	URL   string `yaml:"url" json:"url"`
}

type Task struct {
	ID              string    `yaml:"id" json:"id"`
	OriginalRequest string    `yaml:"original_request" json:"original_request"`
	Plan            string    `yaml:"plan" json:"plan"`
	Status          Status    `yaml:"status" json:"status"`
	RequiresInternet bool     `yaml:"requires_internet" json:"requires_internet"`
	ModelUsed       string    `yaml:"model_used" json:"model_used"`
	Sources         []Source  `yaml:"sources,omitempty" json:"sources,omitempty"`
	ExtractedTime   string    `yaml:"extracted_time,omitempty" json:"extracted_time,omitempty"`
	CreatedAt       time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt       time.Time `yaml:"updated_at" json:"updated_at"`
}
