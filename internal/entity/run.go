package entity

import (
	"time"

	"github.com/google/uuid"
)

// Run represents one batch run for data transfer between layers.
type Run struct {
	ID         uuid.UUID  `json:"id"`
	Source     string     `json:"source"`
	Status     string     `json:"status"`
	Documents  int        `json:"documents"`
	Succeeded  int        `json:"succeeded"`
	Failed     int        `json:"failed"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// RunStats summarizes a finished run.
type RunStats struct {
	Documents int
	Succeeded int
	Failed    int
}
