package pipeline

import (
	"context"
	"time"
)

type Stage interface {
	// RunStage contains the logic of the stage and returns its counters, which
	// are merged into the run's status line. Return a *StopPipeline to end the
	// run early without failing it.
	RunStage(ctx context.Context, now time.Time) (map[string]int, error)

	// Return name of the Stage. Used as step label in heartbeats and status
	// lines.
	Name() string
}

// StopPipeline ends a run after the current stage. The run counts as
// successful.
type StopPipeline struct {
	Reason string
}

func (s *StopPipeline) Error() string {
	return s.Reason
}
