package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/JamisonProctor/planz/utils"
	Logger "github.com/JamisonProctor/planz/utils/log"
)

// Engine runs stages one after another. Stages share no state beyond the
// database they write to.
type Engine struct {
	// A list of stages that will be run in this Engine, in order.
	Stages []Stage

	// Interval of the "still running" log line while a stage runs, 0 disables
	// it.
	HeartbeatInterval time.Duration

	Stats *utils.RunStats
}

func NewEngine(stages []Stage, heartbeatInterval time.Duration, clock func() time.Time) *Engine {
	return &Engine{
		Stages:            stages,
		HeartbeatInterval: heartbeatInterval,
		Stats:             utils.NewRunStats(clock),
	}
}

// Run executes every stage and logs a status line after each. It stops at the
// first failing stage, or quietly at the first *StopPipeline.
func (e *Engine) Run(ctx context.Context, now time.Time) error {
	for _, stage := range e.Stages {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "pipeline cancelled")
		}
		Logger.Log.Infof("start stage %s", stage.Name())

		stop := utils.StartHeartbeat(stage.Name(), e.HeartbeatInterval, Logger.Log)
		err := e.Stats.Time(stage.Name(), func() error {
			counters, err := stage.RunStage(ctx, now)
			for k, v := range counters {
				e.Stats.Add(k, v)
			}
			return err
		})
		stop()
		Logger.Log.Info(e.Stats.StatusLine())

		var halt *StopPipeline
		if errors.As(err, &halt) {
			Logger.Log.Info(halt.Reason)
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "stage %s failed", stage.Name())
		}
		Logger.Log.Infof("stage %s finished", stage.Name())
	}
	return nil
}
