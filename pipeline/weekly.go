package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/JamisonProctor/planz/app_setting"
	"github.com/JamisonProctor/planz/calendar"
	"github.com/JamisonProctor/planz/collector"
	"github.com/JamisonProctor/planz/discovery"
	"github.com/JamisonProctor/planz/publisher"
	"github.com/JamisonProctor/planz/utils"
	Logger "github.com/JamisonProctor/planz/utils/log"
)

const WeeklyJobName = "planz_weekly"

var ErrRunInProgress = errors.New("another weekly run holds the lock")

// WeeklyPipeline is the scheduled end to end run: optional seeding, then
// fetch, extract and calendar sync.
type WeeklyPipeline struct {
	Setting app_setting.PlanzAppSetting
	// Seeder is optional, nil skips discovery.
	Seeder        *discovery.Seeder
	FetchJob      *collector.SourceFetchJob
	ExtractionJob *publisher.ExtractionJob
	Syncer        *calendar.Syncer

	// Lock is optional and keeps two runs from overlapping.
	Lock           *utils.RunLock
	PushgatewayUrl string
	Clock          func() time.Time
}

func (p *WeeklyPipeline) stages() []Stage {
	stages := []Stage{}
	if p.Seeder != nil {
		stages = append(stages, &SeedStage{Seeder: p.Seeder})
	}
	return append(stages,
		&FetchStage{Job: p.FetchJob},
		&ExtractStage{Job: p.ExtractionJob},
		&SyncStage{Syncer: p.Syncer},
	)
}

// RunWeeklyPipeline checks preconditions before touching anything, then runs
// the stages and returns the run statistics.
func (p *WeeklyPipeline) RunWeeklyPipeline(ctx context.Context, now time.Time) (*utils.RunStats, error) {
	if p.Syncer == nil || p.Syncer.Client == nil {
		return nil, calendar.ErrMissingCalendarClient
	}

	if p.Lock != nil {
		acquired, err := p.Lock.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		if !acquired {
			return nil, ErrRunInProgress
		}
		defer func() {
			if err := p.Lock.Release(context.Background()); err != nil {
				Logger.Log.Warn("fail to release run lock: ", err)
			}
		}()
	}

	engine := NewEngine(p.stages(), p.Setting.HeartbeatInterval(), p.Clock)
	err := engine.Run(ctx, now)
	Logger.Log.Infof("weekly run finished: %s", engine.Stats.StatusLine())

	if p.PushgatewayUrl != "" {
		if pushErr := utils.PushMetrics(p.PushgatewayUrl, WeeklyJobName); pushErr != nil {
			Logger.Log.Warn("fail to push metrics: ", pushErr)
		}
	}
	return engine.Stats, err
}
