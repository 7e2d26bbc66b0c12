package utils

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// FormatDuration renders d rounded down to whole seconds as "1h2m3s", "2m3s"
// or "3s".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm%ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

type StepTiming struct {
	Name     string
	Duration time.Duration
	Err      error
}

// RunStats accumulates step timings and counters of one batch run and renders
// them as a single status line.
type RunStats struct {
	mu       sync.Mutex
	clock    func() time.Time
	started  time.Time
	steps    []StepTiming
	counters map[string]int
}

func NewRunStats(clock func() time.Time) *RunStats {
	if clock == nil {
		clock = time.Now
	}
	return &RunStats{clock: clock, started: clock(), counters: map[string]int{}}
}

// Add increments counter key by n.
func (s *RunStats) Add(key string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key] += n
}

func (s *RunStats) Counter(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key]
}

// Time runs fn and records its wall time under step.
func (s *RunStats) Time(step string, fn func() error) error {
	begin := s.clock()
	err := fn()
	s.mu.Lock()
	s.steps = append(s.steps, StepTiming{Name: step, Duration: s.clock().Sub(begin), Err: err})
	s.mu.Unlock()
	return err
}

func (s *RunStats) Steps() []StepTiming {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StepTiming(nil), s.steps...)
}

// StatusLine looks like
// "elapsed=1m2s steps=seed:3s,fetch:40s created=4 fetched_ok=7".
// Counters are sorted by name.
func (s *RunStats) StatusLine() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	parts := []string{"elapsed=" + FormatDuration(s.clock().Sub(s.started))}
	if len(s.steps) > 0 {
		steps := make([]string, 0, len(s.steps))
		for _, st := range s.steps {
			label := st.Name + ":" + FormatDuration(st.Duration)
			if st.Err != nil {
				label += "(failed)"
			}
			steps = append(steps, label)
		}
		parts = append(parts, "steps="+strings.Join(steps, ","))
	}

	keys := make([]string, 0, len(s.counters))
	for k := range s.counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, s.counters[k]))
	}
	return strings.Join(parts, " ")
}
