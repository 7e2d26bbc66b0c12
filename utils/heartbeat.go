package utils

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// StartHeartbeat logs "...still running step=<label> elapsed=<d>" every
// interval until the returned stop function is called. Stop blocks until the
// heartbeat goroutine exited and is safe to call more than once. A non
// positive interval disables the heartbeat.
func StartHeartbeat(label string, interval time.Duration, logger *logrus.Entry) (stop func()) {
	if interval <= 0 || logger == nil {
		return func() {}
	}

	started := time.Now()
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				logger.Infof("...still running step=%s elapsed=%s", label, FormatDuration(time.Since(started)))
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-exited
		})
	}
}
