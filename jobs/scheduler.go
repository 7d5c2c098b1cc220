// Package jobs runs periodic maintenance inside the server process.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Sweeper counts (and optionally removes) rows left behind by partial deletions.
type Sweeper interface {
	SweepOrphans(ctx context.Context, remove bool) (map[string]int64, error)
}

type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	timeout time.Duration
	log     logrus.FieldLogger
}

// New registers a count-only orphan sweep on spec (standard cron syntax or
// descriptors such as "@every 6h"). Overlapping runs are skipped.
func New(spec string, sweeper Sweeper, log logrus.FieldLogger) (*Scheduler, error) {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	s := &Scheduler{sweeper: sweeper, timeout: 5 * time.Minute, log: log.WithField("job", "orphan-sweep")}
	s.cron = cron.New(cron.WithChain(cron.Recover(cronLogger{s.log}), cron.SkipIfStillRunning(cronLogger{s.log})))
	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return nil, fmt.Errorf("orphan sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts scheduling and waits for a running sweep or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// RunOnce performs one count-only sweep.
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	counts, err := s.sweeper.SweepOrphans(ctx, false)
	if err != nil {
		s.log.WithError(err).Warn("sweep incomplete")
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	s.log.WithField("orphans", total).Info("sweep finished")
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct{ log logrus.FieldLogger }

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.log.WithFields(fields(kv)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.WithError(err).WithFields(fields(kv)).Error(msg)
}

func fields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
