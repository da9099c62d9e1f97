package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

// Scheduler runs in-process daily jobs. Jobs receive a context that is
// cancelled on Shutdown.
type Scheduler struct {
	sched  gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
	log    logrus.FieldLogger
}

func New(loc *time.Location, log logrus.FieldLogger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	s, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("init scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{sched: s, ctx: ctx, cancel: cancel, log: log.WithField("component", "Scheduler")}, nil
}

// Daily registers fn at hour:minute in the scheduler's location. A run that
// is still going when the next one is due is skipped.
func (s *Scheduler) Daily(name string, hour, minute uint, fn func(ctx context.Context)) error {
	j, err := s.sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(hour, minute, 0))),
		gocron.NewTask(func() {
			started := time.Now()
			s.log.WithField("job", name).Info("job started")
			fn(s.ctx)
			s.log.WithField("job", name).WithField("took", time.Since(started).String()).Info("job finished")
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.log.WithField("job", name).Infof("scheduled daily at %02d:%02d (id %s)", hour, minute, j.ID())
	return nil
}

func (s *Scheduler) Jobs() []gocron.Job {
	return s.sched.Jobs()
}

func (s *Scheduler) Start() {
	s.sched.Start()
}

func (s *Scheduler) Shutdown() error {
	s.cancel()
	return s.sched.Shutdown()
}
