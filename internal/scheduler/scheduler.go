package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/sensor-dashboard/internal/logging"
	"github.com/i474232898/sensor-dashboard/internal/telemetry"
)

// StoreProvider hands out a store for one run. release is called when the run ends.
type StoreProvider func(ctx context.Context) (db telemetry.MeasurementStore, release func(), err error)

// Scheduler periodically merges the upstream channel feed into the store.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *telemetry.Service
	stores    StoreProvider
	interval  time.Duration
	timeout   time.Duration
	log       logging.Logger
}

// New creates a new Scheduler. An interval <= 0 disables periodic syncing.
func New(interval time.Duration, service *telemetry.Service, stores StoreProvider, log logging.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		service:   service,
		stores:    stores,
		interval:  interval,
		timeout:   time.Minute,
		log:       log,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run happens immediately.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.log.Infof("scheduler: sync interval not set; periodic sync disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Warnf("scheduler: sync failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce performs a single sync and returns the number of merged rows.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	db, release, err := s.stores(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	n, err := s.service.Sync(ctx, db)
	if err != nil {
		return 0, err
	}
	s.log.Debugf("scheduler: merged %d entries", n)
	return n, nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
