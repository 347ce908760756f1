package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/clanrelay/pkg/log"
	"github.com/cuemby/clanrelay/pkg/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Job is a named unit of periodic work
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type entry struct {
	job *Job
	// held for the duration of a tick so a job never overlaps with itself
	mu sync.Mutex
}

// Scheduler runs each registered job on its own ticker
type Scheduler struct {
	mu      sync.Mutex
	jobs    []*entry
	byName  map[string]*entry
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	logger  zerolog.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{
		byName: make(map[string]*entry),
		stopCh: make(chan struct{}),
		logger: log.WithComponent("scheduler"),
	}
}

// Add registers a job. Jobs cannot be added after Start.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" {
		return fmt.Errorf("job name is required")
	}
	if job.Interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive, got %s", job.Name, job.Interval)
	}
	if job.Run == nil {
		return fmt.Errorf("job %s: run function is required", job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("job %s: scheduler already started", job.Name)
	}
	if _, exists := s.byName[job.Name]; exists {
		return fmt.Errorf("job %s already registered", job.Name)
	}

	e := &entry{job: &job}
	s.jobs = append(s.jobs, e)
	s.byName[job.Name] = e
	metrics.RegisterComponent("job."+job.Name, true, "not yet run")
	return nil
}

// Start launches one goroutine per job. Each job ticks immediately and then
// every Interval until Stop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	for _, e := range s.jobs {
		s.wg.Add(1)
		go s.run(e)
	}
	s.logger.Info().Int("jobs", len(s.jobs)).Msg("Scheduler started")
}

// Stop signals every job loop to exit and waits for in-flight ticks to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info().Msg("Scheduler stopped")
}

// RunOnce runs a single tick of the named job now, waiting for any tick of
// the same job already in flight.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.byName[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return s.tick(ctx, e)
}

// Jobs returns the registered job names in registration order
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for _, e := range s.jobs {
		names = append(names, e.job.Name)
	}
	return names
}

func (s *Scheduler) run(e *entry) {
	defer s.wg.Done()

	// Ticks run to completion; Stop only prevents the next one
	ctx := context.Background()
	_ = s.tick(ctx, e)

	ticker := time.NewTicker(e.job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			select {
			case <-s.stopCh:
				return
			default:
			}
			_ = s.tick(ctx, e)
		case <-s.stopCh:
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, e *entry) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	name := e.job.Name
	logger := s.logger.With().Str("job", name).Str("run_id", uuid.New().String()).Logger()
	timer := metrics.NewTimer()

	logger.Debug().Msg("Job tick started")
	err := e.job.Run(ctx)
	if err != nil {
		metrics.JobRunsTotal.WithLabelValues(name, "failure").Inc()
		metrics.UpdateComponent("job."+name, false, err.Error())
		logger.Error().Err(err).Dur("duration", timer.Duration()).Msg("Job tick failed")
		return err
	}

	metrics.JobRunsTotal.WithLabelValues(name, "success").Inc()
	metrics.UpdateComponent("job."+name, true, "")
	logger.Debug().Dur("duration", timer.Duration()).Msg("Job tick finished")
	return nil
}
