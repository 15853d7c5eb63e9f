// Package run implements the distribution orchestrator: it drives one or
// more distros over a batch of build artifacts as cooperative routines,
// records every run in the history repository and maps outcomes onto the
// run status state machine.
package run

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shipway/shipway/internal/distro"
	"github.com/shipway/shipway/internal/log"
	"github.com/shipway/shipway/internal/model"
	"github.com/shipway/shipway/internal/progress"
	"github.com/shipway/shipway/internal/sched"
	"github.com/shipway/shipway/internal/storage"
)

// ServiceConfig is the configuration for the run service.
type ServiceConfig struct {
	Repository storage.Repository
	Tracker    *progress.Tracker
	Logger     log.Logger

	// TickInterval is the cooperative scheduler's tick period.
	TickInterval time.Duration
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Tracker == nil {
		tracker, err := progress.NewTracker(progress.TrackerConfig{})
		if err != nil {
			return fmt.Errorf("could not create tracker: %w", err)
		}
		c.Tracker = tracker
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 10 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Run"})
	return nil
}

// Service handles distribution run business logic.
type Service struct {
	repo    storage.Repository
	tracker *progress.Tracker
	logger  log.Logger
	tick    time.Duration

	mu      sync.Mutex
	running bool
}

// NewService creates a new run service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:    cfg.Repository,
		tracker: cfg.Tracker,
		logger:  cfg.Logger,
		tick:    cfg.TickInterval,
	}, nil
}

// RunOptions are the options for executing distributions.
type RunOptions struct {
	Distros   []distro.Distro
	Artifacts []model.BuildArtifact
}

// Run executes every distro sequentially over the artifact batch and returns
// the finished run records. Only one batch can be in flight per service, a
// concurrent call fails with model.ErrAlreadyRunning. The first fatal distro
// error stops the remaining distros; cancellation does too.
func (s *Service) Run(ctx context.Context, opts RunOptions) ([]model.Run, error) {
	if len(opts.Distros) == 0 {
		return nil, fmt.Errorf("at least one distro is required: %w", model.ErrNotValid)
	}
	if len(opts.Artifacts) == 0 {
		return nil, fmt.Errorf("at least one artifact is required: %w", model.ErrNotValid)
	}
	for _, a := range opts.Artifacts {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("invalid artifact %s: %w", a, err)
		}
	}

	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	var (
		runs     []model.Run
		fatalErr error
	)

	scheduler := sched.New()
	scheduler.Go(func(co *sched.Co) {
		for _, d := range opts.Distros {
			if ctx.Err() != nil {
				return
			}

			run, err := s.startRun(ctx, d, len(opts.Artifacts))
			if err != nil {
				fatalErr = err
				return
			}
			runs = append(runs, run)
			idx := len(runs) - 1

			res := co.Call(func(co *sched.Co) {
				co.Yield(s.shipOne(ctx, co, d, opts.Artifacts))
			})
			distroErr, _ := res.(error)

			runs[idx] = s.finishRun(ctx, run, distroErr)

			if distroErr != nil {
				fatalErr = fmt.Errorf("distro %q: %w", d.Name(), distroErr)
				return
			}
		}
	})

	schedErr := scheduler.Run(ctx, s.tick)

	// A stopped routine can leave its in-flight run record open.
	for i, r := range runs {
		if !r.Status.Finished() {
			runs[i] = s.finishRun(ctx, r, fmt.Errorf("run interrupted: %w", model.ErrCanceled))
		}
	}

	switch {
	case fatalErr != nil:
		return runs, fatalErr
	case schedErr != nil:
		return runs, fmt.Errorf("run canceled: %w", model.ErrCanceled)
	}

	s.logger.Infof("Shipped %d artifacts through %d distros", len(opts.Artifacts), len(opts.Distros))

	return runs, nil
}

func (s *Service) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("a distribution batch is already in flight: %w", model.ErrAlreadyRunning)
	}
	s.running = true
	return nil
}

func (s *Service) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *Service) startRun(ctx context.Context, d distro.Distro, artifacts int) (model.Run, error) {
	run := model.Run{
		ID:        ulid.Make().String(),
		Distro:    d.Name(),
		Status:    model.RunStatusRunning,
		Artifacts: artifacts,
		StartedAt: time.Now().UTC(),
	}

	if err := s.repo.CreateRun(ctx, run); err != nil {
		return run, fmt.Errorf("could not save run: %w", err)
	}

	s.logger.WithValues(log.Kv{"run-id": run.ID, "distro": run.Distro}).Infof("Run started")

	return run, nil
}

// shipOne validates and runs a single distro on its own goroutine while the
// calling routine keeps yielding to the scheduler.
func (s *Service) shipOne(ctx context.Context, co *sched.Co, d distro.Distro, artifacts []model.BuildArtifact) error {
	task := s.tracker.Start(ctx, d.Name())
	defer task.Remove()

	_, err := sched.Await(co, func() (struct{}, error) {
		if err := d.Validate(ctx); err != nil {
			return struct{}{}, fmt.Errorf("invalid distro: %w", err)
		}
		return struct{}{}, d.Run(task.Context(), task, artifacts)
	})
	return err
}

// finishRun writes the terminal state of a run record. Persistence must
// survive cancellation of the batch context.
func (s *Service) finishRun(ctx context.Context, run model.Run, runErr error) model.Run {
	finishedAt := time.Now().UTC()
	run.FinishedAt = &finishedAt

	switch {
	case runErr == nil:
		run.Status = model.RunStatusSucceeded
	case errors.Is(runErr, model.ErrCanceled):
		run.Status = model.RunStatusCanceled
		run.Error = runErr.Error()
	default:
		run.Status = model.RunStatusFailed
		run.Error = runErr.Error()
	}

	logger := s.logger.WithValues(log.Kv{"run-id": run.ID, "distro": run.Distro, "status": run.Status})
	if err := s.repo.UpdateRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Errorf("Could not save run result: %s", err)
	}

	switch run.Status {
	case model.RunStatusSucceeded:
		logger.Infof("Run finished in %s", run.Duration())
	case model.RunStatusCanceled:
		logger.Warningf("Run canceled after %s", run.Duration())
	default:
		logger.Errorf("Run failed after %s: %s", run.Duration(), run.Error)
	}

	return run
}
