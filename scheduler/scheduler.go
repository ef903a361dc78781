// Package scheduler runs periodic background tasks such as the sensor poll.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

var (
	// ErrTaskNotFound is returned for an unknown task id
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskRunning is returned when a task is triggered while it runs
	ErrTaskRunning = errors.New("task is already running")
)

// TaskFunc is the function signature for scheduled tasks
type TaskFunc func(ctx context.Context) error

// TaskConfig contains configuration for a scheduled task
type TaskConfig struct {
	ID         string
	Name       string
	Interval   time.Duration
	Func       TaskFunc
	RunOnStart bool
	// Timeout bounds a single run; zero means one interval
	Timeout time.Duration
}

// TaskInfo describes a registered task
type TaskInfo struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Interval time.Duration `json:"interval"`
	LastRun  *time.Time    `json:"lastRun,omitempty"`
	NextRun  *time.Time    `json:"nextRun,omitempty"`
	Running  bool          `json:"running"`
}

type taskEntry struct {
	config  TaskConfig
	job     gocron.Job
	lastRun *time.Time
	running bool
}

// Scheduler wraps gocron with task bookkeeping
type Scheduler struct {
	gocron gocron.Scheduler
	logger zerolog.Logger
	tasks  map[string]*taskEntry
	mu     sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler
func New(logger zerolog.Logger) (*Scheduler, error) {
	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		gocron: gs,
		logger: logger.With().Str("component", "scheduler").Logger(),
		tasks:  make(map[string]*taskEntry),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// RegisterTask adds a task running every config.Interval
func (s *Scheduler) RegisterTask(config TaskConfig) error {
	if config.Interval <= 0 {
		return fmt.Errorf("task %q needs a positive interval", config.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[config.ID]; exists {
		return fmt.Errorf("task with ID %q already registered", config.ID)
	}

	job, err := s.gocron.NewJob(
		gocron.DurationJob(config.Interval),
		gocron.NewTask(func() { s.executeTask(config.ID) }),
		gocron.WithName(config.Name),
		gocron.WithTags(config.ID),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create job for task %q: %w", config.ID, err)
	}

	s.tasks[config.ID] = &taskEntry{config: config, job: job}

	s.logger.Info().
		Str("id", config.ID).
		Str("name", config.Name).
		Dur("interval", config.Interval).
		Bool("runOnStart", config.RunOnStart).
		Msg("Registered task")

	return nil
}

// executeTask runs a task and updates its state. Overlapping runs of the
// same task are skipped.
func (s *Scheduler) executeTask(taskID string) {
	s.mu.Lock()
	entry, exists := s.tasks[taskID]
	if !exists || entry.running {
		s.mu.Unlock()
		return
	}
	entry.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	defer s.wg.Done()

	timeout := entry.config.Timeout
	if timeout <= 0 {
		timeout = entry.config.Interval
	}
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	startTime := time.Now()
	s.logger.Debug().Str("id", taskID).Msg("Starting task")

	err := entry.config.Func(ctx)

	s.mu.Lock()
	entry.running = false
	entry.lastRun = &startTime
	s.mu.Unlock()

	duration := time.Since(startTime)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("id", taskID).
			Str("name", entry.config.Name).
			Dur("duration", duration).
			Msg("Task failed")
		return
	}
	s.logger.Debug().
		Str("id", taskID).
		Dur("duration", duration).
		Msg("Task completed")
}

// Start starts the scheduler and runs tasks configured with RunOnStart
func (s *Scheduler) Start() {
	s.logger.Info().Msg("Starting scheduler")
	s.gocron.Start()

	s.mu.RLock()
	var startup []string
	for id, entry := range s.tasks {
		if entry.config.RunOnStart {
			startup = append(startup, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range startup {
		go s.executeTask(id)
	}
}

// Stop cancels running tasks and shuts gocron down
func (s *Scheduler) Stop() error {
	s.logger.Info().Msg("Stopping scheduler")
	s.cancel()
	err := s.gocron.Shutdown()
	s.wg.Wait()
	return err
}

// RunNow triggers a task immediately
func (s *Scheduler) RunNow(taskID string) error {
	s.mu.RLock()
	entry, exists := s.tasks[taskID]
	running := exists && entry.running
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if running {
		return fmt.Errorf("%w: %s", ErrTaskRunning, taskID)
	}

	go s.executeTask(taskID)
	return nil
}

// ListTasks returns information about all registered tasks sorted by id
func (s *Scheduler) ListTasks() []TaskInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]TaskInfo, 0, len(s.tasks))
	for _, entry := range s.tasks {
		tasks = append(tasks, entry.info())
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks
}

// GetTask returns information about one task
func (s *Scheduler) GetTask(taskID string) (*TaskInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.tasks[taskID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	info := entry.info()
	return &info, nil
}

func (e *taskEntry) info() TaskInfo {
	info := TaskInfo{
		ID:       e.config.ID,
		Name:     e.config.Name,
		Interval: e.config.Interval,
		LastRun:  e.lastRun,
		Running:  e.running,
	}
	if nextRun, err := e.job.NextRun(); err == nil && !nextRun.IsZero() {
		info.NextRun = &nextRun
	}
	return info
}
