package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/lameiro/event-comb/app/cfg"
	"github.com/lameiro/event-comb/app/database"
	"github.com/lameiro/event-comb/app/event"
	"github.com/lameiro/event-comb/app/sources"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	configCache *sources.ConfigCache
	eventRepo   database.EventRepository
	httpClient  *http.Client
	builder     *event.Builder
	binner      *event.Binner
	enricher    sources.Enricher
	snapshot    *event.Snapshot
	userAgent   string
	interval    time.Duration
	workerCount int
	windowDays  int

	mu             sync.Mutex
	lastRun        map[string]time.Time
	pendingFetches int
	publishPending bool

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	taskQueue chan TaskInterface
}

func NewScheduler(configCache *sources.ConfigCache, eventRepo database.EventRepository,
	httpClient *http.Client, builder *event.Builder, binner *event.Binner,
	enricher sources.Enricher, snapshot *event.Snapshot) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		configCache: configCache,
		eventRepo:   eventRepo,
		httpClient:  httpClient,
		builder:     builder,
		binner:      binner,
		enricher:    enricher,
		snapshot:    snapshot,
		userAgent:   cfg.UserAgent,
		interval:    time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount: cfg.WorkerCount,
		windowDays:  cfg.WindowDays,
		lastRun:     make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueDueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueDueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// EnqueuePublish schedules an immediate calendar rebuild, bypassing the
// refresh bookkeeping. Used at startup and by the refresh API endpoint.
func (s *Scheduler) EnqueuePublish() error {
	return s.EnqueueTask(NewPublishCalendarTask(s.eventRepo, s.binner, s.snapshot, s.windowDays))
}

// EnqueueFetch schedules an immediate fetch of a single configured source,
// regardless of its refresh interval. The calendar republish follows
// automatically once the fetch has finished and its records are in storage.
func (s *Scheduler) EnqueueFetch(sourceName string) error {
	sourceConfig, err := s.configCache.GetConfig(sourceName)
	if err != nil {
		return err
	}

	adapter, err := s.buildAdapter(sourceConfig)
	if err != nil {
		return err
	}

	fetchTask := NewFetchSourceTask(adapter, s.enricher, s.builder, s.eventRepo)

	// Count the fetch before it can reach a worker, so a fast completion
	// never finishes an untracked task.
	s.trackFetch()
	if err := s.EnqueueTask(fetchTask); err != nil {
		s.taskFinished(fetchTask)
		return err
	}

	s.markRun(sourceName, time.Now())
	return nil
}

// enqueueDueTasks schedules a fetch for every enabled source whose refresh
// interval has elapsed. The calendar publish is deferred until those fetches
// have drained (see taskFinished); enqueueing it in the same tick would let a
// worker query storage before the fetches append anything.
func (s *Scheduler) enqueueDueTasks() {
	sourceConfigs := s.configCache.GetEnabledConfigs()
	if len(sourceConfigs) == 0 {
		slog.Debug("No enabled source configurations found")
	}

	fetched := 0
	now := time.Now()

	for _, sourceConfig := range sourceConfigs {
		if !s.isDue(sourceConfig, now) {
			slog.Debug("Source not due for refresh yet", "source", sourceConfig.Name)
			continue
		}

		adapter, err := s.buildAdapter(sourceConfig)
		if err != nil {
			slog.Warn("Failed to build adapter, skipping", "source", sourceConfig.Name, "error", err)
			continue
		}

		fetchTask := NewFetchSourceTask(adapter, s.enricher, s.builder, s.eventRepo)
		s.trackFetch()
		if err := s.EnqueueTask(fetchTask); err != nil {
			slog.Warn("Failed to enqueue FetchSourceTask", "source", sourceConfig.Name, "error", err)
			s.taskFinished(fetchTask)
			continue
		}

		s.markRun(sourceConfig.Name, now)
		fetched++
	}

	if fetched > 0 {
		return
	}

	// Nothing due and no fetch round in flight: make sure an empty calendar
	// still gets published once so the API has something to serve.
	s.mu.Lock()
	idle := s.pendingFetches == 0 && !s.publishPending
	s.mu.Unlock()

	if buckets, _ := s.snapshot.Get(); buckets == nil && idle {
		if err := s.EnqueuePublish(); err != nil {
			slog.Warn("Failed to enqueue PublishCalendarTask", "error", err)
		}
	}
}

// trackFetch registers an in-flight fetch and arms the deferred publish that
// fires when the round drains.
func (s *Scheduler) trackFetch() {
	s.mu.Lock()
	s.pendingFetches++
	s.publishPending = true
	s.mu.Unlock()
}

// taskFinished runs once per task when no further attempt will be made. When
// the last outstanding fetch of a round finishes, the calendar publish is
// enqueued, so the published window always reflects what the round appended.
func (s *Scheduler) taskFinished(task TaskInterface) {
	if task.GetType() != TaskTypeFetchSource {
		return
	}

	s.mu.Lock()
	if s.pendingFetches > 0 {
		s.pendingFetches--
	}
	publish := s.pendingFetches == 0 && s.publishPending
	if publish {
		s.publishPending = false
	}
	s.mu.Unlock()

	if publish {
		if err := s.EnqueuePublish(); err != nil {
			slog.Warn("Failed to enqueue PublishCalendarTask", "error", err)
		}
	}
}

func (s *Scheduler) buildAdapter(sourceConfig *sources.Config) (sources.Adapter, error) {
	switch sourceConfig.Type {
	case sources.TypeRSS:
		return sources.NewRSSAdapter(sourceConfig, s.httpClient, s.userAgent, s.eventRepo), nil
	case sources.TypeJSONLD:
		return sources.NewJSONLDAdapter(sourceConfig, s.httpClient, s.userAgent, s.eventRepo), nil
	default:
		return nil, fmt.Errorf("unknown source type: %q", sourceConfig.Type)
	}
}

func (s *Scheduler) isDue(sourceConfig *sources.Config, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.lastRun[sourceConfig.Name]
	if !ok {
		return true
	}
	refresh := time.Duration(sourceConfig.Settings.RefreshInterval) * time.Second
	return now.Sub(last) >= refresh
}

func (s *Scheduler) markRun(sourceName string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun[sourceName] = now
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err == nil {
		s.taskFinished(task)
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		s.taskFinished(task)
		return
	}

	task.IncrementRetryCount()
	retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
	if retryDelay > 30*time.Second {
		retryDelay = 30 * time.Second
	}

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "source", task.GetSourceName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	go func() {
		time.Sleep(retryDelay)
		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
			s.taskFinished(task)
			return
		default:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
				s.taskFinished(task)
			}
		}
	}()
}
