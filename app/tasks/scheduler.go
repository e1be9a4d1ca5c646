package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/market-comb/app/cache"
	"github.com/lysyi3m/market-comb/app/cfg"
	"github.com/lysyi3m/market-comb/app/lock"
	"github.com/lysyi3m/market-comb/app/market"
	"github.com/lysyi3m/market-comb/app/source"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// lockSlack keeps a lane lease alive slightly past the task timeout.
const lockSlack = 30 * time.Second

type Deps struct {
	Registry   *source.Registry
	Remote     RemoteClient
	Store      Store
	Filterer   *market.Filterer
	Moderators cache.ModeratorCache
	Locker     lock.Locker
}

type Scheduler struct {
	deps Deps

	community    string
	digestTitle  string
	digestSlot   int
	dedupWindow  time.Duration
	retention    time.Duration
	digestMaxAge time.Duration
	intervals    map[Lane]time.Duration
	workerCount  int

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	taskQueue chan TaskInterface
}

func NewScheduler(deps Deps) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	if deps.Locker == nil {
		deps.Locker = lock.NewMemoryLocker()
	}

	return &Scheduler{
		deps:         deps,
		community:    cfg.TargetSub,
		digestTitle:  cfg.DigestTitle,
		digestSlot:   cfg.DigestSlot,
		dedupWindow:  cfg.DedupWindow,
		retention:    cfg.RetentionWindow,
		digestMaxAge: cfg.DigestMaxAge,
		intervals: map[Lane]time.Duration{
			LaneDiscovery:   cfg.DiscoveryInterval,
			LaneMaintenance: cfg.MaintenanceInterval,
		},
		workerCount: cfg.WorkerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 32),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	for lane, interval := range s.intervals {
		s.wg.Add(1)
		go s.runLane(lane, interval)
	}
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// Trigger enqueues an out-of-schedule cycle of lane.
func (s *Scheduler) Trigger(lane Lane) error {
	task, err := s.NewLaneTask(lane)
	if err != nil {
		return err
	}
	return s.EnqueueTask(task)
}

// NewLaneTask builds the task a lane runs on every tick.
func (s *Scheduler) NewLaneTask(lane Lane) (TaskInterface, error) {
	switch lane {
	case LaneDiscovery:
		return NewDiscoverListingsTask(s.deps.Registry, s.deps.Remote, s.deps.Store, s.deps.Filterer,
			s.deps.Moderators, s.community, s.dedupWindow), nil
	case LaneMaintenance:
		return NewMaintenanceTask(
			NewExpireListingsTask(s.deps.Remote, s.deps.Store, s.community, s.retention),
			NewUpdateDigestTask(s.deps.Remote, s.deps.Store, s.community, s.digestTitle, s.digestSlot, s.digestMaxAge),
		), nil
	}
	return nil, fmt.Errorf("unknown lane %q", lane)
}

func (s *Scheduler) runLane(lane Lane, interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.enqueueLane(lane)

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.enqueueLane(lane)
		}
	}
}

func (s *Scheduler) enqueueLane(lane Lane) {
	if err := s.Trigger(lane); err != nil && s.ctx.Err() == nil {
		slog.Warn("Failed to enqueue lane task", "lane", lane, "error", err)
	}
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

// executeTask runs task under its lane lock. A lane that is still busy
// skips the cycle instead of queueing behind it.
func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	lane := task.GetLane()
	timeout := s.intervals[lane]
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	release, ok, err := s.deps.Locker.TryAcquire(s.ctx, string(lane), timeout+lockSlack)
	if err != nil {
		slog.Error("Failed to acquire lane lock", "worker_id", workerID, "lane", lane, "error", err)
		return
	}
	if !ok {
		slog.Debug("Lane busy, skipping cycle", "lane", lane, "type", string(task.GetType()), "id", task.GetID())
		lanesSkipped.WithLabelValues(string(lane)).Inc()
		return
	}
	defer release()

	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	err = task.Execute(taskCtx)

	status := "ok"
	if err != nil {
		status = "error"
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "lane", lane, "error", err)
	}
	taskDuration.WithLabelValues(string(task.GetType()), status).Observe(task.GetDuration().Seconds())
}
