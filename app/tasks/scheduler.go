package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lysyi3m/hookrelay/app/ingest"
	"github.com/lysyi3m/hookrelay/app/metrics"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	defaultQueueSize = 16
	taskTimeout      = 10 * time.Minute
)

type Options struct {
	// Interval between scheduled runs. Zero disables the ticker.
	Interval time.Duration
	// RunOnStart enqueues a scheduled run immediately after Start.
	RunOnStart bool
	// RetentionDays enables a fingerprint sweep after every scheduled run
	// when positive.
	RetentionDays int
}

// Scheduler feeds a single worker from a bounded queue, so a sweep queued
// behind a run executes after it. At most one scheduled run is queued or
// executing at a time; a tick arriving meanwhile is dropped.
type Scheduler struct {
	runner    FeedRunner
	sweeper   Sweeper
	configs   ingest.ConfigSource
	options   Options
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	taskQueue chan TaskInterface
	pending   atomic.Bool
}

func NewScheduler(runner FeedRunner, sweeper Sweeper, configs ingest.ConfigSource, options Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		runner:    runner,
		sweeper:   sweeper,
		configs:   configs,
		options:   options,
		ctx:       ctx,
		cancel:    cancel,
		taskQueue: make(chan TaskInterface, defaultQueueSize),
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.worker()

	if s.options.RunOnStart {
		s.enqueueRun()
	}

	if s.options.Interval > 0 {
		s.wg.Add(1)
		go s.loop(s.options.Interval)
		slog.Info("Scheduler started", "interval", s.options.Interval.String())
	} else {
		slog.Info("Scheduler ticker disabled")
	}
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
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

func (s *Scheduler) loop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.enqueueRun()
		}
	}
}

func (s *Scheduler) enqueueRun() {
	if !s.pending.CompareAndSwap(false, true) {
		slog.Warn("Scheduled tick dropped, previous run still pending")
		metrics.RecordScheduledRun(metrics.OutcomeSkipped)
		return
	}

	task := NewScheduledRunTask(s.runner)
	if err := s.EnqueueTask(task); err != nil {
		s.pending.Store(false)
		slog.Warn("Failed to enqueue ScheduledRunTask", "error", err)
		return
	}

	if s.options.RetentionDays <= 0 || s.sweeper == nil {
		return
	}

	sweep := NewRetentionSweepTask(s.sweeper, s.options.RetentionDays, s.configs)
	if err := s.EnqueueTask(sweep); err != nil {
		slog.Warn("Failed to enqueue RetentionSweepTask", "error", err)
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(task)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(task TaskInterface) {
	if task.GetType() == TaskTypeScheduledRun {
		defer s.pending.Store(false)
	}
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	if err := task.Execute(taskCtx); err != nil {
		slog.Error("Task execution failed", "type", string(task.GetType()), "id", task.GetID(), "duration", task.GetDuration(), "error", err)
	}
}
