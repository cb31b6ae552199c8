package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"quote_backend/internal/feature/refresh/domain/entity"
)

// ErrCycleRunning は既にサイクルが実行中のため起動しなかったことを表します。
var ErrCycleRunning = errors.New("a refresh cycle is already running")

// CycleRunner runs one refresh cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context, trigger entity.Trigger) (entity.Cycle, error)
}

// CycleLock はプロセスをまたいだ排他です。release は必ず呼び出します。
// ok=false は他のレプリカが実行中であることを表します。
type CycleLock interface {
	Acquire(ctx context.Context) (release func(), ok bool, err error)
}

// Status はスケジューラの状態のスナップショットです。
type Status struct {
	Running      bool
	Started      bool
	Interval     time.Duration
	SkippedTicks int64
	CyclesRun    int64
	LastCycle    *entity.Cycle
	LastError    string
}

// Scheduler drives refresh cycles on a fixed interval.
// Idle/Running の2状態を atomic の CAS で管理し、実行中に来た tick は破棄して数えます。
// tick の間隔はサイクルの所要時間に依存しません。
type Scheduler struct {
	runner   CycleRunner
	interval time.Duration
	lock     CycleLock

	running atomic.Bool
	started atomic.Bool
	skipped atomic.Int64
	cycles  atomic.Int64

	mu      sync.RWMutex
	last    *entity.Cycle
	lastErr string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler. lock may be nil; the in-process guard is always applied.
func NewScheduler(runner CycleRunner, interval time.Duration, lock CycleLock) *Scheduler {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Scheduler{runner: runner, interval: interval, lock: lock}
}

// Start runs a first cycle immediately and then one per interval until Stop or ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		slog.Info("refresh scheduler started", "interval", s.interval)
		s.spawn(ctx, entity.TriggerTick)
		for {
			select {
			case <-ctx.Done():
				slog.Info("refresh scheduler stopping")
				return
			case <-ticker.C:
				s.spawn(ctx, entity.TriggerTick)
			}
		}
	}()
}

// spawn はサイクルを別の goroutine で起動します。ticker を止めないためです。
func (s *Scheduler) spawn(ctx context.Context, trigger entity.Trigger) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.run(ctx, trigger); errors.Is(err, ErrCycleRunning) {
			n := s.skipped.Add(1)
			slog.Warn("tick skipped: cycle still running", "skipped_ticks", n)
		}
	}()
}

// Stop stops issuing ticks and waits for the in-flight cycle to wind down.
// 実行中のサイクルは処理中の銘柄を終えた時点で止まります。
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	slog.Info("refresh scheduler stopped", "cycles_run", s.cycles.Load(), "skipped_ticks", s.skipped.Load())
}

// TriggerNow runs a cycle synchronously through the same guard as the ticker.
// 実行中なら ErrCycleRunning を返します。
func (s *Scheduler) TriggerNow(ctx context.Context, trigger entity.Trigger) (entity.Cycle, error) {
	return s.run(ctx, trigger)
}

func (s *Scheduler) run(ctx context.Context, trigger entity.Trigger) (entity.Cycle, error) {
	if !s.running.CompareAndSwap(false, true) {
		return entity.Cycle{}, ErrCycleRunning
	}
	defer s.running.Store(false)

	if s.lock != nil {
		release, ok, err := s.lock.Acquire(ctx)
		switch {
		case err != nil:
			// Redis が使えない場合はプロセス内の排他だけで続ける
			slog.Warn("cycle lock unavailable, using in-process guard only", "error", err)
		case !ok:
			slog.Info("cycle lock held by another replica")
			return entity.Cycle{}, ErrCycleRunning
		default:
			defer release()
		}
	}

	cycle, err := s.runner.RunCycle(ctx, trigger)
	s.cycles.Add(1)

	s.mu.Lock()
	s.last = &cycle
	s.lastErr = ""
	if err != nil {
		s.lastErr = err.Error()
	}
	s.mu.Unlock()
	return cycle, err
}

// Status returns a snapshot of the scheduler state.
func (s *Scheduler) Status() Status {
	st := Status{
		Running:      s.running.Load(),
		Started:      s.started.Load(),
		Interval:     s.interval,
		SkippedTicks: s.skipped.Load(),
		CyclesRun:    s.cycles.Load(),
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last != nil {
		c := *s.last
		st.LastCycle = &c
	}
	st.LastError = s.lastErr
	return st
}
