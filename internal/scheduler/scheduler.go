package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"BandTrader/internal/notifier"
	"BandTrader/internal/trader"

	"github.com/robfig/cron/v3"
)

// Sender delivers a message to the operator.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler drives the trader's polling cycle and answers operator commands.
type Scheduler struct {
	Cron     *cron.Cron
	Trader   *trader.Trader
	Notifier Sender // nil disables notifications
	Ctx      context.Context

	cycle sync.Mutex // serializes RunNow with scheduled cycles
}

// NewScheduler creates a Scheduler whose jobs never overlap: a cycle that is
// still running when the next tick fires causes that tick to be skipped.
func NewScheduler(ctx context.Context, t *trader.Trader, n Sender) *Scheduler {
	logger := cron.PrintfLogger(log.Default())
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		Trader:   t,
		Notifier: n,
		Ctx:      ctx,
	}
}

// Register adds the polling job on the given schedule.
func (s *Scheduler) Register(pollCron string) error {
	if _, err := s.Cron.AddFunc(pollCron, s.pollTask); err != nil {
		return fmt.Errorf("register poll task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the scheduler and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes one cycle immediately, waiting for a scheduled cycle in
// progress to finish first.
func (s *Scheduler) RunNow() trader.CycleReport {
	s.cycle.Lock()
	defer s.cycle.Unlock()
	return s.Trader.RunCycle(s.Ctx)
}

func (s *Scheduler) pollTask() {
	if s.Ctx.Err() != nil {
		return
	}
	if !s.cycle.TryLock() {
		log.Println("[WARN] previous cycle still running, skipping tick")
		return
	}
	defer s.cycle.Unlock()
	report := s.Trader.RunCycle(s.Ctx)
	if report.MarketOpen {
		log.Printf("[INFO] cycle done: %d analyzed, %d errors", len(report.Decisions), len(report.Errors))
	}
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch strings.ToLower(strings.TrimSpace(command)) {
	case "/summary", "summary":
		return notifier.FormatSummary(s.Trader.Summary())
	case "/positions", "positions":
		return notifier.FormatPositions(s.Trader.Positions())
	default:
		return "Available commands:\n• /summary\n• /positions"
	}
}

// Notify sends text to the operator, logging failures.
func (s *Scheduler) Notify(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
