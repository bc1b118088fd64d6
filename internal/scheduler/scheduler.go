package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"MarketLens/internal/collector"
	"MarketLens/internal/events"
	"MarketLens/internal/metrics"
	"MarketLens/internal/notifier"
	"MarketLens/internal/recorder"
)

// Sender delivers a formatted message, e.g. *notifier.TelegramNotifier.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Watchlist is the set of symbols refreshed on schedule.
type Watchlist struct {
	Symbols      []string
	LookbackDays int
	Window       int
}

// Scheduler manages the watchlist refresh task and chat commands.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Watchlist Watchlist
	Recorder  recorder.Recorder
	Publisher events.Publisher
	Notifier  Sender // nil disables digests
	Metrics   *metrics.Metrics
	Ctx       context.Context
	Now       func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, col *collector.Collector, wl Watchlist, rec recorder.Recorder, pub events.Publisher, tn Sender) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if pub == nil {
		pub = events.NoopPublisher{}
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Watchlist: wl,
		Recorder:  rec,
		Publisher: pub,
		Notifier:  tn,
		Ctx:       ctx,
		Now:       time.Now,
	}
}

// RegisterAll registers the watchlist refresh task.
func (s *Scheduler) RegisterAll(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunRefreshNow executes the refresh task immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunRefreshNow() {
	s.refreshTask()
}

func (s *Scheduler) refreshTask() {
	log.Println("[INFO] running watchlist refresh")
	rep, err := s.Refresh(s.Ctx)
	if err != nil {
		log.Printf("[ERROR] watchlist refresh: %v", err)
		s.trySend(notifier.FormatFailure("watchlist refresh", err))
		return
	}
	s.trySend(notifier.FormatDigest(rep, s.Now()))
}

// Refresh collects the watchlist over its lookback window, then records and publishes a
// snapshot per symbol. Persistence and publishing failures are logged, not returned.
func (s *Scheduler) Refresh(ctx context.Context) (*collector.Report, error) {
	if len(s.Watchlist.Symbols) == 0 {
		return nil, fmt.Errorf("watchlist is empty")
	}
	now := s.Now()
	end := now
	start := now.AddDate(0, 0, -s.Watchlist.LookbackDays)

	began := time.Now()
	rep, err := s.Collector.Collect(ctx, s.Watchlist.Symbols, start, end, s.Watchlist.Window)
	run := &recorder.RefreshRun{
		Symbols:  s.Watchlist.Symbols,
		Start:    start,
		End:      end,
		Status:   "OK",
		Duration: time.Since(began),
	}
	if err != nil {
		run.Status = "FAILED"
		run.Note = err.Error()
		s.recordRun(run)
		if perr := s.Publisher.PublishRefreshFailed(ctx, s.Watchlist.Symbols, err); perr != nil {
			log.Printf("[ERROR] publish refresh failure: %v", perr)
		}
		return nil, err
	}
	run.Note = strings.Join(rep.Notes, "; ")
	s.recordRun(run)

	for _, snap := range recorder.SnapshotsFromReport(rep, now) {
		if err := s.Recorder.RecordSnapshot(&snap); err != nil {
			log.Printf("[ERROR] record snapshot %s: %v", snap.Symbol, err)
			continue
		}
		s.Metrics.SnapshotRecorded()
		if err := s.Publisher.PublishSnapshot(ctx, &snap); err != nil {
			log.Printf("[ERROR] publish snapshot %s: %v", snap.Symbol, err)
		}
	}
	log.Printf("[INFO] watchlist refreshed: %d symbols, %d notes", len(rep.Symbols), len(rep.Notes))
	return rep, nil
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	switch fields[0] {
	case "/watchlist", "/refresh":
		rep, err := s.Refresh(ctx)
		if err != nil {
			return notifier.FormatFailure("watchlist refresh", err)
		}
		return notifier.FormatDigest(rep, s.Now())
	case "/analyze":
		if len(fields) < 2 {
			return "Usage: /analyze SYMBOL [SYMBOL...]"
		}
		now := s.Now()
		syms := fields[1:]
		rep, err := s.Collector.Collect(ctx, syms, now.AddDate(0, 0, -s.Watchlist.LookbackDays), now, s.Watchlist.Window)
		if err != nil {
			return notifier.FormatFailure("analyze", err)
		}
		return notifier.FormatDigest(rep, now)
	default:
		return "Available commands:\n• /watchlist\n• /analyze SYMBOL [SYMBOL...]"
	}
}

func (s *Scheduler) recordRun(run *recorder.RefreshRun) {
	if err := s.Recorder.RecordRun(run); err != nil {
		log.Printf("[ERROR] record refresh run: %v", err)
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
