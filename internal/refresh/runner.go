package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "suntimes/internal/log"
	"suntimes/internal/model"
	"suntimes/internal/schedule"
)

// Snapshot is the result of one planning run.
type Snapshot struct {
	GeneratedAt time.Time
	From        time.Time
	Days        int
	Events      []model.SunEvent
	Alerts      []model.Alert
}

// Runner re-plans sun events and alerts on a cron schedule and keeps the
// latest Snapshot for readers such as the HTTP API.
type Runner struct {
	planner *schedule.Planner
	spec    string
	days    int
	now     func() time.Time

	mu      sync.RWMutex
	snap    Snapshot
	hasSnap bool

	cron     *cron.Cron
	stopOnce sync.Once
	done     chan struct{}
}

// NewRunner validates the cron spec (standard 5-field or descriptors such
// as "@hourly") and returns an idle Runner.
func NewRunner(planner *schedule.Planner, spec string, days int) (*Runner, error) {
	if planner == nil {
		return nil, errors.New("refresh: nil planner")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("refresh: invalid cron spec %q: %w", spec, err)
	}
	if days <= 0 {
		days = schedule.DefaultDays
	}
	return &Runner{
		planner: planner,
		spec:    spec,
		days:    days,
		now:     time.Now,
		done:    make(chan struct{}),
	}, nil
}

// RunOnce plans from now and publishes the result. Alerts of the previous
// snapshot whose trigger fell in (previous run, now] are logged as due.
func (r *Runner) RunOnce(now time.Time) (Snapshot, error) {
	today := r.planner.Today(now)
	events, err := r.planner.Events(today, r.days)
	if err != nil {
		return Snapshot{}, err
	}
	alerts, err := r.planner.Alerts(now, r.days)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		GeneratedAt: now,
		From:        today.Midnight(r.planner.Location()),
		Days:        r.days,
		Events:      events,
		Alerts:      alerts,
	}

	r.mu.Lock()
	prev, hadPrev := r.snap, r.hasSnap
	r.snap, r.hasSnap = snap, true
	r.mu.Unlock()

	if hadPrev {
		for _, a := range prev.Alerts {
			if a.TriggerAt.After(prev.GeneratedAt) && !a.TriggerAt.After(now) {
				appLog.Info("sun alert due",
					"type", a.Event.Type.String(),
					"event_at", a.Event.At.Format(time.RFC3339),
					"trigger_at", a.TriggerAt.Format(time.RFC3339),
				)
			}
		}
	}

	next := "none"
	if len(alerts) > 0 {
		next = alerts[0].TriggerAt.Format(time.RFC3339)
	}
	appLog.Info("sun schedule refreshed",
		"from", today.String(),
		"days", r.days,
		"events", len(events),
		"alerts", len(alerts),
		"next_alert", next,
	)
	return snap, nil
}

// Snapshot returns the latest published plan and whether one exists.
func (r *Runner) Snapshot() (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap, r.hasSnap
}

// Start runs an initial plan, then schedules refreshes in the planner's
// timezone until ctx is canceled or Stop is called.
func (r *Runner) Start(ctx context.Context) error {
	if _, err := r.RunOnce(r.now()); err != nil {
		return err
	}

	r.cron = cron.New(cron.WithLocation(r.planner.Location()))
	if _, err := r.cron.AddFunc(r.spec, r.tick); err != nil {
		return fmt.Errorf("refresh: schedule %q: %w", r.spec, err)
	}
	r.cron.Start()
	appLog.Info("refresh runner started", "spec", r.spec, "timezone", r.planner.Location().String())

	go func() {
		select {
		case <-ctx.Done():
			r.Stop()
		case <-r.done:
		}
	}()
	return nil
}

func (r *Runner) tick() {
	if _, err := r.RunOnce(r.now()); err != nil {
		appLog.Error("sun schedule refresh failed", err, "spec", r.spec)
	}
}

// Stop halts the cron scheduler and waits for a running refresh to finish.
// It is safe to call more than once.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		if r.cron != nil {
			<-r.cron.Stop().Done()
		}
		appLog.Info("refresh runner stopped")
	})
}
