package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tartampluch/birthday-manager/internal/config"
	"github.com/tartampluch/birthday-manager/internal/engine"
	"github.com/tartampluch/birthday-manager/internal/metrics"
	"github.com/tartampluch/birthday-manager/internal/store"
)

// Scheduler outcomes, also used as metric labels.
const (
	OutcomeEarly = "early"
	OutcomeIdle  = "idle"
	OutcomeSent  = "sent"
	OutcomeError = "error"
)

// Agenda provides what the morning run needs.
type Agenda interface {
	TodayByGroup(ctx context.Context, today engine.Date) (map[string][]engine.Ranked, error)
	ListChannelConfigs(ctx context.Context) ([]store.ChannelConfig, error)
	MarkNotified(ctx context.Context, day, group string) (bool, error)
}

// Sender is satisfied by *Dispatcher.
type Sender interface {
	Send(ctx context.Context, group, subject, body string) ([]Result, error)
}

// Scheduler sends the daily digest of every group with auto morning enabled.
type Scheduler struct {
	Clock       engine.Clock
	Agenda      Agenda
	Sender      Sender
	Composer    *Composer
	Metrics     *metrics.Manager
	Interval    time.Duration
	MorningHour int
}

// Run checks once immediately and then on every tick until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	log := slog.With(config.LogKeyComponent, config.CompScheduler)

	interval := s.Interval
	if interval <= 0 {
		interval = config.DefaultCheckInterval
	}

	s.tick(ctx, log)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info(config.MsgWorkerStart, config.LogKeyInterval, interval)

	for {
		select {
		case <-ctx.Done():
			log.Info(config.MsgWorkerStop)
			return
		case <-ticker.C:
			s.tick(ctx, log)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, log *slog.Logger) {
	outcome, err := s.RunOnce(ctx)
	switch {
	case err != nil && !errors.Is(err, context.Canceled):
		log.Error(config.ErrSchedulerTick, config.LogKeyOutcome, outcome, config.LogKeyError, err)
	default:
		log.Debug(config.MsgSchedulerTick, config.LogKeyOutcome, outcome)
	}
	s.Metrics.RecordSchedulerRun(outcome)
}

// RunOnce performs a single check. The date is read once, so a tick
// straddling midnight still works on a single day.
func (s *Scheduler) RunOnce(ctx context.Context) (string, error) {
	now := s.Clock.Now()
	if now.Hour() < s.MorningHour {
		return OutcomeEarly, nil
	}
	today := engine.DateOf(now)

	configs, err := s.Agenda.ListChannelConfigs(ctx)
	if err != nil {
		return OutcomeError, fmt.Errorf("%s: %w", config.ErrChannelConfig, err)
	}

	celebrants, err := s.Agenda.TodayByGroup(ctx, today)
	if err != nil {
		return OutcomeError, err
	}

	outcome := OutcomeIdle
	var errs []error
	for _, cfg := range configs {
		people := celebrants[cfg.GroupName]
		if !cfg.AutoSendMorning || len(people) == 0 {
			continue
		}

		first, err := s.Agenda.MarkNotified(ctx, today.ISO(), cfg.GroupName)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !first {
			slog.Debug(config.MsgNotifySkip,
				config.LogKeyComponent, config.CompScheduler,
				config.LogKeyGroup, cfg.GroupName,
				config.LogKeyDay, today.String(),
			)
			continue
		}

		slog.Info(config.MsgBdayToday,
			config.LogKeyComponent, config.CompScheduler,
			config.LogKeyGroup, cfg.GroupName,
			config.LogKeyCount, len(people),
		)
		body := s.Composer.GroupDigest(cfg.GroupName, cfg.TemplateStyle, today, people)
		if _, err := s.Sender.Send(ctx, cfg.GroupName, s.Composer.Subject(cfg.GroupName), body); err != nil {
			errs = append(errs, err)
			continue
		}
		outcome = OutcomeSent
	}

	if err := errors.Join(errs...); err != nil {
		return OutcomeError, err
	}
	return outcome, nil
}
