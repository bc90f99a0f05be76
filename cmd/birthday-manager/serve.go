package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/tartampluch/birthday-manager/internal/config"
	"github.com/tartampluch/birthday-manager/internal/engine"
	"github.com/tartampluch/birthday-manager/internal/notify"
	"github.com/tartampluch/birthday-manager/internal/server"
	"golang.org/x/sync/errgroup"
)

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   config.CmdServe,
		Short: config.CmdDescServe,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := c.open(cmd.Context(), engine.RealClock{}, true)
			if err != nil {
				return err
			}
			defer e.Close()

			logStartupInfo(e.logger)
			if err := serve(cmd.Context(), e); err != nil {
				return err
			}
			e.logger.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
			return nil
		},
	}
}

// serve runs the HTTP server, the scheduler and the feed builder until ctx
// is cancelled or one of them fails.
func serve(ctx context.Context, e *env) error {
	calendar := server.NewCalendar()
	composer := e.composer()
	dispatcher := e.dispatcher()

	// Writes through the API trigger an early rebuild; a pending signal is enough.
	changed := make(chan struct{}, config.ChannelBufferSize)
	notifyChanged := func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}

	srv := server.New(e.settings.Addr, server.Deps{
		Service:  e.svc,
		Sender:   dispatcher,
		Composer: composer,
		Calendar: calendar,
		Metrics:  e.metrics,
		Secrets:  e.secrets,
		Logger:   e.logger,
		Changed:  notifyChanged,
	})

	sched := &notify.Scheduler{
		Clock:       engine.RealClock{},
		Agenda:      e.svc,
		Sender:      dispatcher,
		Composer:    composer,
		Metrics:     e.metrics,
		Interval:    e.settings.CheckInterval,
		MorningHour: e.settings.MorningHour,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(gctx) })
	g.Go(func() error {
		sched.Run(gctx)
		return nil
	})
	g.Go(func() error {
		feedLoop(gctx, e, calendar, changed, config.DefaultFeedRefresh)
		return nil
	})
	return g.Wait()
}

// feedLoop rebuilds the calendar once immediately, then on every tick or
// change signal. A failed build keeps serving the previous feed.
func feedLoop(ctx context.Context, e *env, cal *server.Calendar, changed <-chan struct{}, interval time.Duration) {
	log := e.logger.With(slog.String(config.LogKeyComponent, config.CompFeed))
	gen := e.feedGenerator()

	rebuild := func() {
		data, stats, err := e.svc.BuildFeed(ctx, gen)
		if err != nil {
			log.ErrorContext(ctx, config.ErrFeedBuild, config.LogKeyError, err)
			return
		}
		log.InfoContext(ctx, config.MsgFeedRebuilt,
			config.LogKeyChanged, cal.Update(data),
			config.LogKeyTotal, stats.Processed,
			config.LogKeyFound, stats.Dated,
			config.LogKeyToday, stats.Today,
		)
	}

	rebuild()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rebuild()
		case <-changed:
			rebuild()
		}
	}
}
