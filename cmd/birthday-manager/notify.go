package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tartampluch/birthday-manager/internal/config"
	"github.com/tartampluch/birthday-manager/internal/notify"
)

func (c *cli) notifyCmd() *cobra.Command {
	var group, today string
	var test bool

	cmd := &cobra.Command{
		Use:   config.CmdNotify,
		Short: config.CmdDescNotify,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			clock, err := clockFor(today)
			if err != nil {
				return err
			}
			e, err := c.open(cmd.Context(), clock, false)
			if err != nil {
				return err
			}
			defer e.Close()

			return sendDigests(cmd.Context(), cmd.OutOrStdout(), e, e.dispatcher(), group, test)
		},
	}

	f := cmd.Flags()
	f.StringVar(&group, config.FlagGroup, "", config.FlagDescGroup)
	f.BoolVar(&test, config.FlagTest, false, config.FlagDescTest)
	f.StringVar(&today, config.FlagToday, "", config.FlagDescToday)
	return cmd
}

// sendDigests sends today's digest (or a test message) to one group, or to
// every configured group when only is empty. Unlike the scheduler it ignores
// the auto-send flag and the once-a-day bookkeeping.
func sendDigests(ctx context.Context, w io.Writer, e *env, sender notify.Sender, only string, test bool) error {
	cfgs, err := e.svc.ListChannelConfigs(ctx)
	if err != nil {
		return err
	}
	styles := make(map[string]string, len(cfgs))
	groups := make([]string, 0, len(cfgs))
	for _, cfg := range cfgs {
		styles[cfg.GroupName] = cfg.TemplateStyle
		groups = append(groups, cfg.GroupName)
	}
	if only != "" {
		groups = []string{only}
	}

	today := e.svc.Today()
	byGroup, err := e.svc.TodayByGroup(ctx, today)
	if err != nil {
		return err
	}

	composer := e.composer()
	failed := false
	for _, g := range groups {
		body := composer.TestMessage(g, e.svc.Now())
		if !test {
			celebrants := byGroup[g]
			if len(celebrants) == 0 {
				_, _ = fmt.Fprintf(w, config.MsgNothingToSend, g)
				continue
			}
			body = composer.GroupDigest(g, styles[g], today, celebrants)
		}

		results, err := sender.Send(ctx, g, composer.Subject(g), body)
		if err != nil {
			return err
		}
		for _, r := range results {
			_, _ = fmt.Fprintf(w, config.MsgNotifyResult, g, r.Channel, r.Status, cmp.Or(r.Error, r.Link))
			failed = failed || r.Status == config.StatusFailed
		}
	}

	if failed {
		return errors.New(config.ErrNotifyFailed)
	}
	return nil
}
