package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/tartampluch/birthday-manager/internal/app"
	"github.com/tartampluch/birthday-manager/internal/config"
	"github.com/tartampluch/birthday-manager/internal/engine"
	"github.com/tartampluch/birthday-manager/internal/locale"
)

// fixedClock pins "now" to noon of a given day for --today previews.
type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// clockFor returns the real clock, or a fixed one when today is given.
func clockFor(today string) (engine.Clock, error) {
	if today == "" {
		return engine.RealClock{}, nil
	}
	d, err := engine.ParseAnniversary(today)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrTodayOverride, err)
	}
	return fixedClock{time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.Local)}, nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	todayStyle  = cellStyle.Foreground(lipgloss.Color("205")).Bold(true)
	mutedStyle  = cellStyle.Foreground(lipgloss.Color("241"))
)

func (c *cli) upcomingCmd() *cobra.Command {
	var (
		days  int
		today string
		group string
	)

	cmd := &cobra.Command{
		Use:   config.CmdUpcoming,
		Short: config.CmdDescUpcoming,
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

			var list []app.Upcoming
			if cmd.Flags().Changed(config.FlagDays) {
				list, err = e.svc.UpcomingWithin(cmd.Context(), e.svc.Today(), days)
			} else {
				list, err = e.svc.Rank(cmd.Context(), e.svc.Today())
			}
			if err != nil {
				return err
			}
			if group != "" {
				list = slices.DeleteFunc(list, func(u app.Upcoming) bool {
					return !slices.Contains(u.Person.Groups, group)
				})
			}

			renderUpcoming(cmd.OutOrStdout(), e.loc, list)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&days, config.FlagDays, config.DefaultUpcomingDays, config.FlagDescDays)
	f.StringVar(&today, config.FlagToday, "", config.FlagDescToday)
	f.StringVar(&group, config.FlagGroup, "", config.FlagDescGroup)
	return cmd
}

// renderUpcoming prints the ranked list as a table. Rows celebrating today
// are highlighted, undatable rows are dimmed.
func renderUpcoming(w io.Writer, loc *locale.Localizer, list []app.Upcoming) {
	rows := make([][]string, 0, len(list))
	for _, u := range list {
		days, age := "-", "-"
		if u.DaysUntil != nil {
			days = strconv.Itoa(*u.DaysUntil)
		}
		if u.TurningAge != nil && *u.TurningAge > 0 {
			age = strconv.Itoa(*u.TurningAge)
		}
		rows = append(rows, []string{days, u.Person.DisplayName(), u.Person.Birthday, age, classLabel(loc, u)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("241"))).
		Headers(
			loc.Msg(config.TKeyColDays, nil),
			loc.Msg(config.TKeyColName, nil),
			loc.Msg(config.TKeyColDate, nil),
			loc.Msg(config.TKeyColAge, nil),
			loc.Msg(config.TKeyColState, nil),
		).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case list[row].Class == engine.ProximityToday:
				return todayStyle
			case list[row].Class == engine.ProximityUnknown:
				return mutedStyle
			default:
				return cellStyle
			}
		})

	_, _ = fmt.Fprintln(w, t.Render())
}

func classLabel(loc *locale.Localizer, u app.Upcoming) string {
	switch u.Class {
	case engine.ProximityToday:
		return loc.Msg(config.TKeyClassToday, nil)
	case engine.ProximityTomorrow:
		return loc.Msg(config.TKeyClassTomorrow, nil)
	case engine.ProximityUnknown:
		return loc.Msg(config.TKeyClassUnknown, nil)
	default:
		return loc.Plural(config.TKeyClassDays, *u.DaysUntil, map[string]any{"Days": *u.DaysUntil})
	}
}
