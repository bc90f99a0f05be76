package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tartampluch/birthday-manager/internal/app"
	"github.com/tartampluch/birthday-manager/internal/config"
	"github.com/tartampluch/birthday-manager/internal/credentials"
	"github.com/tartampluch/birthday-manager/internal/engine"
	"github.com/tartampluch/birthday-manager/internal/exchange"
)

func (c *cli) importCmd() *cobra.Command {
	var format, url, user string

	cmd := &cobra.Command{
		Use:   config.CmdImport + " [file]",
		Short: config.CmdDescImport,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 1) == (url != "") {
				return errors.New(config.ErrImportSource)
			}

			e, err := c.open(cmd.Context(), engine.RealClock{}, false)
			if err != nil {
				return err
			}
			defer e.Close()

			var rep app.ImportReport
			if url != "" {
				pass, err := e.secrets.WebPassword(user)
				if err != nil && !errors.Is(err, credentials.ErrNotFound) {
					return err
				}
				src := exchange.Source{URL: url, User: user, Password: pass}
				rep, err = e.svc.ImportRemote(cmd.Context(), exchange.NewHTTPFetcher(e.logger), src)
				if err != nil {
					return err
				}
			} else {
				rep, err = importFile(cmd, e, args[0], format)
				if err != nil {
					return err
				}
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), config.MsgImportReport, rep.Stored, rep.Read)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&format, config.FlagFormat, "", config.FlagDescFormat)
	f.StringVar(&url, config.FlagURL, "", config.FlagDescURL)
	f.StringVar(&user, config.FlagUser, "", config.FlagDescUser)
	return cmd
}

func importFile(cmd *cobra.Command, e *env, path, format string) (app.ImportReport, error) {
	if format == "" {
		format = formatFromExt(path)
	}

	switch format {
	case config.FormatCSV:
		data, err := os.ReadFile(path)
		if err != nil {
			return app.ImportReport{}, err
		}
		rep, err := e.svc.ImportCSV(cmd.Context(), data)
		if errors.Is(err, app.ErrInvalidImport) {
			for _, msg := range rep.Validation.Errors {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), msg)
			}
		}
		return rep, err

	case config.FormatVCard:
		f, err := os.Open(path)
		if err != nil {
			return app.ImportReport{}, err
		}
		defer func() { _ = f.Close() }()
		return e.svc.ImportVCards(cmd.Context(), f)

	default:
		return app.ImportReport{}, fmt.Errorf("%s: %q", config.ErrFormatUnsupport, format)
	}
}

func formatFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case config.ExtVCF, config.ExtVCard:
		return config.FormatVCard
	case config.ExtICS:
		return config.FormatICS
	default:
		return config.FormatCSV
	}
}

func (c *cli) exportCmd() *cobra.Command {
	var format, output, today string

	cmd := &cobra.Command{
		Use:   config.CmdExport,
		Short: config.CmdDescExport,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			clock, err := clockFor(today)
			if err != nil {
				return err
			}
			if format == "" {
				format = formatFromExt(output)
			}

			e, err := c.open(cmd.Context(), clock, false)
			if err != nil {
				return err
			}
			defer e.Close()

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, ferr := os.OpenFile(output, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, config.FilePermUserRW)
				if ferr != nil {
					return ferr
				}
				defer func() {
					if cerr := f.Close(); err == nil {
						err = cerr
					}
				}()
				w = f
			}

			if format == config.FormatICS {
				data, _, err := e.svc.BuildFeed(cmd.Context(), e.feedGenerator())
				if err != nil {
					return err
				}
				_, err = w.Write(data)
				return err
			}
			return e.svc.Export(cmd.Context(), w, format)
		},
	}

	f := cmd.Flags()
	f.StringVar(&format, config.FlagFormat, "", config.FlagDescFormat)
	f.StringVar(&output, config.FlagOutput, "", config.FlagDescOutput)
	f.StringVar(&today, config.FlagToday, "", config.FlagDescToday)
	return cmd
}
