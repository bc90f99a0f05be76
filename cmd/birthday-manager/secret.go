package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tartampluch/birthday-manager/internal/config"
	"github.com/tartampluch/birthday-manager/internal/credentials"
)

// secretCmd stores channel secrets without putting them on the command line:
//
//	echo "$TOKEN" | birthday-manager secret telegram Familie
//	birthday-manager secret smtp bot@example.com < password.txt
func (c *cli) secretCmd() *cobra.Command {
	return &cobra.Command{
		Use:       config.CmdSecret + " <smtp|web|telegram> <user-or-group>",
		Short:     config.CmdDescSecret,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{config.SecretKindSMTP, config.SecretKindWeb, config.SecretKindTelegram},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, name := args[0], args[1]

			value, err := readSecret(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if err := storeSecret(credentials.New(), kind, name, value); err != nil {
				return err
			}

			msg := config.MsgSecretStored
			if value == "" {
				msg = config.MsgSecretDeleted
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), msg, kind, name)
			return nil
		},
	}
}

// readSecret returns the first line of r without its line ending.
func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func storeSecret(s *credentials.Store, kind, name, value string) error {
	switch kind {
	case config.SecretKindSMTP:
		return s.SetSMTPPassword(name, value)
	case config.SecretKindWeb:
		return s.SetWebPassword(name, value)
	case config.SecretKindTelegram:
		return s.SetTelegramToken(name, value)
	default:
		return fmt.Errorf("%s; got %q", config.ErrSecretKind, kind)
	}
}
