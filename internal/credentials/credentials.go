// Package credentials keeps channel secrets in the operating system keyring.
package credentials

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tartampluch/birthday-manager/internal/config"
	"github.com/zalando/go-keyring"
)

// ErrNotFound is returned when no secret is stored under the requested name.
var ErrNotFound = errors.New(config.ErrSecretMissing)

// Store reads and writes secrets under config.KeyringService.
type Store struct {
	Service string
}

// New returns a Store bound to the application's keyring service.
func New() *Store {
	return &Store{Service: config.KeyringService}
}

// TelegramToken returns the bot token used for group.
func (s *Store) TelegramToken(group string) (string, error) {
	return s.get(config.SecretTelegramPrefix + group)
}

// SetTelegramToken stores the bot token used for group.
func (s *Store) SetTelegramToken(group, token string) error {
	return s.set(config.SecretTelegramPrefix+group, token)
}

// SMTPPassword returns the password of the SMTP user.
func (s *Store) SMTPPassword(user string) (string, error) {
	return s.get(config.SecretSMTPPrefix + user)
}

// SetSMTPPassword stores the password of the SMTP user.
func (s *Store) SetSMTPPassword(user, password string) error {
	return s.set(config.SecretSMTPPrefix+user, password)
}

// WebPassword returns the Basic Auth password for a remote vCard source.
func (s *Store) WebPassword(user string) (string, error) {
	return s.get(config.SecretWebPrefix + user)
}

// SetWebPassword stores the Basic Auth password for a remote vCard source.
func (s *Store) SetWebPassword(user, password string) error {
	return s.set(config.SecretWebPrefix+user, password)
}

func (s *Store) get(key string) (string, error) {
	secret, err := keyring.Get(s.Service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		// Some keyrings fail instead of reporting an empty entry.
		slog.Debug(config.MsgSecretMissing,
			config.LogKeyComponent, config.CompSecrets,
			config.LogKeyKey, key,
			config.LogKeyError, err)
		return "", fmt.Errorf("%s: %w", config.ErrSecretMissing, err)
	}
	return secret, nil
}

func (s *Store) set(key, secret string) error {
	if secret == "" {
		err := keyring.Delete(s.Service, key)
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("%s: %w", config.ErrSecretStore, err)
		}
		return nil
	}
	if err := keyring.Set(s.Service, key, secret); err != nil {
		return fmt.Errorf("%s: %w", config.ErrSecretStore, err)
	}
	return nil
}
