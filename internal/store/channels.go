package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tartampluch/birthday-manager/internal/config"
)

const channelColumns = `group_name, whatsapp_enabled, whatsapp_group_id, whatsapp_type,
	email_enabled, email_addresses, email_from,
	telegram_enabled, telegram_chat_id,
	webhook_enabled, webhook_url,
	auto_send_morning, template_style, updated_at`

// DefaultChannelConfig is what an unconfigured group gets: every channel off.
func DefaultChannelConfig(group string) ChannelConfig {
	return ChannelConfig{
		GroupName:     group,
		WhatsAppType:  config.DefaultWhatsAppType,
		TemplateStyle: config.DefaultTemplateStyle,
	}
}

// GetChannelConfig returns the stored settings of group, or the defaults
// when the group was never configured.
func (db *DB) GetChannelConfig(ctx context.Context, group string) (*ChannelConfig, error) {
	row := db.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM group_channels WHERE group_name = ?`, group)
	c, err := scanChannelConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		def := DefaultChannelConfig(group)
		return &def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get channel config: %w", err)
	}
	return &c, nil
}

// SaveChannelConfig upserts c.
func (db *DB) SaveChannelConfig(ctx context.Context, c *ChannelConfig) error {
	if c.GroupName == "" {
		return fmt.Errorf("%w: %s", ErrInvalid, config.ErrGroupRequired)
	}
	if c.WhatsAppType == "" {
		c.WhatsAppType = config.DefaultWhatsAppType
	}
	if c.TemplateStyle == "" {
		c.TemplateStyle = config.DefaultTemplateStyle
	}

	now := db.timestamp()
	_, err := db.ExecContext(ctx, `
		INSERT INTO group_channels (`+channelColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (group_name) DO UPDATE SET
			whatsapp_enabled  = excluded.whatsapp_enabled,
			whatsapp_group_id = excluded.whatsapp_group_id,
			whatsapp_type     = excluded.whatsapp_type,
			email_enabled     = excluded.email_enabled,
			email_addresses   = excluded.email_addresses,
			email_from        = excluded.email_from,
			telegram_enabled  = excluded.telegram_enabled,
			telegram_chat_id  = excluded.telegram_chat_id,
			webhook_enabled   = excluded.webhook_enabled,
			webhook_url       = excluded.webhook_url,
			auto_send_morning = excluded.auto_send_morning,
			template_style    = excluded.template_style,
			updated_at        = excluded.updated_at`,
		c.GroupName, c.WhatsAppEnabled, c.WhatsAppGroupID, c.WhatsAppType,
		c.EmailEnabled, c.EmailAddresses, c.EmailFrom,
		c.TelegramEnabled, c.TelegramChatID,
		c.WebhookEnabled, c.WebhookURL,
		c.AutoSendMorning, c.TemplateStyle, now,
	)
	if err != nil {
		return fmt.Errorf("save channel config: %w", err)
	}
	c.UpdatedAt = parseTimestamp(now)
	return nil
}

// ListChannelConfigs returns one config per existing group, ordered by group name.
// Groups without stored settings get the defaults.
func (db *DB) ListChannelConfigs(ctx context.Context) ([]ChannelConfig, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT g.name, gc.group_name IS NOT NULL,
			COALESCE(gc.whatsapp_enabled, 0), COALESCE(gc.whatsapp_group_id, ''), COALESCE(gc.whatsapp_type, ''),
			COALESCE(gc.email_enabled, 0), COALESCE(gc.email_addresses, ''), COALESCE(gc.email_from, ''),
			COALESCE(gc.telegram_enabled, 0), COALESCE(gc.telegram_chat_id, ''),
			COALESCE(gc.webhook_enabled, 0), COALESCE(gc.webhook_url, ''),
			COALESCE(gc.auto_send_morning, 0), COALESCE(gc.template_style, ''), COALESCE(gc.updated_at, '')
		FROM groups g
		LEFT JOIN group_channels gc ON gc.group_name = g.name
		ORDER BY g.name`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrDBQuery, err)
	}
	defer func() { _ = rows.Close() }()

	var out []ChannelConfig
	for rows.Next() {
		var name, updatedAt string
		var stored bool
		var c ChannelConfig
		if err := rows.Scan(&name, &stored,
			&c.WhatsAppEnabled, &c.WhatsAppGroupID, &c.WhatsAppType,
			&c.EmailEnabled, &c.EmailAddresses, &c.EmailFrom,
			&c.TelegramEnabled, &c.TelegramChatID,
			&c.WebhookEnabled, &c.WebhookURL,
			&c.AutoSendMorning, &c.TemplateStyle, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan channel config: %w", err)
		}
		if !stored {
			c = DefaultChannelConfig(name)
		}
		c.GroupName = name
		c.UpdatedAt = parseTimestamp(updatedAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanChannelConfig(r rowScanner) (ChannelConfig, error) {
	var c ChannelConfig
	var updatedAt string
	err := r.Scan(&c.GroupName,
		&c.WhatsAppEnabled, &c.WhatsAppGroupID, &c.WhatsAppType,
		&c.EmailEnabled, &c.EmailAddresses, &c.EmailFrom,
		&c.TelegramEnabled, &c.TelegramChatID,
		&c.WebhookEnabled, &c.WebhookURL,
		&c.AutoSendMorning, &c.TemplateStyle, &updatedAt,
	)
	if err != nil {
		return ChannelConfig{}, err
	}
	c.UpdatedAt = parseTimestamp(updatedAt)
	return c, nil
}
