package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tartampluch/birthday-manager/internal/config"
	"github.com/tartampluch/birthday-manager/internal/metrics"
	"github.com/tartampluch/birthday-manager/internal/store"
)

// Ledger is the part of the store the dispatcher needs.
type Ledger interface {
	GetChannelConfig(ctx context.Context, group string) (*store.ChannelConfig, error)
	LogCommunication(ctx context.Context, e *store.CommunicationEntry) error
}

// Dispatcher fans a message out to every enabled channel of a group.
type Dispatcher struct {
	ledger   Ledger
	metrics  *metrics.Manager
	channels []Channel
}

// NewDispatcher tries channels in the order given.
func NewDispatcher(ledger Ledger, m *metrics.Manager, channels ...Channel) *Dispatcher {
	return &Dispatcher{ledger: ledger, metrics: m, channels: channels}
}

// Send delivers body to group over each enabled channel. A failing channel is
// recorded and does not stop the others; the only error returned is a failure
// to load the group's configuration.
func (d *Dispatcher) Send(ctx context.Context, group, subject, body string) ([]Result, error) {
	cfg, err := d.ledger.GetChannelConfig(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrChannelConfig, err)
	}

	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompNotify),
		slog.String(config.LogKeyGroup, group),
	)

	msg := Message{Group: group, Subject: subject, Body: body}
	results := make([]Result, 0, len(d.channels))

	for _, ch := range d.channels {
		if !ch.Enabled(*cfg) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, sendErr := ch.Send(ctx, *cfg, msg)
		res.Channel = ch.Name()
		switch {
		case sendErr != nil:
			res.Status = config.StatusFailed
			res.Error = sendErr.Error()
		case res.Status == "":
			res.Status = config.StatusSent
		}

		attrs := []any{
			slog.String(config.LogKeyChannel, res.Channel),
			slog.String(config.LogKeyState, res.Status),
		}
		if sendErr != nil {
			log.WarnContext(ctx, config.MsgNotifySent, append(attrs, slog.Any(config.LogKeyError, sendErr))...)
		} else {
			log.InfoContext(ctx, config.MsgNotifySent, attrs...)
		}
		d.metrics.RecordNotification(res.Channel, res.Status)

		entry := &store.CommunicationEntry{
			GroupName:  group,
			Channel:    res.Channel,
			Status:     res.Status,
			Recipients: res.Recipients,
			Message:    body,
			Error:      res.Error,
		}
		if err := d.ledger.LogCommunication(ctx, entry); err != nil {
			log.ErrorContext(ctx, config.ErrDBQuery, slog.Any(config.LogKeyError, err))
		}

		results = append(results, res)
	}
	return results, nil
}
