package notify

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/tartampluch/birthday-manager/internal/config"
	"github.com/tartampluch/birthday-manager/internal/store"
)

// Message is what a dispatcher hands to every channel of a group.
type Message struct {
	Group   string
	Subject string
	Body    string
}

// Result is the outcome of one channel attempt.
type Result struct {
	Channel    string `json:"channel"`
	Status     string `json:"status"`
	Recipients string `json:"recipients,omitempty"`
	Link       string `json:"link,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Channel delivers a message to one kind of destination.
type Channel interface {
	Name() string
	// Enabled reports whether cfg switches the channel on and names a destination.
	Enabled(cfg store.ChannelConfig) bool
	// Send returns the recipients it addressed. A non-empty Result.Status
	// overrides the default "sent".
	Send(ctx context.Context, cfg store.ChannelConfig, msg Message) (Result, error)
}

// -----------------------------------------------------------------------------
// Email
// -----------------------------------------------------------------------------

// SendMailFunc matches smtp.SendMail.
type SendMailFunc func(addr string, a sasl.Client, from string, to []string, r io.Reader) error

// EmailChannel sends plain-text mail through an SMTP relay.
type EmailChannel struct {
	Host string
	Port int
	User string
	From string
	// Password is looked up lazily so a keyring miss only fails this channel.
	Password func() (string, error)
	SendMail SendMailFunc
	Now      func() time.Time
}

// NewEmailChannel configures an EmailChannel from settings.
func NewEmailChannel(s *config.Settings, password func() (string, error)) *EmailChannel {
	return &EmailChannel{
		Host:     s.SMTPHost,
		Port:     s.SMTPPort,
		User:     s.SMTPUser,
		From:     s.SMTPFrom,
		Password: password,
		SendMail: smtp.SendMail,
		Now:      time.Now,
	}
}

func (e *EmailChannel) Name() string { return config.ChannelEmail }

func (e *EmailChannel) Enabled(cfg store.ChannelConfig) bool {
	return cfg.EmailEnabled && len(cfg.EmailRecipients()) > 0
}

func (e *EmailChannel) Send(_ context.Context, cfg store.ChannelConfig, msg Message) (Result, error) {
	to := cfg.EmailRecipients()
	res := Result{Recipients: strings.Join(to, ", ")}

	if e.Host == "" {
		return res, errors.New(config.ErrSMTPNotConfig)
	}
	if len(to) == 0 {
		return res, errors.New(config.ErrNoRecipients)
	}

	from := cmp.Or(cfg.EmailFrom, e.From)
	if from == "" {
		return res, errors.New(config.ErrSMTPNotConfig)
	}

	var auth sasl.Client
	if e.User != "" && e.Password != nil {
		pass, err := e.Password()
		if err != nil {
			return res, err
		}
		auth = sasl.NewPlainClient("", e.User, pass)
	}

	subject := msg.Subject
	if subject == "" {
		subject = config.DefaultSubject
	}
	subject += " - " + msg.Group

	addr := net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
	if err := e.SendMail(addr, auth, from, to, e.build(from, to, subject, msg.Body)); err != nil {
		return res, err
	}
	return res, nil
}

func (e *EmailChannel) build(from string, to []string, subject, body string) io.Reader {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", e.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return &b
}

// -----------------------------------------------------------------------------
// Telegram
// -----------------------------------------------------------------------------

// TokenSource resolves the bot token of a group.
type TokenSource interface {
	TelegramToken(group string) (string, error)
}

// TelegramChannel posts to the Bot API sendMessage method.
type TelegramChannel struct {
	Client  *http.Client
	APIBase string
	Tokens  TokenSource
}

type telegramRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *TelegramChannel) Name() string { return config.ChannelTelegram }

func (t *TelegramChannel) Enabled(cfg store.ChannelConfig) bool {
	return cfg.TelegramEnabled && cfg.TelegramChatID != ""
}

func (t *TelegramChannel) Send(ctx context.Context, cfg store.ChannelConfig, msg Message) (Result, error) {
	res := Result{Recipients: cfg.TelegramChatID}

	token, err := t.Tokens.TelegramToken(msg.Group)
	if err != nil || token == "" {
		return res, errors.New(config.ErrTelegramToken)
	}

	body := telegramRequest{
		ChatID:    cfg.TelegramChatID,
		Text:      fmt.Sprintf("🎂 *%s - %s*\n\n%s", config.AppName, msg.Group, msg.Body),
		ParseMode: "Markdown",
	}
	endpoint := strings.TrimSuffix(t.APIBase, "/") + "/bot" + token + "/sendMessage"

	resp, err := postJSON(ctx, t.Client, endpoint, body)
	if err != nil {
		// The token is part of the URL; never surface it.
		return res, errors.New(strings.ReplaceAll(err.Error(), token, "***"))
	}
	defer func() { _ = resp.Body.Close() }()

	var tr telegramResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, config.MaxUploadSize)).Decode(&tr); err != nil {
		return res, fmt.Errorf("%s: %w", config.ErrTelegramAPI, err)
	}
	if !tr.OK {
		if tr.Description == "" {
			tr.Description = resp.Status
		}
		return res, fmt.Errorf("%s: %s", config.ErrTelegramAPI, tr.Description)
	}
	return res, nil
}

// -----------------------------------------------------------------------------
// Webhook
// -----------------------------------------------------------------------------

// WebhookChannel posts a JSON document to a user-supplied URL.
type WebhookChannel struct {
	Client *http.Client
	Now    func() time.Time
}

type webhookPayload struct {
	Source    string `json:"source"`
	Group     string `json:"group"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func (w *WebhookChannel) Name() string { return config.ChannelWebhook }

func (w *WebhookChannel) Enabled(cfg store.ChannelConfig) bool {
	return cfg.WebhookEnabled && cfg.WebhookURL != ""
}

func (w *WebhookChannel) Send(ctx context.Context, cfg store.ChannelConfig, msg Message) (Result, error) {
	res := Result{Recipients: cfg.WebhookURL}

	now := w.Now
	if now == nil {
		now = time.Now
	}
	resp, err := postJSON(ctx, w.Client, cfg.WebhookURL, webhookPayload{
		Source:    config.WebhookSource,
		Group:     msg.Group,
		Message:   msg.Body,
		Timestamp: now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return res, err
	}
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return res, fmt.Errorf("%s: %s", config.ErrWebhookStatus, resp.Status)
	}
	return res, nil
}

// -----------------------------------------------------------------------------
// WhatsApp
// -----------------------------------------------------------------------------

// WhatsAppChannel forwards to an external bridge. Without a bridge it only
// produces a wa.me link and reports StatusLink.
type WhatsAppChannel struct {
	Client    *http.Client
	BridgeURL string
}

type bridgePayload struct {
	Message string `json:"message"`
	Group   string `json:"bereich"`
	GroupID string `json:"groupId"`
	Type    string `json:"type"`
}

func (w *WhatsAppChannel) Name() string { return config.ChannelWhatsApp }

func (w *WhatsAppChannel) Enabled(cfg store.ChannelConfig) bool {
	return cfg.WhatsAppEnabled && cfg.WhatsAppGroupID != ""
}

func (w *WhatsAppChannel) Send(ctx context.Context, cfg store.ChannelConfig, msg Message) (Result, error) {
	res := Result{Recipients: cfg.WhatsAppGroupID}

	if w.BridgeURL == "" {
		res.Status = config.StatusLink
		res.Link = WhatsAppLink("", msg.Body)
		return res, nil
	}

	resp, err := postJSON(ctx, w.Client, w.BridgeURL, bridgePayload{
		Message: msg.Body,
		Group:   msg.Group,
		GroupID: cfg.WhatsAppGroupID,
		Type:    cmp.Or(cfg.WhatsAppType, config.DefaultWhatsAppType),
	})
	if err != nil {
		return res, err
	}
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return res, fmt.Errorf("%s: %s", config.ErrBridgeStatus, resp.Status)
	}
	return res, nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func postJSON(ctx context.Context, client *http.Client, endpoint string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrFetchRequest, err)
	}
	req.Header.Set(config.HeaderContentType, config.MimeJSON)
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrFetchNetwork, err)
	}
	return resp, nil
}
