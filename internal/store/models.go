package store

import (
	"strings"
	"time"
)

// Person is a stored contact.
type Person struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Birthday  string    `json:"birthday"` // DD.MM.YYYY as entered, never normalized here
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Notes     string    `json:"notes"`
	Groups    []string  `json:"groups"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName joins first and last name.
func (p Person) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Group is a membership tag with its member count.
type Group struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"member_count"`
}

// ChannelConfig describes how a group is notified.
type ChannelConfig struct {
	GroupName string `json:"group_name"`

	WhatsAppEnabled bool   `json:"whatsapp_enabled"`
	WhatsAppGroupID string `json:"whatsapp_group_id"`
	WhatsAppType    string `json:"whatsapp_type"` // group, broadcast, individual

	EmailEnabled   bool   `json:"email_enabled"`
	EmailAddresses string `json:"email_addresses"` // comma separated
	EmailFrom      string `json:"email_from"`

	// The bot token is kept in the OS keyring, not here.
	TelegramEnabled bool   `json:"telegram_enabled"`
	TelegramChatID  string `json:"telegram_chat_id"`

	WebhookEnabled bool   `json:"webhook_enabled"`
	WebhookURL     string `json:"webhook_url"`

	AutoSendMorning bool   `json:"auto_send_morning"`
	TemplateStyle   string `json:"template_style"`

	UpdatedAt time.Time `json:"updated_at"`
}

// EmailRecipients splits EmailAddresses into trimmed, non-empty entries.
func (c ChannelConfig) EmailRecipients() []string {
	var out []string
	for _, a := range strings.Split(c.EmailAddresses, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// CommunicationEntry is one delivery attempt.
type CommunicationEntry struct {
	ID         int64     `json:"id"`
	GroupName  string    `json:"group_name"`
	Channel    string    `json:"channel"`
	Status     string    `json:"status"`
	Recipients string    `json:"recipients"`
	Message    string    `json:"message"`
	Error      string    `json:"error_message,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}
