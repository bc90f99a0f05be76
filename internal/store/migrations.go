package store

// migrationsSQL contains all database migrations, applied in version order.
var migrationsSQL = map[int]string{
	1: migrationV1Contacts,
	2: migrationV2Communication,
	3: migrationV3NotificationRuns,
}

// Birthdays are kept as entered. Parsing belongs to the engine, which
// classifies bad values instead of rejecting them.
const migrationV1Contacts = `
CREATE TABLE groups (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE people (
	id         TEXT PRIMARY KEY,
	first_name TEXT NOT NULL DEFAULT '',
	last_name  TEXT NOT NULL DEFAULT '',
	birthday   TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	notes      TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE person_groups (
	person_id TEXT    NOT NULL REFERENCES people (id) ON DELETE CASCADE,
	group_id  INTEGER NOT NULL REFERENCES groups (id) ON DELETE CASCADE,
	PRIMARY KEY (person_id, group_id)
);

CREATE INDEX idx_person_groups_group ON person_groups (group_id);
`

const migrationV2Communication = `
CREATE TABLE group_channels (
	group_name        TEXT PRIMARY KEY,
	whatsapp_enabled  INTEGER NOT NULL DEFAULT 0,
	whatsapp_group_id TEXT    NOT NULL DEFAULT '',
	whatsapp_type     TEXT    NOT NULL DEFAULT 'group',
	email_enabled     INTEGER NOT NULL DEFAULT 0,
	email_addresses   TEXT    NOT NULL DEFAULT '',
	email_from        TEXT    NOT NULL DEFAULT '',
	telegram_enabled  INTEGER NOT NULL DEFAULT 0,
	telegram_chat_id  TEXT    NOT NULL DEFAULT '',
	webhook_enabled   INTEGER NOT NULL DEFAULT 0,
	webhook_url       TEXT    NOT NULL DEFAULT '',
	auto_send_morning INTEGER NOT NULL DEFAULT 0,
	template_style    TEXT    NOT NULL DEFAULT 'formal',
	updated_at        TEXT    NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE communication_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	group_name    TEXT NOT NULL,
	channel       TEXT NOT NULL,
	status        TEXT NOT NULL,
	recipients    TEXT NOT NULL DEFAULT '',
	message       TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	sent_at       TEXT NOT NULL
);

CREATE INDEX idx_communication_log_group ON communication_log (group_name, sent_at);
`

// notification_runs records which group digests went out on which day,
// so a restarted scheduler does not send twice.
const migrationV3NotificationRuns = `
CREATE TABLE notification_runs (
	day        TEXT NOT NULL,
	group_name TEXT NOT NULL,
	sent_at    TEXT NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (day, group_name)
);
`
