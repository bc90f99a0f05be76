package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "Birthday-Manager/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName        = "Birthday Manager"
	AppID          = "com.github.tartampluch.birthday-manager"
	KeyringService = "com.github.tartampluch.birthday-manager"
	EnvPrefix      = "BIRTHDAY_"
	EnvConfigFile  = "BIRTHDAY_CONFIG"
	DotEnvFile     = ".env"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Commands, Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	CmdRoot     = "birthday-manager"
	CmdServe    = "serve"
	CmdUpcoming = "upcoming"
	CmdImport   = "import"
	CmdExport   = "export"
	CmdNotify   = "notify"
	CmdVersion  = "version"
	CmdSecret   = "secret"

	// Secret kinds accepted by the secret command.
	SecretKindSMTP     = "smtp"
	SecretKindWeb      = "web"
	SecretKindTelegram = "telegram"

	FlagDebug    = "debug"
	FlagConfig   = "config"
	FlagDays     = "days"
	FlagFormat   = "format"
	FlagOutput   = "output"
	FlagURL      = "url"
	FlagUser     = "user"
	FlagGroup    = "group"
	FlagTest     = "test"
	FlagToday    = "today"
	FlagLanguage = "lang"

	FlagDescDebug    = "Enable debug logging"
	FlagDescConfig   = "Path to a YAML configuration file"
	FlagDescDays     = "Only show anniversaries within this many days"
	FlagDescFormat   = "Exchange format: csv, vcard or ics"
	FlagDescOutput   = "Write to this file instead of stdout"
	FlagDescURL      = "Fetch a remote vCard or CSV export instead of reading a file"
	FlagDescUser     = "HTTP Basic Auth user for --url (password read from keyring)"
	FlagDescGroup    = "Restrict the command to one group"
	FlagDescTest     = "Send a test message instead of today's digest"
	FlagDescToday    = "Override today's date (DD.MM.YYYY), mainly for previews"
	FlagDescLanguage = "Message language (ISO 639-1)"

	CmdDescRoot     = "Keep track of birthdays and notify groups about them"
	CmdDescServe    = "Run the HTTP API, the calendar feed and the notification scheduler"
	CmdDescUpcoming = "List contacts ranked by their next birthday"
	CmdDescImport   = "Import contacts from a CSV or vCard file"
	CmdDescExport   = "Export contacts as CSV, vCard or iCalendar"
	CmdDescNotify   = "Send today's birthday digest to the configured groups"
	CmdDescVersion  = "Print version information"
	CmdDescSecret   = "Store a secret read from stdin in the OS keyring (empty input deletes it)"

	MsgVersionOutput = "%s version %s (%s, built %s) %s/%s\n"
	MsgImportReport  = "%d of %d contacts imported\n"
	MsgNotifyResult  = "%s/%s: %s %s\n"
	MsgNothingToSend = "No birthdays today for %s\n"
	MsgSecretStored  = "Stored %s secret for %s\n"
	MsgSecretDeleted = "Deleted %s secret for %s\n"

	// LogFileName is written below the user cache directory by serve.
	LogFileName = "birthday-manager.log"
)

// -----------------------------------------------------------------------------
// Exchange Formats
// -----------------------------------------------------------------------------

const (
	FormatCSV   = "csv"
	FormatVCard = "vcard"
	FormatICS   = "ics"

	// CSV layout as produced by the original spreadsheet template.
	CSVDelimiter   = ';'
	CSVGroupSep    = ","
	CSVBOM         = "\uFEFF"
	CSVColFirst    = "Vorname"
	CSVColLast     = "Nachname"
	CSVColBirthday = "Geburtstag"
	CSVColGroups   = "Gruppen"
	CSVColEmail    = "E-Mail"
	CSVColPhone    = "Telefon"
	CSVColNotes    = "Notizen"

	MimeCSV   = "text/csv; charset=utf-8"
	MimeVCard = "text/vcard; charset=utf-8"
	MimeJSON  = "application/json"

	// Bare media types recognised on remote downloads.
	MediaCSV    = "text/csv"
	MediaVCard  = "text/vcard"
	MediaXVCard = "text/x-vcard"
	VCardBegin  = "BEGIN:VCARD"

	FileNameCSV    = "contacts.csv"
	FileNameVCard  = "contacts.vcf"
	FileNameSample = "contacts-sample.csv"
)

// CSVHeaders lists the CSV columns in export order.
var CSVHeaders = []string{
	CSVColFirst, CSVColLast, CSVColBirthday, CSVColGroups, CSVColEmail, CSVColPhone, CSVColNotes,
}

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	DefaultAddr            = "127.0.0.1:3000"
	DefaultDatabasePath    = "./data/birthday_manager.db"
	DefaultLanguage        = "de"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultUpcomingDays    = 30
	DefaultMorningHour     = 8
	DefaultCheckInterval   = 15 * time.Minute
	DefaultFeedRefresh     = 1 * time.Hour
	DefaultSMTPPort        = 587
	DefaultLogLimit        = 100
	MaxLogLimit            = 1000
	DefaultTemplateStyle   = "formal"
	DefaultSubject         = "Birthday Manager"
	DefaultWhatsAppType    = "group"
	UIDSalt                = "birthday-manager-v1-" // Salt for deterministic UID generation
	WhatsAppBaseURL        = "https://wa.me/"
	TelegramAPIBase        = "https://api.telegram.org"
	WebhookSource          = "birthday-manager"
	DefaultReminderTrigger = ""
)

// DefaultGroups are seeded into an empty database.
var DefaultGroups = []string{"Familie", "Freunde", "Arbeit", "Verein", "Nachbarn"}

// SupportedLanguages defines the list of available message languages (ISO 639-1).
var SupportedLanguages = []string{"de", "en"}

// Template styles for group notifications.
const (
	StyleFormal   = "formal"
	StyleCasual   = "casual"
	StyleFamily   = "family"
	StyleBusiness = "business"
)

// Notification channels and delivery states.
const (
	ChannelWhatsApp = "whatsapp"
	ChannelEmail    = "email"
	ChannelTelegram = "telegram"
	ChannelWebhook  = "webhook"

	StatusSent   = "sent"
	StatusFailed = "failed"
	StatusLink   = "link" // WhatsApp without bridge: a link was produced, nothing was sent
)

// Keyring entry prefixes.
const (
	SecretTelegramPrefix = "telegram:"
	SecretSMTPPrefix     = "smtp:"
	SecretWebPrefix      = "carddav:"
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyClassToday    = "class_today"
	TKeyClassTomorrow = "class_tomorrow"
	TKeyClassDays     = "class_days" // Requires Days
	TKeyClassUnknown  = "class_unknown"

	TKeyEvtSummaryAge   = "event_summary_age"   // Requires Name, Age
	TKeyEvtSummaryBirth = "event_summary_birth" // Requires Name

	TKeyDigestLine      = "digest_line"       // Requires Name, Age
	TKeyDigestLineNoAge = "digest_line_noage" // Requires Name
	TKeyDigestSubject   = "digest_subject"    // Requires Group
	TKeyTestMessage     = "test_message"      // Requires Group, Time

	// Group templates, suffixed with the style name (e.g. "tpl_group_formal").
	TKeyTplGroupPrefix      = "tpl_group_"      // Requires Date, Group, Birthdays
	TKeyTplIndividualPrefix = "tpl_individual_" // Requires Name, Age

	TKeyWhatsAppPersonal = "whatsapp_personal" // Requires Name, Age

	TKeyColDays  = "col_days"
	TKeyColName  = "col_name"
	TKeyColDate  = "col_date"
	TKeyColAge   = "col_age"
	TKeyColState = "col_state"
)

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	// iCal Properties
	ICalVersion   = "2.0"
	ICalProdid    = "-//Birthday Manager//Feed//EN"
	ICalCalName   = "Birthdays"
	ICalMethod    = "PUBLISH"
	ICalScale     = "GREGORIAN"
	ICalComponent = "VALARM"
	ICalAction    = "DISPLAY"
	ICalDomain    = "birthday-manager"

	// iCal/vCard Fields
	PropUID         = "UID"
	PropSummary     = "SUMMARY"
	PropDTStart     = "DTSTART"
	PropDTStamp     = "DTSTAMP"
	PropRefresh     = "REFRESH-INTERVAL"
	PropAction      = "ACTION"
	PropDescription = "DESCRIPTION"
	PropTrigger     = "TRIGGER"
	PropVersion     = "VERSION"
	PropProdid      = "PRODID"
	PropXWRCalName  = "X-WR-CALNAME"
	PropCalScale    = "CALSCALE"
	PropMethod      = "METHOD"
	PropCategories  = "CATEGORIES"
)

// -----------------------------------------------------------------------------
// Data Formats, Limits & File Extensions
// -----------------------------------------------------------------------------

const (
	// Canonical anniversary layout (DD.MM.YYYY).
	DateFormatCanonical = "02.01.2006"

	// Date layouts accepted from vCard BDAY fields.
	DateFormatFullDash  = "2006-01-02"
	DateFormatFullBasic = "20060102"
	DateFormatRFC3339   = time.RFC3339
	DateFormatFullT     = "2006-01-02T15:04:05Z"
	DateFormatDisplayTS = "02.01.2006 15:04"

	// Limits
	MinPort = 1
	MaxPort = 65535

	// UID Generation
	UIDHashLength   = 16
	FormatHashInput = "%s|%s|%s"
	FormatUID       = "%s-%d@%s"

	// File Extensions
	ExtCSV   = ".csv"
	ExtVCF   = ".vcf"
	ExtVCard = ".vcard"
	ExtICS   = ".ics"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	DBPingTimeout       = 5 * time.Second
	RetryAfterSeconds   = "10"
	MaxHTTPResponseSize = 64 * 1024 * 1024 // 64MB
	MaxUploadSize       = 8 * 1024 * 1024  // 8MB
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	CORSMaxAge          = "3600"
)

// MetricLabelVersion is a constant label carrying the build version on every series.
const MetricLabelVersion = "version"

// HTTP routes.
const (
	RouteHealth        = "/health"
	RouteMetrics       = "/metrics"
	RouteCalendar      = "/calendar.ics"
	RouteAPI           = "/api"
	RoutePeople        = "/people"
	RoutePeopleID      = "/people/{id}"
	RoutePeopleGroup   = "/people/group/{group}"
	RouteGroups        = "/groups"
	RouteGroupID       = "/groups/{id}"
	RouteUpcoming      = "/birthdays/upcoming"
	RouteToday         = "/birthdays/today"
	RouteExportCSV     = "/export/csv"
	RouteImportCSV     = "/import/csv"
	RouteSampleCSV     = "/import/csv/sample"
	RouteExportVCard   = "/export/vcard"
	RouteImportVCard   = "/import/vcard"
	RouteCommGroups    = "/communication/groups"
	RouteCommGroup     = "/communication/group/{group}"
	RouteCommSend      = "/communication/send/{group}"
	RouteCommTest      = "/communication/test/{group}"
	RouteCommLog       = "/communication/log"
	RouteWhatsAppToday = "/whatsapp/today"
	RouteStatistics    = "/statistics"

	ParamID    = "id"
	ParamGroup = "group"
	QueryDays  = "days"
	QueryLimit = "limit"
	QueryGroup = "group"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType        = "Content-Type"
	HeaderContentDisposition = "Content-Disposition"
	HeaderCacheControl       = "Cache-Control"
	HeaderETag               = "ETag"
	HeaderLastModified       = "Last-Modified"
	HeaderRetryAfter         = "Retry-After"
	HeaderAllow              = "Allow"
	HeaderXContentType       = "X-Content-Type-Options"
	HeaderUserAgent          = "User-Agent"
	HeaderAccept             = "Accept"
	HeaderIfNoneMatch        = "If-None-Match"
	HeaderIfModifiedSince    = "If-Modified-Since"
	HeaderRequestID          = "X-Request-ID"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"
	AcceptContacts      = "text/vcard, text/csv;q=0.9, */*;q=0.1"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
	// FormatAttachment expects a file name.
	FormatAttachment = `attachment; filename="%s"`
)

// API error codes carried in the JSON envelope.
const (
	CodeBadRequest = "BAD_REQUEST"
	CodeNotFound   = "NOT_FOUND"
	CodeConflict   = "CONFLICT"
	CodeInternal   = "INTERNAL_ERROR"
	CodeUnhealthy  = "HEALTH_CHECK_FAILED"
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrDateFormat      = "invalid anniversary format, expected DD.MM.YYYY"
	ErrDateRange       = "anniversary is not a calendar date"
	ErrServerStartup   = "server startup failed"
	ErrServerShutdown  = "server shutdown failed"
	ErrAddrRequired    = "listen address is required"
	ErrInvalidURL      = "invalid URL structure"
	ErrProtocol        = "unsupported protocol scheme (http/https only)"
	ErrVCardParse      = "failed to parse vCard stream"
	ErrVCardEncode     = "failed to encode vCard data"
	ErrICalEncode      = "failed to encode iCalendar data"
	ErrCSVParse        = "failed to parse CSV data"
	ErrCSVEncode       = "failed to encode CSV data"
	ErrCSVEmpty        = "CSV file is empty or has no data rows"
	ErrCSVDelimiter    = "wrong delimiter: use semicolon (;) instead of comma (,)"
	ErrCSVNameColumn   = "at least one of the name columns must be present"
	ErrCSVHeaderOnly   = "CSV file only contains a header row"
	ErrCSVTooLarge     = "CSV file exceeds the upload limit"
	ErrCSVMissingCols  = "missing columns"
	ErrFormatUnsupport = "unsupported exchange format"
	ErrDBOpen          = "open database"
	ErrDBPing          = "ping database"
	ErrDBMigrate       = "migrate database"
	ErrDBQuery         = "database query failed"
	ErrLoadConfig      = "failed to load configuration"
	ErrInvalidConfig   = "invalid configuration"
	ErrLogFile         = "failed to open log file"
	ErrCacheDir        = "failed to resolve user cache directory"
	ErrCreateDir       = "failed to create directory"
	ErrFeedBuild       = "calendar feed build failed"
	ErrImportSource    = "give exactly one of a file argument or --url"
	ErrNotifyFailed    = "some notifications failed"
	ErrAppFailed       = "application failed unexpectedly"
	ErrWriteResp       = "failed to write response body"
	ErrLocalesAccess   = "failed to access embedded locales"
	ErrLocaleLoad      = "failed to load locale file"
	ErrChannelConfig   = "channel is enabled but not configured"
	ErrSMTPNotConfig   = "email transport not configured"
	ErrTelegramToken   = "telegram bot token not configured"
	ErrTelegramAPI     = "telegram API error"
	ErrWebhookStatus   = "webhook returned unexpected status"
	ErrBridgeStatus    = "whatsapp bridge returned unexpected status"
	ErrNoRecipients    = "no recipients configured"
	ErrNameRequired    = "first or last name is required"
	ErrGroupRequired   = "group name is required"
	ErrSecretMissing   = "secret not found in keyring"
	ErrTodayOverride   = "invalid --today value"
	ErrSchedulerTick   = "scheduler tick failed"
	ErrSecretStore     = "keyring operation failed"
	ErrFetchRequest    = "failed to create HTTP request"
	ErrFetchNetwork    = "network error while fetching remote data"
	ErrFetchStatus     = "remote server returned error status"
	ErrFetchTooLarge   = "remote export exceeds the download limit"
	ErrSecretKind      = "secret kind must be one of: smtp, web, telegram"
)

// -----------------------------------------------------------------------------
// Fallbacks & Defaults
// -----------------------------------------------------------------------------

const (
	FallbackSummaryAge   = "Birthday: %s (%d)"
	FallbackSummaryBirth = "Birthday: %s (birth)"
	FallbackName         = "Unknown"

	// StubVCalendar is the minimal valid iCalendar object used when no events are found.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"

	HTTPMsgInitializing = "Calendar initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
	HTTPMsgInternalErr  = "Internal server error"
	HTTPMsgNotFound     = "Resource not found"
	HTTPMsgInvalidBody  = "Invalid request body"
	HTTPMsgInvalidDays  = "days must be a non-negative integer"
	HTTPMsgInvalidLimit = "limit must be a positive integer"
	HTTPMsgDuplicate    = "Resource already exists"
	HTTPMsgUnhealthy    = "Database unhealthy"
	HTTPMsgNoMessage    = "message is required"
	HTTPMsgInvalidID    = "id must be a positive integer"
	HTTPMsgTooLarge     = "request body too large"

	MsgAppStarting    = "Starting application"
	MsgAppStop        = "Application stopped gracefully"
	MsgServerListen   = "HTTP server listening"
	MsgServerStop     = "Shutting down HTTP server..."
	MsgCacheUpdated   = "Calendar cache updated"
	MsgFeedRebuilt    = "Calendar feed rebuilt"
	MsgFeedSuccess    = "Calendar generation successful"
	MsgSkippedCard    = "Skipping malformed vCard"
	MsgSkippedDate    = "Skipping undatable contact"
	MsgLocaleSkip     = "Skipping non-locale file"
	MsgLocaleBadName  = "Skipping malformed locale filename"
	MsgLocaleLoaded   = "Locale loaded successfully"
	MsgTransMissing   = "Missing translation key"
	MsgDBConnected    = "database connected"
	MsgDBClosing      = "closing database connection"
	MsgMigrations     = "running database migrations"
	MsgMigrationApply = "applying migration"
	MsgMigrationsDone = "migrations complete"
	MsgImportDone     = "Import finished"
	MsgExportDone     = "Export finished"
	MsgHTTPRequest    = "http request"
	MsgPanic          = "panic recovered"
	MsgNotifySent     = "Notification attempt finished"
	MsgNotifySkip     = "Group already notified today"
	MsgWorkerStart    = "Notification scheduler started"
	MsgWorkerStop     = "Scheduler stopping due to context cancellation"
	MsgSchedulerTick  = "Scheduler tick finished"
	MsgBdayToday      = "Birthday found today"
	MsgSecretMissing  = "Secret lookup failed (might be empty)"
	MsgCSVSkipRow     = "Skipping CSV row without name"
	MsgLogWarning     = "Warning: %s at %s: %v\n"
	MsgFetchStart     = "Fetching remote contacts"
	MsgFetchBadStatus = "Remote server returned non-200 status"
	MsgFetchDone      = "Remote contacts downloaded"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyAddr      = "addr"
	LogKeyPath      = "path"
	LogKeyMethod    = "method"
	LogKeyRemote    = "remote_addr"
	LogKeyDuration  = "duration_ms"
	LogKeyRequestID = "request_id"
	LogKeyInterval  = "interval"
	LogKeyValue     = "value"
	LogKeyCount     = "count"
	LogKeyName      = "name"
	LogKeyGroup     = "group"
	LogKeyChannel   = "channel"
	LogKeyDay       = "day"
	LogKeyVersion   = "version"
	LogKeyApplied   = "applied"
	LogKeyTotal     = "total"
	LogKeyChanged   = "changed"
	LogKeyFound     = "dated"
	LogKeyToday     = "today"
	LogKeyStats     = "stats"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyFormat    = "format"
	LogKeyRow       = "row"
	LogKeySkipped   = "skipped"
	LogKeyState     = "state"
	LogKeyOutcome   = "outcome"

	// Startup Info Keys
	LogKeyBuild = "build"
	LogKeyApp   = "app"
	LogKeyGoVer = "go_version"
	LogKeyEnv   = "env"
	LogKeyOS    = "os"
	LogKeyArch  = "arch"
	LogKeyPID   = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompMain      = "main"
	CompStore     = "store"
	CompServer    = "server"
	CompFeed      = "feed"
	CompFetcher   = "fetcher"
	CompExchange  = "exchange"
	CompNotify    = "notify"
	CompScheduler = "scheduler"
	CompI18n      = "i18n"
	CompSecrets   = "credentials"
	CompApp       = "app"
)
