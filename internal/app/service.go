// Package app joins the store, the anniversary engine and the exchange
// formats into the operations exposed by the CLI and the HTTP API.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/tartampluch/birthday-manager/internal/config"
	"github.com/tartampluch/birthday-manager/internal/engine"
	"github.com/tartampluch/birthday-manager/internal/exchange"
	"github.com/tartampluch/birthday-manager/internal/feed"
	"github.com/tartampluch/birthday-manager/internal/metrics"
	"github.com/tartampluch/birthday-manager/internal/store"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ErrInvalidImport is returned when a CSV file fails validation.
var ErrInvalidImport = errors.New(config.ErrCSVParse)

// Service is safe for concurrent use.
type Service struct {
	db      *store.DB
	clock   engine.Clock
	metrics *metrics.Manager
	lang    language.Tag
}

// New builds a Service. lang drives name collation.
func New(db *store.DB, clock engine.Clock, m *metrics.Manager, lang language.Tag) *Service {
	if clock == nil {
		clock = engine.RealClock{}
	}
	return &Service{db: db, clock: clock, metrics: m, lang: lang}
}

// Store exposes the underlying store for plain CRUD.
func (s *Service) Store() *store.DB {
	return s.db
}

// Today reads the clock. Callers read it once per request and pass it down.
func (s *Service) Today() engine.Date {
	return engine.Today(s.clock)
}

// Now is the clock's instant, used for DTSTAMP and message timestamps.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

// ToContact projects a stored person onto the engine's view.
func ToContact(p store.Person) engine.Contact {
	return engine.Contact{
		ID:          p.ID,
		DisplayName: p.DisplayName(),
		Anniversary: p.Birthday,
		Groups:      p.Groups,
	}
}

// Contacts returns every person as an engine contact, in store order.
func (s *Service) Contacts(ctx context.Context) ([]engine.Contact, error) {
	people, err := s.db.ListPeople(ctx)
	if err != nil {
		return nil, err
	}
	contacts := make([]engine.Contact, len(people))
	for i, p := range people {
		contacts[i] = ToContact(p)
	}
	return contacts, nil
}

// People lists people (optionally one group) ordered by last then first name
// using the collation rules of the service language.
func (s *Service) People(ctx context.Context, group string) ([]store.Person, error) {
	var people []store.Person
	var err error
	if group == "" {
		people, err = s.db.ListPeople(ctx)
	} else {
		people, err = s.db.ListPeopleByGroup(ctx, group)
	}
	if err != nil {
		return nil, err
	}

	// collate.Collator keeps iteration state and must not be shared.
	col := collate.New(s.lang, collate.IgnoreCase, collate.IgnoreDiacritics)
	slices.SortStableFunc(people, func(a, b store.Person) int {
		if c := col.CompareString(a.LastName, b.LastName); c != 0 {
			return c
		}
		return col.CompareString(a.FirstName, b.FirstName)
	})
	return people, nil
}

// Upcoming is one ranked person as served to clients.
type Upcoming struct {
	Person     store.Person     `json:"person"`
	Next       string           `json:"next_occurrence,omitempty"`
	DaysUntil  *int             `json:"days_until"`
	CurrentAge *int             `json:"current_age"`
	TurningAge *int             `json:"turning_age"`
	Class      engine.Proximity `json:"class"`
}

func newUpcoming(p store.Person, r engine.ProximityResult) Upcoming {
	u := Upcoming{Person: p, Class: r.Class}
	if r.Dated {
		u.Next = r.Next.String()
		u.DaysUntil = &r.DaysUntil
		u.CurrentAge = &r.CurrentAge
		u.TurningAge = &r.TurningAge
	}
	return u
}

// Rank evaluates every person against today, nearest first, undatable last.
func (s *Service) Rank(ctx context.Context, today engine.Date) ([]Upcoming, error) {
	return s.rank(ctx, today, func(engine.ProximityResult) bool { return true })
}

// UpcomingWithin returns people whose next anniversary is at most days away.
func (s *Service) UpcomingWithin(ctx context.Context, today engine.Date, days int) ([]Upcoming, error) {
	return s.rank(ctx, today, func(r engine.ProximityResult) bool {
		return r.Dated && r.DaysUntil <= days
	})
}

// BirthdaysToday returns the people celebrating today.
func (s *Service) BirthdaysToday(ctx context.Context, today engine.Date) ([]Upcoming, error) {
	return s.rank(ctx, today, func(r engine.ProximityResult) bool {
		return r.Class == engine.ProximityToday
	})
}

func (s *Service) rank(ctx context.Context, today engine.Date, keep func(engine.ProximityResult) bool) ([]Upcoming, error) {
	people, err := s.db.ListPeople(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]store.Person, len(people))
	contacts := make([]engine.Contact, len(people))
	for i, p := range people {
		byID[p.ID] = p
		contacts[i] = ToContact(p)
	}

	out := []Upcoming{}
	for _, r := range engine.RankByProximity(contacts, today) {
		if keep(r.Result) {
			out = append(out, newUpcoming(byID[r.Contact.ID], r.Result))
		}
	}
	return out, nil
}

// TodayByGroup returns today's celebrants keyed by group.
func (s *Service) TodayByGroup(ctx context.Context, today engine.Date) (map[string][]engine.Ranked, error) {
	contacts, err := s.Contacts(ctx)
	if err != nil {
		return nil, err
	}
	return engine.TodayByGroup(engine.RankByProximity(contacts, today)), nil
}

// ListChannelConfigs delegates to the store.
func (s *Service) ListChannelConfigs(ctx context.Context) ([]store.ChannelConfig, error) {
	return s.db.ListChannelConfigs(ctx)
}

// MarkNotified delegates to the store.
func (s *Service) MarkNotified(ctx context.Context, day, group string) (bool, error) {
	return s.db.MarkNotified(ctx, day, group)
}

// Statistics summarizes the address book.
type Statistics struct {
	TotalPeople        int `json:"total_people"`
	TotalGroups        int `json:"total_groups"`
	BirthdaysThisMonth int `json:"birthdays_this_month"`
	MultiGroupPeople   int `json:"multi_group_people"`
	Undated            int `json:"undated"`
}

// Statistics counts people, groups and this month's anniversaries.
func (s *Service) Statistics(ctx context.Context, today engine.Date) (Statistics, error) {
	contacts, err := s.Contacts(ctx)
	if err != nil {
		return Statistics{}, err
	}
	groups, err := s.db.ListGroups(ctx)
	if err != nil {
		return Statistics{}, err
	}

	st := Statistics{TotalPeople: len(contacts), TotalGroups: len(groups)}
	byMonth := engine.GroupByMonth(contacts)
	st.BirthdaysThisMonth = len(byMonth[today.Month])

	dated := 0
	for _, list := range byMonth {
		dated += len(list)
	}
	st.Undated = len(contacts) - dated

	for _, c := range contacts {
		if len(c.Groups) > 1 {
			st.MultiGroupPeople++
		}
	}
	return st, nil
}

// -----------------------------------------------------------------------------
// Import / Export
// -----------------------------------------------------------------------------

// ImportReport describes one import.
type ImportReport struct {
	Format     string                     `json:"format"`
	Read       int                        `json:"read"`
	Stored     int                        `json:"imported"`
	Validation *exchange.ValidationReport `json:"validation,omitempty"`
}

// ImportCSV validates and stores a CSV export. Nothing is stored when
// validation reports an error, the file has no data rows or it exceeds
// config.MaxUploadSize.
func (s *Service) ImportCSV(ctx context.Context, data []byte) (ImportReport, error) {
	rep := ImportReport{Format: config.FormatCSV}
	if len(data) > config.MaxUploadSize {
		return rep, fmt.Errorf("%w: %d bytes", exchange.ErrCSVTooLarge, len(data))
	}

	v := exchange.ValidateCSV(data)
	rep.Validation = &v
	if !v.Valid {
		return rep, fmt.Errorf("%w: %s", ErrInvalidImport, strings.Join(v.Errors, "; "))
	}

	people, err := exchange.ReadCSV(bytes.NewReader(data))
	if errors.Is(err, exchange.ErrNoRows) {
		return rep, fmt.Errorf("%w: %w", ErrInvalidImport, err)
	}
	if err != nil {
		return rep, err
	}
	return s.store(ctx, rep, people)
}

// ImportVCards stores every card of r.
func (s *Service) ImportVCards(ctx context.Context, r io.Reader) (ImportReport, error) {
	rep := ImportReport{Format: config.FormatVCard}
	people, err := exchange.ReadVCards(ctx, r)
	if err != nil {
		return rep, err
	}
	return s.store(ctx, rep, people)
}

// ImportRemote downloads an export and imports it as CSV or vCard,
// whichever the fetcher detected.
func (s *Service) ImportRemote(ctx context.Context, f exchange.Fetcher, src exchange.Source) (ImportReport, error) {
	dl, err := f.Fetch(ctx, src)
	if err != nil {
		return ImportReport{}, err
	}
	if dl.Format == config.FormatCSV {
		return s.ImportCSV(ctx, dl.Data)
	}
	return s.ImportVCards(ctx, bytes.NewReader(dl.Data))
}

func (s *Service) store(ctx context.Context, rep ImportReport, people []store.Person) (ImportReport, error) {
	rep.Read = len(people)
	n, err := s.db.CreatePeople(ctx, people)
	if err != nil {
		return rep, err
	}
	rep.Stored = n
	s.metrics.RecordImport(rep.Format, n)

	slog.InfoContext(ctx, config.MsgImportDone,
		config.LogKeyComponent, config.CompApp,
		config.LogKeyFormat, rep.Format,
		config.LogKeyCount, n,
	)
	return rep, nil
}

// Export writes every person in format (csv or vcard).
func (s *Service) Export(ctx context.Context, w io.Writer, format string) error {
	people, err := s.db.ListPeople(ctx)
	if err != nil {
		return err
	}

	switch format {
	case config.FormatCSV:
		err = exchange.WriteCSV(w, people)
	case config.FormatVCard:
		err = exchange.WriteVCards(w, people)
	default:
		return fmt.Errorf("%s: %q", config.ErrFormatUnsupport, format)
	}
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, config.MsgExportDone,
		config.LogKeyComponent, config.CompApp,
		config.LogKeyFormat, format,
		config.LogKeyCount, len(people),
	)
	return nil
}

// BuildFeed renders the calendar of every stored contact as of today.
func (s *Service) BuildFeed(ctx context.Context, gen *feed.Generator) ([]byte, feed.Stats, error) {
	start := time.Now()
	contacts, err := s.Contacts(ctx)
	if err != nil {
		return nil, feed.Stats{}, err
	}

	now := s.clock.Now()
	data, stats, err := gen.Generate(ctx, contacts, engine.DateOf(now), now)
	if err != nil {
		return nil, stats, err
	}
	s.metrics.RecordFeedRebuild(stats.Events, stats.Today, time.Since(start))
	return data, stats, nil
}
