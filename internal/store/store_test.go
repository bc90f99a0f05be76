package store

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDB creates a migrated in-memory database.
func testDB(t *testing.T) *DB {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	db, err := Open(DefaultConfig(":memory:"), logger)
	require.NoError(t, err, "open test database")

	_, err = db.Migrate(context.Background())
	require.NoError(t, err, "migrate test database")

	t.Cleanup(func() { _ = db.Close() })
	return db
}

// -----------------------------------------------------------------
// DB tests
// -----------------------------------------------------------------

func TestOpenAndHealth(t *testing.T) {
	db := testDB(t)
	assert.NoError(t, db.Health(context.Background()))
}

func TestMigrate_Idempotent(t *testing.T) {
	db := testDB(t)

	count, err := db.Migrate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count, "already applied migrations must be skipped")
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := t.TempDir() + "/nested/dir/birthdays.db"

	db, err := Open(DefaultConfig(path), nil)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

// -----------------------------------------------------------------
// People
// -----------------------------------------------------------------

func TestPersonLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	fixed := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	db.now = func() time.Time { return fixed }

	p := &Person{
		FirstName: "Anna",
		LastName:  "Schmidt",
		Birthday:  "15.03.1990",
		Phone:     "+49 170 1234567",
		Groups:    []string{"Familie", "Chor"},
	}
	require.NoError(t, db.CreatePerson(ctx, p))
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, fixed, p.CreatedAt)

	got, err := db.GetPerson(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Anna Schmidt", got.DisplayName())
	assert.Equal(t, []string{"Chor", "Familie"}, got.Groups, "groups come back sorted")

	got.Birthday = "not a date"
	got.Groups = []string{"Arbeit"}
	require.NoError(t, db.UpdatePerson(ctx, got))

	again, err := db.GetPerson(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "not a date", again.Birthday, "birthdays are stored verbatim")
	assert.Equal(t, []string{"Arbeit"}, again.Groups)

	require.NoError(t, db.DeletePerson(ctx, p.ID))
	_, err = db.GetPerson(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeletePerson(ctx, p.ID), ErrNotFound)
}

func TestCreatePerson_RequiresName(t *testing.T) {
	db := testDB(t)
	err := db.CreatePerson(context.Background(), &Person{Birthday: "01.01.2000"})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = db.CreateGroup(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestUpdatePerson_Missing(t *testing.T) {
	db := testDB(t)
	err := db.UpdatePerson(context.Background(), &Person{ID: "nope", FirstName: "X"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPeople_InsertionOrderAndGroupFilter(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	n, err := db.CreatePeople(ctx, []Person{
		{FirstName: "Zoe", Groups: []string{"Freunde"}},
		{FirstName: "Adam", Groups: []string{"Familie"}},
		{LastName: "Meier", Groups: []string{"Freunde", "Familie"}},
		{Notes: "no name, skipped"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	all, err := db.ListPeople(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Zoe", all[0].FirstName)
	assert.Equal(t, "Adam", all[1].FirstName)
	assert.Equal(t, "Meier", all[2].LastName)

	friends, err := db.ListPeopleByGroup(ctx, "Freunde")
	require.NoError(t, err)
	require.Len(t, friends, 2)
	assert.Equal(t, "Zoe", friends[0].FirstName)
	assert.Equal(t, []string{"Familie", "Freunde"}, friends[1].Groups)

	none, err := db.ListPeopleByGroup(ctx, "Unbekannt")
	require.NoError(t, err)
	assert.Empty(t, none)
}

// -----------------------------------------------------------------
// Groups
// -----------------------------------------------------------------

func TestGroups(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	require.NoError(t, db.SeedGroups(ctx, []string{"Familie", "Freunde"}))
	require.NoError(t, db.SeedGroups(ctx, []string{"Familie"}), "seeding twice is harmless")

	g, err := db.CreateGroup(ctx, "Verein")
	require.NoError(t, err)
	assert.NotZero(t, g.ID)

	_, err = db.CreateGroup(ctx, "Verein")
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = db.CreateGroup(ctx, "  ")
	assert.Error(t, err)

	require.NoError(t, db.CreatePerson(ctx, &Person{FirstName: "Eva", Groups: []string{"Verein"}}))

	groups, err := db.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, "Familie", groups[0].Name)
	assert.Equal(t, "Verein", groups[2].Name)
	assert.Equal(t, 1, groups[2].MemberCount)

	require.NoError(t, db.SaveChannelConfig(ctx, &ChannelConfig{GroupName: "Verein", WebhookEnabled: true}))
	require.NoError(t, db.DeleteGroup(ctx, g.ID))
	assert.ErrorIs(t, db.DeleteGroup(ctx, g.ID), ErrNotFound)

	people, err := db.ListPeople(ctx)
	require.NoError(t, err)
	require.Len(t, people, 1, "deleting a group keeps its members")
	assert.Empty(t, people[0].Groups)

	cfg, err := db.GetChannelConfig(ctx, "Verein")
	require.NoError(t, err)
	assert.False(t, cfg.WebhookEnabled, "channel settings go with the group")
}

// -----------------------------------------------------------------
// Channels & communication log
// -----------------------------------------------------------------

func TestChannelConfig(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	require.NoError(t, db.SeedGroups(ctx, []string{"Arbeit", "Familie"}))

	def, err := db.GetChannelConfig(ctx, "Familie")
	require.NoError(t, err)
	assert.Equal(t, DefaultChannelConfig("Familie"), *def)

	cfg := &ChannelConfig{
		GroupName:       "Familie",
		EmailEnabled:    true,
		EmailAddresses:  "papa@example.com, mama@example.com,",
		TelegramEnabled: true,
		TelegramChatID:  "@familie",
		AutoSendMorning: true,
		TemplateStyle:   "family",
	}
	require.NoError(t, db.SaveChannelConfig(ctx, cfg))

	cfg.TelegramEnabled = false
	require.NoError(t, db.SaveChannelConfig(ctx, cfg), "second save updates in place")

	got, err := db.GetChannelConfig(ctx, "Familie")
	require.NoError(t, err)
	assert.True(t, got.EmailEnabled)
	assert.False(t, got.TelegramEnabled)
	assert.Equal(t, "group", got.WhatsAppType)
	assert.Equal(t, []string{"papa@example.com", "mama@example.com"}, got.EmailRecipients())

	all, err := db.ListChannelConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Arbeit", all[0].GroupName)
	assert.Equal(t, "formal", all[0].TemplateStyle)
	assert.False(t, all[0].AutoSendMorning)
	assert.Equal(t, "Familie", all[1].GroupName)
	assert.True(t, all[1].AutoSendMorning)
	assert.Equal(t, "family", all[1].TemplateStyle)
}

func TestCommunicationLog(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	for i, g := range []string{"Familie", "Arbeit", "Familie"} {
		db.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		require.NoError(t, db.LogCommunication(ctx, &CommunicationEntry{
			GroupName: g, Channel: "email", Status: "sent", Message: g,
		}))
	}

	all, err := db.ListCommunicationLog(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, base.Add(2*time.Minute), all[0].SentAt, "newest first")

	fam, err := db.ListCommunicationLog(ctx, "Familie", 1)
	require.NoError(t, err)
	require.Len(t, fam, 1)
	assert.Equal(t, "Familie", fam[0].GroupName)
}

func TestMarkNotified(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	first, err := db.MarkNotified(ctx, "2024-03-15", "Familie")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := db.MarkNotified(ctx, "2024-03-15", "Familie")
	require.NoError(t, err)
	assert.False(t, second)

	other, err := db.MarkNotified(ctx, "2024-03-15", "Arbeit")
	require.NoError(t, err)
	assert.True(t, other)
}
