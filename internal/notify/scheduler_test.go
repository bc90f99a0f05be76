package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/birthday-manager/internal/engine"
	"github.com/tartampluch/birthday-manager/internal/store"
	"go.uber.org/goleak"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// fakeAgenda keeps the notification runs in memory like the store's table.
type fakeAgenda struct {
	mu       sync.Mutex
	configs  []store.ChannelConfig
	contacts []engine.Contact
	runs     map[string]bool
	days     []engine.Date
	markErr  error
}

func (a *fakeAgenda) TodayByGroup(_ context.Context, today engine.Date) (map[string][]engine.Ranked, error) {
	a.mu.Lock()
	a.days = append(a.days, today)
	a.mu.Unlock()
	return engine.TodayByGroup(engine.RankByProximity(a.contacts, today)), nil
}

func (a *fakeAgenda) ListChannelConfigs(context.Context) ([]store.ChannelConfig, error) {
	return a.configs, nil
}

func (a *fakeAgenda) MarkNotified(_ context.Context, day, group string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.markErr != nil {
		return false, a.markErr
	}
	if a.runs == nil {
		a.runs = map[string]bool{}
	}
	key := day + "|" + group
	if a.runs[key] {
		return false, nil
	}
	a.runs[key] = true
	return true, nil
}

type sentMessage struct {
	group, subject, body string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (r *recordingSender) Send(_ context.Context, group, subject, body string) ([]Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMessage{group, subject, body})
	return nil, nil
}

func newScheduler(t *testing.T, now time.Time, agenda *fakeAgenda, sender Sender) *Scheduler {
	return &Scheduler{
		Clock:       fixedClock{now},
		Agenda:      agenda,
		Sender:      sender,
		Composer:    newComposer(t, "en"),
		Interval:    time.Hour,
		MorningHour: 8,
	}
}

func testAgenda() *fakeAgenda {
	return &fakeAgenda{
		configs: []store.ChannelConfig{
			{GroupName: "Arbeit", AutoSendMorning: false},
			{GroupName: "Familie", AutoSendMorning: true, TemplateStyle: "family"},
			{GroupName: "Verein", AutoSendMorning: true},
		},
		contacts: []engine.Contact{
			{DisplayName: "Anna", Anniversary: "15.03.1990", Groups: []string{"Familie", "Arbeit"}},
			{DisplayName: "Bob", Anniversary: "16.03.1990", Groups: []string{"Verein"}},
			{DisplayName: "Lost", Anniversary: "", Groups: []string{"Familie"}},
		},
	}
}

func TestScheduler_RunOnce(t *testing.T) {
	morning := time.Date(2024, 3, 15, 9, 0, 0, 0, time.Local)

	t.Run("before the morning hour nothing happens", func(t *testing.T) {
		agenda := testAgenda()
		sender := &recordingSender{}
		s := newScheduler(t, morning.Add(-2*time.Hour), agenda, sender)

		outcome, err := s.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, OutcomeEarly, outcome)
		assert.Empty(t, sender.sent)
		assert.Empty(t, agenda.days)
	})

	t.Run("only auto groups with celebrants are notified, once per day", func(t *testing.T) {
		agenda := testAgenda()
		sender := &recordingSender{}
		s := newScheduler(t, morning, agenda, sender)

		outcome, err := s.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, OutcomeSent, outcome)

		require.Len(t, sender.sent, 1)
		assert.Equal(t, "Familie", sender.sent[0].group)
		assert.Contains(t, sender.sent[0].subject, "Familie")
		assert.Contains(t, sender.sent[0].body, "Anna turns 34")
		assert.NotContains(t, sender.sent[0].body, "Lost")

		outcome, err = s.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, OutcomeIdle, outcome)
		assert.Len(t, sender.sent, 1, "second run on the same day is deduplicated")
		assert.Equal(t, map[string]bool{"2024-03-15|Familie": true}, agenda.runs)
	})

	t.Run("next day is sent again", func(t *testing.T) {
		agenda := testAgenda()
		sender := &recordingSender{}
		_, err := newScheduler(t, morning, agenda, sender).RunOnce(context.Background())
		require.NoError(t, err)
		_, err = newScheduler(t, morning.AddDate(0, 0, 1), agenda, sender).RunOnce(context.Background())
		require.NoError(t, err)

		require.Len(t, sender.sent, 2)
		assert.Equal(t, "Verein", sender.sent[1].group)
		assert.Equal(t, []engine.Date{
			{Year: 2024, Month: time.March, Day: 15},
			{Year: 2024, Month: time.March, Day: 16},
		}, agenda.days)
	})

	t.Run("mark failure is reported", func(t *testing.T) {
		agenda := testAgenda()
		agenda.markErr = errors.New("locked")
		sender := &recordingSender{}

		outcome, err := newScheduler(t, morning, agenda, sender).RunOnce(context.Background())
		assert.Equal(t, OutcomeError, outcome)
		assert.ErrorContains(t, err, "locked")
		assert.Empty(t, sender.sent)
	})
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	agenda := testAgenda()
	sender := &recordingSender{}
	s := newScheduler(t, time.Date(2024, 3, 15, 9, 0, 0, 0, time.Local), agenda, sender)
	s.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		agenda.mu.Lock()
		defer agenda.mu.Unlock()
		return len(agenda.days) >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Len(t, sender.sent, 1, "ticks on the same day never resend")
}
