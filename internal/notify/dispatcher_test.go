package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/birthday-manager/internal/config"
	"github.com/tartampluch/birthday-manager/internal/metrics"
	"github.com/tartampluch/birthday-manager/internal/store"
)

// MockLedger simulates the store using testify/mock.
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) GetChannelConfig(ctx context.Context, group string) (*store.ChannelConfig, error) {
	args := m.Called(ctx, group)
	if cfg, ok := args.Get(0).(*store.ChannelConfig); ok {
		return cfg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedger) LogCommunication(ctx context.Context, e *store.CommunicationEntry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

// stubChannel is enabled by a predicate and answers with a fixed result.
type stubChannel struct {
	name    string
	enabled func(store.ChannelConfig) bool
	status  string
	err     error
	calls   int
}

func (s *stubChannel) Name() string { return s.name }
func (s *stubChannel) Enabled(cfg store.ChannelConfig) bool { return s.enabled(cfg) }
func (s *stubChannel) Send(_ context.Context, _ store.ChannelConfig, _ Message) (Result, error) {
	s.calls++
	return Result{Recipients: s.name + "-dest", Status: s.status}, s.err
}

func always(store.ChannelConfig) bool { return true }
func never(store.ChannelConfig) bool { return false }

func TestDispatcher_Send(t *testing.T) {
	ctx := context.Background()
	cfg := &store.ChannelConfig{GroupName: "Familie"}

	ledger := new(MockLedger)
	ledger.On("GetChannelConfig", ctx, "Familie").Return(cfg, nil)
	ledger.On("LogCommunication", ctx, mock.AnythingOfType("*store.CommunicationEntry")).Return(nil)

	whatsapp := &stubChannel{name: "whatsapp", enabled: always, status: config.StatusLink}
	email := &stubChannel{name: "email", enabled: always, err: errors.New("smtp down")}
	telegram := &stubChannel{name: "telegram", enabled: never}
	webhook := &stubChannel{name: "webhook", enabled: always}

	m := metrics.NewManager()
	d := NewDispatcher(ledger, m, whatsapp, email, telegram, webhook)

	results, err := d.Send(ctx, "Familie", "subject", "body")
	require.NoError(t, err)

	assert.Equal(t, []Result{
		{Channel: "whatsapp", Status: config.StatusLink, Recipients: "whatsapp-dest"},
		{Channel: "email", Status: config.StatusFailed, Recipients: "email-dest", Error: "smtp down"},
		{Channel: "webhook", Status: config.StatusSent, Recipients: "webhook-dest"},
	}, results, "a failing channel must not stop the next ones")

	assert.Zero(t, telegram.calls)
	ledger.AssertNumberOfCalls(t, "LogCommunication", 3)

	// Every logged entry carries the message body and the group.
	for _, call := range ledger.Calls {
		if call.Method != "LogCommunication" {
			continue
		}
		entry := call.Arguments.Get(1).(*store.CommunicationEntry)
		assert.Equal(t, "Familie", entry.GroupName)
		assert.Equal(t, "body", entry.Message)
	}

	n, err := testutil.GatherAndCount(m.Registry(), "birthday_manager_notifications_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDispatcher_LogFailureDoesNotAbort(t *testing.T) {
	ctx := context.Background()
	ledger := new(MockLedger)
	ledger.On("GetChannelConfig", ctx, "Verein").Return(&store.ChannelConfig{GroupName: "Verein"}, nil)
	ledger.On("LogCommunication", ctx, mock.Anything).Return(errors.New("disk full"))

	a := &stubChannel{name: "a", enabled: always}
	b := &stubChannel{name: "b", enabled: always}

	results, err := NewDispatcher(ledger, nil, a, b).Send(ctx, "Verein", "", "hi")
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, 1, b.calls)
}

func TestDispatcher_ConfigError(t *testing.T) {
	ctx := context.Background()
	ledger := new(MockLedger)
	ledger.On("GetChannelConfig", ctx, "X").Return(nil, errors.New("db gone"))

	ch := &stubChannel{name: "a", enabled: always}
	_, err := NewDispatcher(ledger, nil, ch).Send(ctx, "X", "", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrChannelConfig)
	assert.Zero(t, ch.calls)
}

func TestDispatcher_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ledger := new(MockLedger)
	ledger.On("GetChannelConfig", ctx, "Familie").Return(&store.ChannelConfig{GroupName: "Familie"}, nil)

	ch := &stubChannel{name: "a", enabled: always}
	results, err := NewDispatcher(ledger, nil, ch).Send(ctx, "Familie", "", "hi")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
	assert.Zero(t, ch.calls)
}
