package announce

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravenguard/bosstrack/internal/notify"
)

// --- fakes -----------------------------------------------------------------

type fakeClaimStore struct {
	due     []Intent
	sent    []int64
	retried []int64
	reasons []string
}

func (f *fakeClaimStore) ClaimDue(_ context.Context, limit int) ([]Intent, error) {
	if limit < len(f.due) {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeClaimStore) MarkSent(_ context.Context, id int64) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeClaimStore) MarkRetry(_ context.Context, id int64, reason string) error {
	f.retried = append(f.retried, id)
	f.reasons = append(f.reasons, reason)
	return nil
}

// fakeSender fails specific deliveries by boss name.
type fakeSender struct {
	failWith   map[string]error
	deliveries []notify.Delivery
}

func (f *fakeSender) Send(_ context.Context, d notify.Delivery) error {
	if err := f.failWith[d.BossName]; err != nil {
		return err
	}
	f.deliveries = append(f.deliveries, d)
	return nil
}

// fakePings resolves the subscriber-ping channel and counts lookups.
type fakePings struct {
	hint    *int64
	lookups int
}

func (f *fakePings) PingChannelHint(_ context.Context, _ int64) (*int64, error) {
	f.lookups++
	return f.hint, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intent(id int64, name string) Intent {
	return Intent{
		ID: id, GuildID: 42, BossID: id, Phase: PhaseSpawn, CycleTS: 1_700_000_000,
		BossName: name, Message: name + " — spawn time reached.",
	}
}

// --- tests -----------------------------------------------------------------

func TestDispatchBatch_AllDelivered(t *testing.T) {
	store := &fakeClaimStore{due: []Intent{intent(1, "Gelebron"), intent(2, "Bloodthorn")}}
	sender := &fakeSender{}

	d := NewDispatcher(store, sender, nil, 100, time.Second, testLogger())
	sent, retried, err := d.DispatchBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, sent)
	assert.Zero(t, retried)
	assert.Equal(t, []int64{1, 2}, store.sent)
	assert.Empty(t, store.retried)

	require.Len(t, sender.deliveries, 2)
	assert.NotEmpty(t, sender.deliveries[0].ID, "each attempt carries a delivery id")
	assert.NotEqual(t, sender.deliveries[0].ID, sender.deliveries[1].ID)
}

func TestDispatchBatch_RetryableFailureRequeued(t *testing.T) {
	store := &fakeClaimStore{due: []Intent{intent(1, "Gelebron"), intent(2, "Bloodthorn")}}
	sender := &fakeSender{failWith: map[string]error{
		"Gelebron": &notify.DeliveryError{Retryable: true, Err: assert.AnError},
	}}

	d := NewDispatcher(store, sender, nil, 100, time.Second, testLogger())
	sent, retried, err := d.DispatchBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, retried)
	assert.Equal(t, []int64{2}, store.sent)
	assert.Equal(t, []int64{1}, store.retried)
	require.Len(t, store.reasons, 1)
	assert.Contains(t, store.reasons[0], "retryable")
}

func TestDispatchBatch_PermanentFailureAlsoRequeued(t *testing.T) {
	// permanent failures stay unsent too: eventual delivery over silent
	// loss, bounded by the intent's lifetime
	store := &fakeClaimStore{due: []Intent{intent(1, "Gelebron")}}
	sender := &fakeSender{failWith: map[string]error{
		"Gelebron": &notify.DeliveryError{Retryable: false, Err: assert.AnError},
	}}

	d := NewDispatcher(store, sender, nil, 100, time.Second, testLogger())
	sent, retried, err := d.DispatchBatch(context.Background())
	require.NoError(t, err)

	assert.Zero(t, sent)
	assert.Equal(t, 1, retried)
	assert.Equal(t, []int64{1}, store.retried)
}

func TestDispatchBatch_OneFailureNeverAbortsBatch(t *testing.T) {
	store := &fakeClaimStore{due: []Intent{
		intent(1, "Gelebron"), intent(2, "Bloodthorn"), intent(3, "Proteus"),
	}}
	sender := &fakeSender{failWith: map[string]error{
		"Bloodthorn": &notify.DeliveryError{Retryable: true, Err: assert.AnError},
	}}

	d := NewDispatcher(store, sender, nil, 100, time.Second, testLogger())
	sent, retried, err := d.DispatchBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, sent)
	assert.Equal(t, 1, retried)
}

func TestDispatchBatch_MentionsRoutedToPingChannel(t *testing.T) {
	withAudience := intent(1, "Gelebron")
	withAudience.Audience = []int64{10, 11}
	store := &fakeClaimStore{due: []Intent{withAudience, intent(2, "Bloodthorn")}}
	sender := &fakeSender{}
	ping := int64(888)
	pings := &fakePings{hint: &ping}

	d := NewDispatcher(store, sender, pings, 100, time.Second, testLogger())
	_, _, err := d.DispatchBatch(context.Background())
	require.NoError(t, err)

	require.Len(t, sender.deliveries, 2)
	require.NotNil(t, sender.deliveries[0].PingHint)
	assert.Equal(t, int64(888), *sender.deliveries[0].PingHint)
	assert.Nil(t, sender.deliveries[1].PingHint, "no mentions, no ping target")
	assert.Equal(t, 1, pings.lookups, "only mentioning intents resolve the ping channel")
}

func TestDispatchBatch_RespectsBatchSize(t *testing.T) {
	store := &fakeClaimStore{due: []Intent{
		intent(1, "Gelebron"), intent(2, "Bloodthorn"), intent(3, "Proteus"),
	}}
	sender := &fakeSender{}

	d := NewDispatcher(store, sender, nil, 2, time.Second, testLogger())
	sent, _, err := d.DispatchBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
}
