package gamealert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/gamealert/model"
)

func newTestDispatcher(t *testing.T, subs *memSubscriptions, platform *fakePlatform, opts ...DispatcherOption) (*Dispatcher, *recordingDiagnostics) {
	t.Helper()
	diag := &recordingDiagnostics{}
	all := append([]DispatcherOption{
		WithSubscriptions(subs),
		WithPlatform(platform),
		WithLogger(&NoopLogger{}),
		WithDiagnostics(diag),
		WithDeliveryTimeout(time.Second),
	}, opts...)
	d, err := NewDispatcher(all...)
	require.NoError(t, err)
	return d, diag
}

func standing(kind model.Kind, server, channel string) model.Subscription {
	return model.NewSubscription(kind, server, channel, "100", nil)
}

func TestNewDispatcher_RequiresDependencies(t *testing.T) {
	_, err := NewDispatcher(WithPlatform(newFakePlatform()), WithLogger(&NoopLogger{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SubscriptionRepository is required")

	_, err = NewDispatcher(WithSubscriptions(newMemSubscriptions()), WithLogger(&NoopLogger{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ChatPlatform is required")

	_, err = NewDispatcher(WithDeliveryTimeout(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to apply dispatcher option")
}

func TestDispatch_MarksEachCandidateOnceRegardlessOfDestinations(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		subs := newMemSubscriptions()
		for i := 0; i < n; i++ {
			subs.Save(context.Background(), standing(model.KindGiveaway, "s1", string(rune('a'+i))))
		}
		platform := newFakePlatform()
		d, _ := newTestDispatcher(t, subs, platform)
		source := newMemCandidates("g1", "g2")

		result, err := d.Dispatch(context.Background(), source, model.KindGiveaway)
		require.NoError(t, err)

		assert.Equal(t, 2, result.Candidates)
		assert.Equal(t, 2, result.Announced)
		assert.Equal(t, 2*n, result.Deliveries)
		assert.Equal(t, 1, source.markCount("g1"), "destinations=%d", n)
		assert.Equal(t, 1, source.markCount("g2"), "destinations=%d", n)
	}
}

func TestDispatch_SecondRunSkipsAnnouncedRows(t *testing.T) {
	subs := newMemSubscriptions(standing(model.KindFreeToPlay, "s1", "c1"))
	platform := newFakePlatform()
	d, _ := newTestDispatcher(t, subs, platform)
	source := newMemCandidates("f1")

	_, err := d.Dispatch(context.Background(), source, model.KindFreeToPlay)
	require.NoError(t, err)
	require.Equal(t, 1, platform.totalSent())

	result, err := d.Dispatch(context.Background(), source, model.KindFreeToPlay)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Candidates)
	assert.Equal(t, 1, platform.totalSent(), "announced rows must not be re-sent")
	assert.Equal(t, 1, source.markCount("f1"))
}

func TestDispatch_DeduplicatesChannels(t *testing.T) {
	subs := newMemSubscriptions(
		model.NewSubscription(model.KindGamePass, "s1", "c1", "100", model.Mentions{"42"}),
		model.NewSubscription(model.KindGamePass, "s1", "c1", "101", model.Mentions{"&7"}),
	)
	platform := newFakePlatform()
	d, _ := newTestDispatcher(t, subs, platform)

	result, err := d.Dispatch(context.Background(), newMemCandidates("x"), model.KindGamePass)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deliveries)

	sent := platform.sentTo("c1")
	require.Len(t, sent, 1)
	assert.Equal(t, "<@42>", sent[0].Content, "first subscription's mentions win")
}

func TestDispatch_FailureIsolatedAndChannelPrunedFromAllKinds(t *testing.T) {
	subs := newMemSubscriptions(
		standing(model.KindGiveaway, "s1", "good"),
		standing(model.KindGiveaway, "s2", "dead"),
		standing(model.KindGiveaway, "s3", "good2"),
		standing(model.KindFreeToPlay, "s2", "dead"),
		model.NewPriceSubscription("s2", "dead", "100", model.PriceTarget{GameKey: "k", DisplayName: "Game", TargetPrice: 10}, nil),
		standing(model.KindFreeToPlay, "s1", "good"),
	)
	platform := newFakePlatform()
	platform.forbidden["dead"] = true
	d, diag := newTestDispatcher(t, subs, platform)
	source := newMemCandidates("g1", "g2")

	result, err := d.Dispatch(context.Background(), source, model.KindGiveaway)
	require.NoError(t, err)

	assert.Len(t, platform.sentTo("good"), 2)
	assert.Len(t, platform.sentTo("good2"), 2)
	assert.Equal(t, 1, source.markCount("g1"))
	assert.Equal(t, 1, source.markCount("g2"))

	assert.Equal(t, []string{"dead"}, result.PrunedChannels)
	assert.Equal(t, 1, result.Failures, "pruned channel is skipped for later candidates")
	assert.True(t, IsDelivery(result.Err))
	assert.Equal(t, []string{"dead"}, diag.prunedChannels)

	for _, s := range subs.all() {
		assert.NotEqual(t, "dead", s.ChannelID, "dead channel must be gone from kind %s", s.Kind)
	}
	assert.Len(t, subs.all(), 3)
}

func TestDispatch_StuckDestinationDoesNotStarveOthers(t *testing.T) {
	subs := newMemSubscriptions(
		standing(model.KindGiveaway, "s1", "stuck"),
		standing(model.KindGiveaway, "s2", "ok1"),
		standing(model.KindGiveaway, "s3", "ok2"),
		standing(model.KindGamePass, "s1", "stuck"),
	)
	platform := newFakePlatform()
	platform.stuck["stuck"] = true
	d, diag := newTestDispatcher(t, subs, platform, WithDeliveryTimeout(50*time.Millisecond))
	source := newMemCandidates("g1", "g2")

	start := time.Now()
	result, err := d.Dispatch(context.Background(), source, model.KindGiveaway)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	assert.Len(t, platform.sentTo("ok1"), 2)
	assert.Len(t, platform.sentTo("ok2"), 2)
	assert.Equal(t, 1, source.markCount("g1"))
	assert.Equal(t, 1, source.markCount("g2"))

	// A destination that exhausts its attempt timeout counts as rejecting delivery.
	assert.True(t, errors.Is(result.Err, context.DeadlineExceeded))
	assert.Equal(t, []string{"stuck"}, result.PrunedChannels)
	assert.Equal(t, []string{"stuck"}, diag.prunedChannels)
	assert.Equal(t, 1, result.Failures, "pruned channel is skipped for later candidates")
	for _, s := range subs.all() {
		assert.NotEqual(t, "stuck", s.ChannelID, "stuck channel must be gone from kind %s", s.Kind)
	}
}

func TestDispatch_MissingChannelIsPruned(t *testing.T) {
	subs := newMemSubscriptions(standing(model.KindGiveaway, "s1", "gone"), standing(model.KindGiveaway, "s1", "ok"))
	platform := newFakePlatform()
	platform.missing["gone"] = true
	d, _ := newTestDispatcher(t, subs, platform)

	result, err := d.Dispatch(context.Background(), newMemCandidates("g1"), model.KindGiveaway)
	require.NoError(t, err)
	assert.Equal(t, []string{"gone"}, result.PrunedChannels)
	assert.True(t, errors.Is(result.Err, ErrChannelNotFound))
	assert.Len(t, platform.sentTo("ok"), 1)
}

func TestDispatch_DebugModeKeepsFailingChannel(t *testing.T) {
	subs := newMemSubscriptions(standing(model.KindGiveaway, "s1", "dead"), standing(model.KindGiveaway, "s1", "ok"))
	platform := newFakePlatform()
	platform.forbidden["dead"] = true
	d, diag := newTestDispatcher(t, subs, platform, WithDebugMode(true))
	source := newMemCandidates("g1")

	result, err := d.Dispatch(context.Background(), source, model.KindGiveaway)
	require.NoError(t, err)

	assert.Empty(t, result.PrunedChannels)
	assert.Len(t, subs.all(), 2)
	assert.Equal(t, []string{"dead"}, diag.deliveryFailures, "failure is still reported")
	assert.Equal(t, 1, source.markCount("g1"))
}

func TestDispatch_RenderFailureLeavesCandidatePending(t *testing.T) {
	subs := newMemSubscriptions(standing(model.KindGiveaway, "s1", "c1"))
	platform := newFakePlatform()
	d, diag := newTestDispatcher(t, subs, platform)
	source := newMemCandidates()
	source.rows = []staticCandidate{{id: "bad", renderErr: errors.New("catalog down")}, {id: "good"}}

	result, err := d.Dispatch(context.Background(), source, model.KindGiveaway)
	require.NoError(t, err)

	assert.Equal(t, 1, result.RenderFailures)
	assert.Equal(t, 1, result.Announced)
	assert.Equal(t, 0, source.markCount("bad"))
	assert.Equal(t, 1, source.markCount("good"))
	assert.Len(t, diag.deliveryFailures, 1)
	assert.Len(t, subs.all(), 1, "render failures never prune")
}

func TestDispatch_NoDestinationsStillMarks(t *testing.T) {
	platform := newFakePlatform()
	d, _ := newTestDispatcher(t, newMemSubscriptions(), platform)
	source := newMemCandidates("g1")

	result, err := d.Dispatch(context.Background(), source, model.KindGiveaway)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Announced)
	assert.Equal(t, 0, platform.totalSent())
}

func TestDispatch_ExplicitCandidatesBypassSource(t *testing.T) {
	subs := newMemSubscriptions(standing(model.KindLocalGiveaway, "s1", "c1"))
	platform := newFakePlatform()
	d, _ := newTestDispatcher(t, subs, platform)
	source := newMemCandidates("from-source")

	result, err := d.Dispatch(context.Background(), source, model.KindLocalGiveaway, staticCandidate{id: "explicit"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Candidates)
	assert.Equal(t, 1, source.markCount("explicit"))
	assert.Equal(t, 0, source.markCount("from-source"))
}

func TestDispatch_CanceledContextStopsBeforeNextCandidate(t *testing.T) {
	subs := newMemSubscriptions(standing(model.KindGiveaway, "s1", "c1"))
	d, _ := newTestDispatcher(t, subs, newFakePlatform())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := d.Dispatch(ctx, newMemCandidates("g1"), model.KindGiveaway)
	require.Error(t, err)
	assert.True(t, IsCanceled(err))
	assert.Equal(t, 0, result.Announced)
}

func TestDispatch_RejectsUnknownKind(t *testing.T) {
	d, _ := newTestDispatcher(t, newMemSubscriptions(), newFakePlatform())
	_, err := d.Dispatch(context.Background(), newMemCandidates("g1"), model.Kind("weather"))
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestDispatch_LocalGiveawaySourceRendersThroughCatalog(t *testing.T) {
	repo := newMemLocalGiveaways()
	g, _ := repo.Save(context.Background(), model.NewLocalGiveaway(620, "AAAAA-BBBBB-CCCCC"))
	catalog := &fakeCatalog{details: map[int64]model.AppDetails{620: {AppID: 620, Name: "Portal 2"}}}
	source, err := NewLocalGiveawaySource(repo, catalog)
	require.NoError(t, err)

	subs := newMemSubscriptions(standing(model.KindLocalGiveaway, "s1", "c1"))
	platform := newFakePlatform()
	d, _ := newTestDispatcher(t, subs, platform)

	result, err := d.Dispatch(context.Background(), source, model.KindLocalGiveaway)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Announced)
	require.Len(t, platform.sentTo("c1"), 1)
	assert.Equal(t, "Giveaway: Portal 2", platform.sentTo("c1")[0].Title)
	assert.True(t, repo.get(g.ID).Announced)
}
