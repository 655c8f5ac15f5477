package gamealert

import (
	"context"
	"fmt"

	"github.com/coregx/gamealert/model"
)

// DispatchJob announces one event source to the channels subscribed to its kind.
type DispatchJob struct {
	dispatcher *Dispatcher
	source     CandidateRepository
	kind       model.Kind
}

// NewDispatchJob creates the periodic dispatch job for one (source, kind) pair.
func NewDispatchJob(dispatcher *Dispatcher, source CandidateRepository, kind model.Kind) *DispatchJob {
	return &DispatchJob{dispatcher: dispatcher, source: source, kind: kind}
}

// Name returns "dispatch-<kind>".
func (j *DispatchJob) Name() string {
	return "dispatch-" + string(j.kind)
}

// Run dispatches every un-announced candidate. Per-destination failures are
// handled by the dispatcher and do not fail the job.
func (j *DispatchJob) Run(ctx context.Context) error {
	_, err := j.dispatcher.Dispatch(ctx, j.source, j.kind)
	return err
}

// PriceWatchJob evaluates price subscriptions.
type PriceWatchJob struct {
	watcher *PriceWatcher
}

// NewPriceWatchJob creates the periodic price watch job.
func NewPriceWatchJob(watcher *PriceWatcher) *PriceWatchJob {
	return &PriceWatchJob{watcher: watcher}
}

// Name returns "price-watch".
func (j *PriceWatchJob) Name() string {
	return "price-watch"
}

// Run evaluates every price subscription once.
func (j *PriceWatchJob) Run(ctx context.Context) error {
	_, err := j.watcher.Run(ctx)
	return err
}

// RewardDrawJob draws winners for finished local giveaways.
type RewardDrawJob struct {
	draw *RewardDraw
}

// NewRewardDrawJob creates the periodic reward draw job.
func NewRewardDrawJob(draw *RewardDraw) *RewardDrawJob {
	return &RewardDrawJob{draw: draw}
}

// Name returns "reward-draw".
func (j *RewardDrawJob) Name() string {
	return "reward-draw"
}

// Run draws at most one winner. A failed draw is already reported and retried
// next run, so it does not fail the job.
func (j *RewardDrawJob) Run(ctx context.Context) error {
	_, err := j.draw.Run(ctx)
	return err
}

// HeartbeatJob publishes how many channels the bot serves.
type HeartbeatJob struct {
	subscriptions SubscriptionRepository
	presence      PresenceUpdater
	logger        Logger
}

// NewHeartbeatJob creates the periodic channel-count heartbeat.
func NewHeartbeatJob(subscriptions SubscriptionRepository, presence PresenceUpdater, logger Logger) *HeartbeatJob {
	return &HeartbeatJob{subscriptions: subscriptions, presence: presence, logger: logger}
}

// Name returns "heartbeat".
func (j *HeartbeatJob) Name() string {
	return "heartbeat"
}

// Run counts subscribed channels and updates the bot presence.
func (j *HeartbeatJob) Run(ctx context.Context) error {
	channels, servers, err := j.subscriptions.CountChannels(ctx)
	if err != nil {
		return fmt.Errorf("failed to count channels: %w", err)
	}

	text := HeartbeatText(channels, servers)
	if err := j.presence.UpdatePresence(ctx, text); err != nil {
		return fmt.Errorf("failed to update presence: %w", err)
	}

	j.logger.Infof("Heartbeat: %s", text)
	return nil
}

// HeartbeatText renders the presence line for a channel and server count.
func HeartbeatText(channels, servers int) string {
	return fmt.Sprintf("Alerting %d channels in %d servers", channels, servers)
}
