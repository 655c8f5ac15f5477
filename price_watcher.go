package gamealert

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/coregx/gamealert/model"
	"github.com/coregx/gamealert/retry"
)

// MaxPriceBatchSize is the largest number of game keys sent in one provider call.
const MaxPriceBatchSize = 20

// PriceWatcher evaluates price subscriptions against live market data.
//
// Each run fetches every distinct tracked game once, in batches, and consumes
// every subscription whose target price is strictly above the current price:
// one notification is sent, then the subscription is deleted.
//
// Thread safety: Safe for concurrent use, though overlapping runs may notify twice.
type PriceWatcher struct {
	subscriptions   SubscriptionRepository
	provider        PriceProvider
	platform        ChatPlatform
	logger          Logger
	diagnostics     DiagnosticsReporter
	retryStrategy   retry.Strategy
	batchSize       int
	deliveryTimeout time.Duration
	debug           bool
}

// PriceWatcherOption is a function that configures a PriceWatcher.
type PriceWatcherOption func(*PriceWatcher) error

// NewPriceWatcher creates a new PriceWatcher with the provided options.
//
// Required options:
//   - WithPriceWatcherSubscriptions: subscription repository
//   - WithPriceProvider: market data provider
//   - WithPriceWatcherPlatform: chat platform
//   - WithPriceWatcherLogger: logger instance
//
// Optional options:
//   - WithPriceBatchSize: keys per provider call (default and max: 20)
//   - WithPriceRetryStrategy: retry per batch (default: retry.DefaultStrategy())
//   - WithPriceWatcherDiagnostics: failure reporter (default: NoOpDiagnostics)
//   - WithPriceWatcherDebugMode: keep channels that reject delivery
func NewPriceWatcher(opts ...PriceWatcherOption) (*PriceWatcher, error) {
	w := &PriceWatcher{
		diagnostics:     &NoOpDiagnostics{},
		retryStrategy:   retry.DefaultStrategy(),
		batchSize:       MaxPriceBatchSize,
		deliveryTimeout: defaultDeliveryTimeout,
	}

	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply price watcher option", err)
		}
	}

	if w.subscriptions == nil {
		return nil, NewError(ErrCodeConfiguration, "SubscriptionRepository is required (use WithPriceWatcherSubscriptions)")
	}
	if w.provider == nil {
		return nil, NewError(ErrCodeConfiguration, "PriceProvider is required (use WithPriceProvider)")
	}
	if w.platform == nil {
		return nil, NewError(ErrCodeConfiguration, "ChatPlatform is required (use WithPriceWatcherPlatform)")
	}
	if w.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithPriceWatcherLogger)")
	}

	return w, nil
}

// WithPriceWatcherSubscriptions sets the subscription repository.
func WithPriceWatcherSubscriptions(repo SubscriptionRepository) PriceWatcherOption {
	return func(w *PriceWatcher) error {
		if repo == nil {
			return fmt.Errorf("subscription repository cannot be nil")
		}
		w.subscriptions = repo
		return nil
	}
}

// WithPriceProvider sets the market data provider.
func WithPriceProvider(provider PriceProvider) PriceWatcherOption {
	return func(w *PriceWatcher) error {
		if provider == nil {
			return fmt.Errorf("price provider cannot be nil")
		}
		w.provider = provider
		return nil
	}
}

// WithPriceWatcherPlatform sets the chat platform used for notifications.
func WithPriceWatcherPlatform(platform ChatPlatform) PriceWatcherOption {
	return func(w *PriceWatcher) error {
		if platform == nil {
			return fmt.Errorf("platform cannot be nil")
		}
		w.platform = platform
		return nil
	}
}

// WithPriceWatcherLogger sets the logger instance.
func WithPriceWatcherLogger(logger Logger) PriceWatcherOption {
	return func(w *PriceWatcher) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		w.logger = logger
		return nil
	}
}

// WithPriceWatcherDiagnostics sets the failure reporter.
func WithPriceWatcherDiagnostics(reporter DiagnosticsReporter) PriceWatcherOption {
	return func(w *PriceWatcher) error {
		if reporter == nil {
			return fmt.Errorf("diagnostics reporter cannot be nil")
		}
		w.diagnostics = reporter
		return nil
	}
}

// WithPriceBatchSize sets how many game keys go into one provider call.
// Must be between 1 and MaxPriceBatchSize.
func WithPriceBatchSize(size int) PriceWatcherOption {
	return func(w *PriceWatcher) error {
		if size <= 0 || size > MaxPriceBatchSize {
			return fmt.Errorf("price batch size must be in 1..%d, got %d", MaxPriceBatchSize, size)
		}
		w.batchSize = size
		return nil
	}
}

// WithPriceRetryStrategy sets the retry strategy applied to each provider batch.
func WithPriceRetryStrategy(strategy retry.Strategy) PriceWatcherOption {
	return func(w *PriceWatcher) error {
		w.retryStrategy = strategy
		return nil
	}
}

// WithPriceWatcherDebugMode keeps channels that reject delivery.
func WithPriceWatcherDebugMode(debug bool) PriceWatcherOption {
	return func(w *PriceWatcher) error {
		w.debug = debug
		return nil
	}
}

// PriceWatchResult summarizes one price watch run.
type PriceWatchResult struct {
	Subscriptions   int   // Price subscriptions evaluated
	GameKeys        int   // Distinct game keys fetched
	FailedBatches   int   // Provider batches that failed after retries
	MissingPrices   int   // Subscriptions skipped because the provider had no price
	Triggered       int   // Subscriptions whose target was above the current price
	Consumed        int   // Triggered subscriptions notified and deleted
	DeliveryFailure int   // Triggered subscriptions whose notification failed
	Err             error // Combined provider, delivery and delete errors
}

// Run evaluates every price subscription once.
// The returned error is non-nil only if the subscriptions could not be loaded.
func (w *PriceWatcher) Run(ctx context.Context) (*PriceWatchResult, error) {
	subs, err := w.subscriptions.ListByKind(ctx, model.KindPrice)
	if err != nil && !IsNoData(err) {
		return nil, fmt.Errorf("failed to list price subscriptions: %w", err)
	}

	result := &PriceWatchResult{Subscriptions: len(subs)}
	if len(subs) == 0 {
		return result, nil
	}

	keys := distinctGameKeys(subs)
	result.GameKeys = len(keys)
	prices := w.fetchPrices(ctx, keys, result)

	pruned := make(map[string]bool)
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			result.Err = multierr.Append(result.Err, err)
			break
		}
		if sub.Price == nil || pruned[sub.ChannelID] {
			continue
		}

		overview, ok := prices[sub.Price.GameKey]
		if !ok || !overview.HasCurrentPrice() {
			result.MissingPrices++
			continue
		}
		if !sub.Price.IsSatisfiedBy(overview.Current.Price) {
			continue
		}

		result.Triggered++
		w.consume(ctx, sub, overview, result, pruned)
	}

	w.logger.Infof("Price watch: subscriptions=%d, games=%d, triggered=%d, consumed=%d, missing=%d, failed_batches=%d",
		result.Subscriptions, result.GameKeys, result.Triggered, result.Consumed, result.MissingPrices, result.FailedBatches)
	return result, nil
}

// fetchPrices queries the provider batch by batch and merges the results.
// A batch that keeps failing is logged and treated as having no data.
func (w *PriceWatcher) fetchPrices(ctx context.Context, keys []string, result *PriceWatchResult) map[string]model.PriceOverview {
	prices := make(map[string]model.PriceOverview, len(keys))
	for start := 0; start < len(keys); start += w.batchSize {
		end := min(start+w.batchSize, len(keys))
		batch := keys[start:end]

		var overviews map[string]model.PriceOverview
		err := retry.Do(ctx, w.retryStrategy, func(ctx context.Context) error {
			var fetchErr error
			overviews, fetchErr = w.provider.FetchOverview(ctx, batch)
			return fetchErr
		})
		if err != nil {
			result.FailedBatches++
			result.Err = multierr.Append(result.Err, NewErrorWithCause(ErrCodeProvider, fmt.Sprintf("price batch %d-%d", start, end), err))
			w.logger.Warnf("Price batch %d-%d failed, skipping %d games this cycle: %v", start, end, len(batch), err)
			continue
		}
		for k, v := range overviews {
			prices[k] = v
		}
	}
	return prices
}

// consume notifies the subscription's channel and deletes the subscription.
func (w *PriceWatcher) consume(ctx context.Context, sub model.Subscription, overview model.PriceOverview, result *PriceWatchResult, pruned map[string]bool) {
	announcement := model.PriceAlertAnnouncement(sub, overview).WithMentions(sub.Mentions)

	if err := w.send(ctx, sub.ChannelID, announcement); err != nil {
		result.DeliveryFailure++
		result.Err = multierr.Append(result.Err, fmt.Errorf("price alert %d to channel %s: %w", sub.ID, sub.ChannelID, err))
		if ctx.Err() != nil {
			return
		}
		if repErr := w.diagnostics.ReportDeliveryFailure(ctx, sub.ChannelID, fmt.Sprintf("price:%d", sub.ID), err); repErr != nil {
			w.logger.Warnf("Failed to report delivery failure: %v", repErr)
		}
		if w.debug {
			return
		}
		pruned[sub.ChannelID] = true
		removed, delErr := w.subscriptions.DeleteByChannel(ctx, sub.ChannelID)
		if delErr != nil {
			w.logger.Errorf("Failed to prune channel %s: %v", sub.ChannelID, delErr)
			return
		}
		if repErr := w.diagnostics.ReportChannelPruned(ctx, sub.ChannelID, removed); repErr != nil {
			w.logger.Warnf("Failed to report pruned channel: %v", repErr)
		}
		return
	}

	if err := w.subscriptions.Delete(ctx, model.KindPrice, sub.ID); err != nil && !IsNoData(err) {
		// Notified but not consumed; it fires again next cycle.
		result.Err = multierr.Append(result.Err, fmt.Errorf("delete price alert %d: %w", sub.ID, err))
		w.logger.Errorf("Failed to delete triggered price alert %d: %v", sub.ID, err)
		return
	}

	result.Consumed++
	w.logger.Infof("Price alert %d fired: game=%s, target=%d, current=%s, channel=%s",
		sub.ID, sub.Price.GameKey, sub.Price.TargetPrice, overview.Current.Price.String(), sub.ChannelID)
}

func (w *PriceWatcher) send(ctx context.Context, channelID string, a *model.Announcement) error {
	attemptCtx, cancel := context.WithTimeout(ctx, w.deliveryTimeout)
	defer cancel()

	ch, err := w.platform.FetchChannel(attemptCtx, channelID)
	if err != nil {
		return err
	}
	return ch.Send(attemptCtx, a)
}

// distinctGameKeys returns each tracked game key once, in first-seen order.
func distinctGameKeys(subs []model.Subscription) []string {
	seen := make(map[string]bool, len(subs))
	keys := make([]string, 0, len(subs))
	for _, s := range subs {
		if s.Price == nil || s.Price.GameKey == "" || seen[s.Price.GameKey] {
			continue
		}
		seen[s.Price.GameKey] = true
		keys = append(keys, s.Price.GameKey)
	}
	return keys
}
