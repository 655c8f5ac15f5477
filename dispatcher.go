package gamealert

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/coregx/gamealert/model"
)

const (
	defaultDeliveryTimeout = 15 * time.Second
	defaultConcurrency     = 16
)

// DispatchObserver receives per-delivery outcomes, typically for metrics.
type DispatchObserver interface {
	ObserveDelivery(kind string, success bool)
	ObservePrune(kind string)
	ObserveAnnounced(kind string)
}

type noopObserver struct{}

func (noopObserver) ObserveDelivery(string, bool) {}
func (noopObserver) ObservePrune(string)          {}
func (noopObserver) ObserveAnnounced(string)      {}

// Dispatcher fans announcements out to every subscribed channel.
//
// For one (source, kind) pair a run:
//   - loads un-announced candidates (or uses the ones passed in)
//   - resolves the distinct destination channels subscribed to the kind
//   - renders each candidate once and attempts every destination independently
//   - prunes channels that reject delivery from every kind (unless in debug mode)
//   - marks each candidate announced right after its fan-out completes
//
// A crash between delivery and marking re-sends that candidate on the next run,
// so delivery is at-least-once per candidate.
//
// Thread safety: Safe for concurrent use. Runs for different kinds may overlap.
type Dispatcher struct {
	subscriptions   SubscriptionRepository
	platform        ChatPlatform
	logger          Logger
	diagnostics     DiagnosticsReporter
	observer        DispatchObserver
	debug           bool
	deliveryTimeout time.Duration
	concurrency     int
}

// NewDispatcher creates a new dispatcher with the provided options.
//
// Required options:
//   - WithSubscriptions: subscription repository
//   - WithPlatform: chat platform
//   - WithLogger: logger instance
//
// Optional options:
//   - WithDiagnostics: failure reporter (default: NoOpDiagnostics)
//   - WithDebugMode: disable pruning (default: false)
//   - WithDeliveryTimeout: per-attempt timeout (default: 15s)
//   - WithConcurrency: parallel destinations per candidate (default: 16)
func NewDispatcher(opts ...DispatcherOption) (*Dispatcher, error) {
	d := &Dispatcher{
		diagnostics:     &NoOpDiagnostics{},
		observer:        noopObserver{},
		deliveryTimeout: defaultDeliveryTimeout,
		concurrency:     defaultConcurrency,
	}

	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply dispatcher option", err)
		}
	}

	if d.subscriptions == nil {
		return nil, NewError(ErrCodeConfiguration, "SubscriptionRepository is required (use WithSubscriptions)")
	}
	if d.platform == nil {
		return nil, NewError(ErrCodeConfiguration, "ChatPlatform is required (use WithPlatform)")
	}
	if d.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithLogger)")
	}

	return d, nil
}

// DispatchResult summarizes one dispatch run.
type DispatchResult struct {
	Kind           model.Kind
	Candidates     int      // Candidates considered
	Announced      int      // Candidates marked announced
	RenderFailures int      // Candidates skipped because rendering failed
	Deliveries     int      // Successful channel sends
	Failures       int      // Failed channel sends
	PrunedChannels []string // Channels removed from every kind
	Err            error    // Combined per-candidate and per-destination errors
}

// Dispatch announces candidates of one source to every channel subscribed to kind.
//
// When explicit candidates are given they are used instead of querying the source.
// Per-destination and per-candidate failures are collected in the result and never
// abort the run. The returned error is non-nil only when the run could not start
// (candidates or destinations failed to load) or the context was canceled.
func (d *Dispatcher) Dispatch(ctx context.Context, source CandidateRepository, kind model.Kind, explicit ...Candidate) (*DispatchResult, error) {
	if source == nil {
		return nil, NewError(ErrCodeValidation, "candidate source is required")
	}
	if !kind.IsValid() {
		return nil, NewError(ErrCodeValidation, fmt.Sprintf("unknown subscription kind %q", kind))
	}

	candidates := explicit
	if len(candidates) == 0 {
		found, err := source.FindUnannounced(ctx)
		if err != nil && !IsNoData(err) {
			return nil, fmt.Errorf("failed to find unannounced candidates: %w", err)
		}
		candidates = found
	}

	result := &DispatchResult{Kind: kind, Candidates: len(candidates)}
	if len(candidates) == 0 {
		return result, nil
	}

	subs, err := d.subscriptions.ListByKind(ctx, kind)
	if err != nil && !IsNoData(err) {
		return nil, fmt.Errorf("failed to list %s subscriptions: %w", kind, err)
	}
	destinations := uniqueDestinations(subs)

	run := &dispatchRun{kind: kind, pruned: make(map[string]bool)}
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			run.finish(result)
			return result, err
		}
		d.dispatchCandidate(ctx, run, source, c, destinations)
	}

	run.finish(result)
	if result.Candidates > 0 {
		d.logger.Infof("Dispatched %s: candidates=%d, announced=%d, deliveries=%d, failures=%d, pruned=%d",
			kind, result.Candidates, result.Announced, result.Deliveries, result.Failures, len(result.PrunedChannels))
	}
	return result, nil
}

// dispatchCandidate renders one candidate, fans it out and marks it announced.
func (d *Dispatcher) dispatchCandidate(ctx context.Context, run *dispatchRun, source CandidateRepository, c Candidate, destinations []destination) {
	id := c.CandidateID()

	announcement, err := c.Render(ctx)
	if err != nil {
		// Left un-announced; the next run renders it again.
		d.logger.Errorf("Failed to render %s candidate %s: %v", run.kind, id, err)
		run.renderFailed(fmt.Errorf("render %s: %w", id, err))
		if repErr := d.diagnostics.ReportDeliveryFailure(ctx, "", id, err); repErr != nil {
			d.logger.Warnf("Failed to report render failure: %v", repErr)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for _, dest := range destinations {
		if run.isPruned(dest.channelID) {
			continue
		}
		g.Go(func() error {
			d.deliver(ctx, run, id, announcement.WithMentions(dest.mentions), dest.channelID)
			return nil
		})
	}
	_ = g.Wait()

	if err := source.MarkAnnounced(ctx, id); err != nil {
		d.logger.Errorf("Failed to mark %s candidate %s announced: %v", run.kind, id, err)
		run.addErr(fmt.Errorf("mark %s: %w", id, err))
		return
	}
	run.announced()
	d.observer.ObserveAnnounced(string(run.kind))
}

// deliver attempts one destination with a bounded timeout and handles its failure.
func (d *Dispatcher) deliver(ctx context.Context, run *dispatchRun, candidateID string, a *model.Announcement, channelID string) {
	attemptCtx, cancel := context.WithTimeout(ctx, d.deliveryTimeout)
	defer cancel()

	err := d.send(attemptCtx, channelID, a)
	if err == nil {
		run.delivered()
		d.observer.ObserveDelivery(string(run.kind), true)
		return
	}

	run.failed(fmt.Errorf("channel %s: %w", channelID, err))
	d.observer.ObserveDelivery(string(run.kind), false)

	// The run itself is shutting down; the channel is not at fault.
	if ctx.Err() != nil {
		return
	}

	if repErr := d.diagnostics.ReportDeliveryFailure(ctx, channelID, candidateID, err); repErr != nil {
		d.logger.Warnf("Failed to report delivery failure: %v", repErr)
	}

	if d.debug {
		d.logger.Warnf("Debug mode: keeping channel %s after delivery failure: %v", channelID, err)
		return
	}
	d.prune(ctx, run, channelID)
}

func (d *Dispatcher) send(ctx context.Context, channelID string, a *model.Announcement) error {
	ch, err := d.platform.FetchChannel(ctx, channelID)
	if err != nil {
		return err
	}
	return ch.Send(ctx, a)
}

// prune removes the channel from every subscription kind, once per run.
func (d *Dispatcher) prune(ctx context.Context, run *dispatchRun, channelID string) {
	if !run.claimPrune(channelID) {
		return
	}

	removed, err := d.subscriptions.DeleteByChannel(ctx, channelID)
	if err != nil {
		d.logger.Errorf("Failed to prune channel %s: %v", channelID, err)
		run.addErr(fmt.Errorf("prune %s: %w", channelID, err))
		return
	}

	d.logger.Warnf("Pruned channel %s from all kinds (%d subscriptions)", channelID, removed)
	d.observer.ObservePrune(string(run.kind))
	if repErr := d.diagnostics.ReportChannelPruned(ctx, channelID, removed); repErr != nil {
		d.logger.Warnf("Failed to report pruned channel: %v", repErr)
	}
}

// destination is one distinct channel and the mentions it asked for.
type destination struct {
	channelID string
	mentions  model.Mentions
}

// uniqueDestinations collapses subscriptions to one destination per channel.
// The first subscription seen for a channel supplies its mentions.
func uniqueDestinations(subs []model.Subscription) []destination {
	seen := make(map[string]bool, len(subs))
	out := make([]destination, 0, len(subs))
	for _, s := range subs {
		if s.ChannelID == "" || seen[s.ChannelID] {
			continue
		}
		seen[s.ChannelID] = true
		out = append(out, destination{channelID: s.ChannelID, mentions: s.Mentions})
	}
	return out
}

// dispatchRun accumulates the outcome of one Dispatch call across goroutines.
type dispatchRun struct {
	kind model.Kind

	mu             sync.Mutex
	announcedCount int
	renderFailures int
	deliveries     int
	failures       int
	pruned         map[string]bool
	prunedOrder    []string
	errs           error
}

func (r *dispatchRun) delivered() {
	r.mu.Lock()
	r.deliveries++
	r.mu.Unlock()
}

func (r *dispatchRun) failed(err error) {
	r.mu.Lock()
	r.failures++
	r.errs = multierr.Append(r.errs, err)
	r.mu.Unlock()
}

func (r *dispatchRun) renderFailed(err error) {
	r.mu.Lock()
	r.renderFailures++
	r.errs = multierr.Append(r.errs, err)
	r.mu.Unlock()
}

func (r *dispatchRun) addErr(err error) {
	r.mu.Lock()
	r.errs = multierr.Append(r.errs, err)
	r.mu.Unlock()
}

func (r *dispatchRun) announced() {
	r.mu.Lock()
	r.announcedCount++
	r.mu.Unlock()
}

func (r *dispatchRun) isPruned(channelID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pruned[channelID]
}

// claimPrune returns true for the first caller that prunes a channel.
func (r *dispatchRun) claimPrune(channelID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pruned[channelID] {
		return false
	}
	r.pruned[channelID] = true
	r.prunedOrder = append(r.prunedOrder, channelID)
	return true
}

func (r *dispatchRun) finish(result *DispatchResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result.Announced = r.announcedCount
	result.RenderFailures = r.renderFailures
	result.Deliveries = r.deliveries
	result.Failures = r.failures
	result.PrunedChannels = append([]string(nil), r.prunedOrder...)
	result.Err = r.errs
}

// IsCanceled reports whether err stems from context cancellation or deadline.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
