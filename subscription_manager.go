package gamealert

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/coregx/gamealert/model"
)

// SubscriptionManager handles the subscription operations exposed to the command layer.
//
// Key operations:
//   - CreateSubscription: add a standing alert after the quota check
//   - CreatePriceSubscription: add a one-shot price alert after the quota check
//   - DeleteSubscriptions: remove a kind from a server, optionally narrowed by a filter
//   - ListSubscriptions: every alert of a server
//   - CheckQuota: the quota decision alone
//
// Every command that reaches the manager is reported to the usage stream.
//
// Thread safety: Safe for concurrent use.
type SubscriptionManager struct {
	subscriptions SubscriptionRepository
	quota         *QuotaPolicy
	logger        Logger
	diagnostics   DiagnosticsReporter
}

// SubscriptionManagerOption is a function that configures a SubscriptionManager.
type SubscriptionManagerOption func(*SubscriptionManager) error

// NewSubscriptionManager creates a new SubscriptionManager with the provided options.
//
// Required options:
//   - WithManagerSubscriptions: subscription repository
//   - WithManagerQuota: quota policy
//   - WithManagerLogger: logger instance
//
// Example:
//
//	manager, err := gamealert.NewSubscriptionManager(
//	    gamealert.WithManagerSubscriptions(repos.Subscription),
//	    gamealert.WithManagerQuota(quota),
//	    gamealert.WithManagerLogger(logger),
//	)
func NewSubscriptionManager(opts ...SubscriptionManagerOption) (*SubscriptionManager, error) {
	sm := &SubscriptionManager{diagnostics: &NoOpDiagnostics{}}

	for _, opt := range opts {
		if err := opt(sm); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply subscription manager option", err)
		}
	}

	if sm.subscriptions == nil {
		return nil, NewError(ErrCodeConfiguration, "SubscriptionRepository is required (use WithManagerSubscriptions)")
	}
	if sm.quota == nil {
		return nil, NewError(ErrCodeConfiguration, "QuotaPolicy is required (use WithManagerQuota)")
	}
	if sm.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithManagerLogger)")
	}

	return sm, nil
}

// WithManagerSubscriptions sets the subscription repository.
//
// This is a required option for NewSubscriptionManager.
func WithManagerSubscriptions(repo SubscriptionRepository) SubscriptionManagerOption {
	return func(sm *SubscriptionManager) error {
		if repo == nil {
			return fmt.Errorf("subscription repository cannot be nil")
		}
		sm.subscriptions = repo
		return nil
	}
}

// WithManagerQuota sets the quota policy consulted before every creation.
//
// This is a required option for NewSubscriptionManager.
func WithManagerQuota(policy *QuotaPolicy) SubscriptionManagerOption {
	return func(sm *SubscriptionManager) error {
		if policy == nil {
			return fmt.Errorf("quota policy cannot be nil")
		}
		sm.quota = policy
		return nil
	}
}

// WithManagerLogger sets the logger instance for the subscription manager.
// Logger is required and must not be nil.
//
// This is a required option for NewSubscriptionManager.
func WithManagerLogger(logger Logger) SubscriptionManagerOption {
	return func(sm *SubscriptionManager) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		sm.logger = logger
		return nil
	}
}

// WithManagerDiagnostics sets the reporter that receives command usage.
func WithManagerDiagnostics(reporter DiagnosticsReporter) SubscriptionManagerOption {
	return func(sm *SubscriptionManager) error {
		if reporter == nil {
			return fmt.Errorf("diagnostics reporter cannot be nil")
		}
		sm.diagnostics = reporter
		return nil
	}
}

// CreateSubscription creates a standing subscription.
//
// Returns a *QuotaDeniedError when the quota policy denies the request; use
// IsQuotaDenied to read the user-facing reason.
func (sm *SubscriptionManager) CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (*model.Subscription, error) {
	if err := req.Validate(); err != nil {
		return nil, NewErrorWithCause(ErrCodeValidation, "invalid subscription request", err)
	}

	sm.reportUsage(ctx, "alert add", req.ServerID, req.ChannelID, req.UserID,
		model.KeyValue{Key: "Type", Value: req.Kind.Label()})

	if err := sm.enforceQuota(ctx, req.ServerID, req.UserID); err != nil {
		return nil, err
	}

	saved, err := sm.subscriptions.Save(ctx, model.NewSubscription(req.Kind, req.ServerID, req.ChannelID, req.UserID, req.Mentions))
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to save subscription", err)
	}

	sm.logger.Infof("Created %s subscription %d: server=%s, channel=%s", saved.Kind, saved.ID, saved.ServerID, saved.ChannelID)
	return &saved, nil
}

// CreatePriceSubscription creates a one-shot price subscription.
//
// Returns a *QuotaDeniedError when the quota policy denies the request.
func (sm *SubscriptionManager) CreatePriceSubscription(ctx context.Context, req CreatePriceSubscriptionRequest) (*model.Subscription, error) {
	if err := req.Validate(); err != nil {
		return nil, NewErrorWithCause(ErrCodeValidation, "invalid price subscription request", err)
	}

	sm.reportUsage(ctx, "alert price", req.ServerID, req.ChannelID, req.UserID,
		model.KeyValue{Key: "Game", Value: req.DisplayName},
		model.KeyValue{Key: "Price", Value: strconv.FormatInt(req.TargetPrice, 10)})

	if err := sm.enforceQuota(ctx, req.ServerID, req.UserID); err != nil {
		return nil, err
	}

	sub := model.NewPriceSubscription(req.ServerID, req.ChannelID, req.UserID, req.Target(), req.Mentions)
	saved, err := sm.subscriptions.Save(ctx, sub)
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to save price subscription", err)
	}

	sm.logger.Infof("Created price subscription %d: game=%s, target=%d, channel=%s",
		saved.ID, req.GameKey, req.TargetPrice, saved.ChannelID)
	return &saved, nil
}

// DeleteSubscriptions deletes the server's subscriptions of one kind.
// A nil or empty filter deletes every subscription of the kind in the server;
// otherwise only exact matches are removed. Returns the number deleted.
func (sm *SubscriptionManager) DeleteSubscriptions(ctx context.Context, serverID string, kind model.Kind, filter *DeleteFilter) (int, error) {
	if serverID == "" {
		return 0, NewError(ErrCodeValidation, "server ID is required")
	}
	if !kind.IsValid() {
		return 0, NewError(ErrCodeValidation, fmt.Sprintf("unknown subscription kind %q", kind))
	}

	var f DeleteFilter
	if filter != nil {
		f = *filter
	}

	sm.reportUsage(ctx, "alert remove", serverID, f.ChannelID, "", model.KeyValue{Key: "Type", Value: kind.Label()})

	removed, err := sm.subscriptions.DeleteMatching(ctx, serverID, kind, f)
	if err != nil {
		return 0, NewErrorWithCause(ErrCodeDatabase, "failed to delete subscriptions", err)
	}

	sm.logger.Infof("Deleted %d %s subscriptions in server %s", removed, kind, serverID)
	return removed, nil
}

// ListSubscriptions returns every subscription of the server, oldest first.
func (sm *SubscriptionManager) ListSubscriptions(ctx context.Context, serverID string) ([]model.Subscription, error) {
	if serverID == "" {
		return nil, NewError(ErrCodeValidation, "server ID is required")
	}

	subs, err := sm.subscriptions.ListByServer(ctx, serverID)
	if err != nil {
		if IsNoData(err) {
			return []model.Subscription{}, nil
		}
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to list subscriptions", err)
	}

	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].CreatedAt.Before(subs[j].CreatedAt)
	})
	return subs, nil
}

// CheckQuota returns the quota decision without creating anything.
func (sm *SubscriptionManager) CheckQuota(ctx context.Context, serverID, userID string) (Decision, error) {
	return sm.quota.Check(ctx, serverID, userID)
}

// PriceAlertKeys returns the distinct price keys of the server's price subscriptions,
// in the order they were created. Each key can be turned into a delete filter
// with FilterFromPriceKey.
func (sm *SubscriptionManager) PriceAlertKeys(ctx context.Context, serverID string) ([]model.PriceAlertKey, error) {
	subs, err := sm.ListSubscriptions(ctx, serverID)
	if err != nil {
		return nil, err
	}
	return DistinctPriceKeys(subs), nil
}

// DistinctPriceKeys collapses price subscriptions to their composed keys.
func DistinctPriceKeys(subs []model.Subscription) []model.PriceAlertKey {
	seen := make(map[model.PriceAlertKey]bool)
	keys := make([]model.PriceAlertKey, 0)
	for _, s := range subs {
		key, ok := s.PriceKey()
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}

func (sm *SubscriptionManager) enforceQuota(ctx context.Context, serverID, userID string) error {
	decision, err := sm.quota.Check(ctx, serverID, userID)
	if err != nil && decision.Reason == "" {
		return NewErrorWithCause(ErrCodeDatabase, "failed to check quota", err)
	}
	if err != nil {
		sm.logger.Warnf("Quota check degraded for server %s: %v", serverID, err)
	}
	if !decision.Allowed {
		return &QuotaDeniedError{Decision: decision}
	}
	return nil
}

func (sm *SubscriptionManager) reportUsage(ctx context.Context, command, serverID, channelID, userID string, choices ...model.KeyValue) {
	usage := CommandUsage{
		Command:   command,
		ServerID:  serverID,
		ChannelID: channelID,
		UserID:    userID,
		Choices:   choices,
	}
	if err := sm.diagnostics.ReportCommandUsage(ctx, usage); err != nil {
		sm.logger.Warnf("Failed to report command usage: %v", err)
	}
}
