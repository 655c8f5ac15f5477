package gamealert

import (
	"context"
	"strings"
	"time"

	"github.com/coregx/gamealert/model"
)

// DeleteFilter narrows DeleteMatching to exact matches.
// Empty fields do not filter.
type DeleteFilter struct {
	ChannelID   string // Only subscriptions in this channel
	NamePrefix  string // Only price subscriptions whose display name starts with this prefix
	TargetPrice *int64 // Only price subscriptions with exactly this target
}

// IsEmpty reports whether the filter matches everything.
func (f DeleteFilter) IsEmpty() bool {
	return f.ChannelID == "" && f.NamePrefix == "" && f.TargetPrice == nil
}

// FilterFromPriceKey builds the filter that deletes subscriptions sharing a price key.
func FilterFromPriceKey(key model.PriceAlertKey) DeleteFilter {
	price := key.TargetPrice
	return DeleteFilter{ChannelID: key.ChannelID, NamePrefix: key.NamePrefix, TargetPrice: &price}
}

// Matches reports whether the subscription passes the filter.
func (f DeleteFilter) Matches(sub model.Subscription) bool {
	if f.ChannelID != "" && sub.ChannelID != f.ChannelID {
		return false
	}
	if f.NamePrefix == "" && f.TargetPrice == nil {
		return true
	}
	if sub.Price == nil {
		return false
	}
	if f.TargetPrice != nil && sub.Price.TargetPrice != *f.TargetPrice {
		return false
	}
	return strings.HasPrefix(sub.Price.DisplayName, f.NamePrefix)
}

// SubscriptionRepository defines the persistence interface for subscriptions of every kind.
//
// Implementations must be safe for concurrent use. All mutations are single-row or
// narrowly filtered multi-row statements.
type SubscriptionRepository interface {
	// Save inserts a new subscription and returns it with its generated ID.
	Save(ctx context.Context, sub model.Subscription) (model.Subscription, error)

	// ListByServer returns every subscription of the server, across all kinds.
	// Returns an empty slice if none found.
	ListByServer(ctx context.Context, serverID string) ([]model.Subscription, error)

	// ListByKind returns every subscription of one kind across all servers.
	// Returns an empty slice if none found.
	ListByKind(ctx context.Context, kind model.Kind) ([]model.Subscription, error)

	// CountByServer counts the server's subscriptions of the given kinds.
	CountByServer(ctx context.Context, serverID string, kinds ...model.Kind) (int, error)

	// DeleteMatching deletes the server's subscriptions of one kind that pass the filter.
	// Returns the number of deleted rows.
	DeleteMatching(ctx context.Context, serverID string, kind model.Kind, filter DeleteFilter) (int, error)

	// DeleteByChannel removes the channel from every kind. Returns the number of deleted rows.
	DeleteByChannel(ctx context.Context, channelID string) (int, error)

	// Delete removes one subscription by kind and id.
	// Returns ErrNoData if it was already gone.
	Delete(ctx context.Context, kind model.Kind, id int64) error

	// CountChannels returns the number of distinct subscribed channels and servers.
	CountChannels(ctx context.Context) (channels, servers int, err error)
}

// CandidateRepository reads one event-source table and flips its announced flag.
type CandidateRepository interface {
	// FindUnannounced returns every row with announced = false.
	// Returns an empty slice if none found.
	FindUnannounced(ctx context.Context) ([]Candidate, error)

	// MarkAnnounced sets announced = true on a single row.
	MarkAnnounced(ctx context.Context, candidateID string) error
}

// LocalGiveawayRepository defines the persistence interface for the bot's own giveaways.
type LocalGiveawayRepository interface {
	// Save inserts a new giveaway and returns it with its generated ID.
	Save(ctx context.Context, g model.LocalGiveaway) (model.LocalGiveaway, error)

	// FindUnannounced returns giveaways not yet announced.
	FindUnannounced(ctx context.Context) ([]model.LocalGiveaway, error)

	// MarkAnnounced sets announced = true on one giveaway.
	MarkAnnounced(ctx context.Context, id int64) error

	// FindPendingDraws returns giveaways with end_time <= now and no winner,
	// ordered by end_time ASC, id ASC.
	FindPendingDraws(ctx context.Context, now time.Time) ([]model.LocalGiveaway, error)

	// SetWinner records the winner only if none is recorded yet.
	// Returns ErrNoData if the giveaway is missing or already has a winner.
	SetWinner(ctx context.Context, id int64, userID string) error
}
