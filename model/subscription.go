package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Kind identifies which stream of events a subscription listens to.
type Kind string

const (
	// KindGiveaway subscribes a channel to store giveaways.
	KindGiveaway Kind = "giveaway"

	// KindFreeToPlay subscribes a channel to newly listed free-to-play games.
	KindFreeToPlay Kind = "free-to-play"

	// KindGamePass subscribes a channel to Game Pass catalog additions.
	KindGamePass Kind = "game-pass"

	// KindPrice is a one-shot subscription that fires when a game drops below a target price.
	KindPrice Kind = "price"

	// KindLocalGiveaway subscribes a channel to the bot's own key giveaways.
	KindLocalGiveaway Kind = "local-giveaway"
)

// Lifecycle describes how long a subscription lives.
type Lifecycle int

const (
	// LifecycleStanding subscriptions stay until explicitly removed.
	LifecycleStanding Lifecycle = iota

	// LifecycleOneShot subscriptions are consumed the first time their condition holds.
	LifecycleOneShot
)

// String returns a readable lifecycle name.
func (l Lifecycle) String() string {
	if l == LifecycleOneShot {
		return "one-shot"
	}
	return "standing"
}

var kindTables = map[Kind]string{
	KindGiveaway:      "giveaway_alerts",
	KindFreeToPlay:    "freetoplay_alerts",
	KindGamePass:      "gamepass_alerts",
	KindPrice:         "price_alerts",
	KindLocalGiveaway: "localgiveaway_alerts",
}

var kindLabels = map[Kind]string{
	KindGiveaway:      "Giveaway",
	KindFreeToPlay:    "Free to Play",
	KindGamePass:      "Game Pass",
	KindPrice:         "Price",
	KindLocalGiveaway: "Local Giveaway",
}

// AllKinds returns every subscription kind in a stable order.
func AllKinds() []Kind {
	return []Kind{KindGiveaway, KindFreeToPlay, KindGamePass, KindLocalGiveaway, KindPrice}
}

// StandingKinds returns the kinds whose subscriptions are not consumed on match.
func StandingKinds() []Kind {
	var kinds []Kind
	for _, k := range AllKinds() {
		if k.Lifecycle() == LifecycleStanding {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// ParseKind converts user input into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("unknown subscription kind %q", s)
	}
	return k, nil
}

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	_, ok := kindTables[k]
	return ok
}

// Lifecycle returns LifecycleOneShot for price subscriptions and LifecycleStanding otherwise.
func (k Kind) Lifecycle() Lifecycle {
	if k == KindPrice {
		return LifecycleOneShot
	}
	return LifecycleStanding
}

// Table returns the base table name (without prefix) that stores subscriptions of this kind.
func (k Kind) Table() string {
	return kindTables[k]
}

// Label returns a human-readable kind name.
func (k Kind) Label() string {
	if label, ok := kindLabels[k]; ok {
		return label
	}
	return string(k)
}

// PriceTarget is the payload carried only by price subscriptions.
type PriceTarget struct {
	GameKey     string `json:"gameKey"`     // Opaque price-provider identifier
	DisplayName string `json:"displayName"` // Game title shown to users
	ImageURL    string `json:"imageURL"`    // Artwork shown in the notification
	TargetPrice int64  `json:"targetPrice"` // Fires when the current price drops below this value
}

// IsSatisfiedBy reports whether the target fires for the given current price.
// The comparison is strict: a current price equal to the target does not fire.
func (p PriceTarget) IsSatisfiedBy(current decimal.Decimal) bool {
	return decimal.NewFromInt(p.TargetPrice).GreaterThan(current)
}

// namePrefixLength is how many characters of the display name identify a price subscription.
const namePrefixLength = 10

// NamePrefix returns the leading characters of the display name used for matching deletes.
func (p PriceTarget) NamePrefix() string {
	return truncateRunes(p.DisplayName, namePrefixLength)
}

// Subscription is a standing or one-shot request to notify a channel.
//
// A subscription belongs to exactly one server and one channel for its whole life;
// moving it means deleting and recreating it.
type Subscription struct {
	ID        int64        `json:"id"`
	ServerID  string       `json:"serverID"`
	ChannelID string       `json:"channelID"`
	UserID    string       `json:"userID"` // User who created the subscription
	Kind      Kind         `json:"kind"`
	Mentions  Mentions     `json:"mentions,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	Price     *PriceTarget `json:"price,omitempty"` // Set only for KindPrice
}

// NewSubscription creates a standing subscription of the given kind.
func NewSubscription(kind Kind, serverID, channelID, userID string, mentions Mentions) Subscription {
	return Subscription{
		ServerID:  serverID,
		ChannelID: channelID,
		UserID:    userID,
		Kind:      kind,
		Mentions:  mentions,
		CreatedAt: time.Now(),
	}
}

// NewPriceSubscription creates a one-shot price subscription.
func NewPriceSubscription(serverID, channelID, userID string, target PriceTarget, mentions Mentions) Subscription {
	sub := NewSubscription(KindPrice, serverID, channelID, userID, mentions)
	sub.Price = &target
	return sub
}

// Lifecycle returns the lifecycle of the subscription's kind.
func (s Subscription) Lifecycle() Lifecycle {
	return s.Kind.Lifecycle()
}

// IsOneShot reports whether the subscription is consumed when it fires.
func (s Subscription) IsOneShot() bool {
	return s.Lifecycle() == LifecycleOneShot
}

// PriceAlertKey identifies price subscriptions that are indistinguishable to a user:
// same channel, same leading characters of the game name, same target price.
type PriceAlertKey struct {
	ChannelID   string `json:"channel"`
	NamePrefix  string `json:"gameName"`
	TargetPrice int64  `json:"price"`
}

// PriceKey returns the composed key of a price subscription.
// The second result is false for subscriptions without a price payload.
func (s Subscription) PriceKey() (PriceAlertKey, bool) {
	if s.Price == nil {
		return PriceAlertKey{}, false
	}
	return PriceAlertKey{
		ChannelID:   s.ChannelID,
		NamePrefix:  s.Price.NamePrefix(),
		TargetPrice: s.Price.TargetPrice,
	}, true
}

// Matches reports whether sub is a price subscription described by the key.
func (k PriceAlertKey) Matches(sub Subscription) bool {
	if sub.Price == nil {
		return false
	}
	return sub.ChannelID == k.ChannelID &&
		strings.HasPrefix(sub.Price.DisplayName, k.NamePrefix) &&
		sub.Price.TargetPrice == k.TargetPrice
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
