package gamealert

import (
	"context"

	"github.com/coregx/gamealert/model"
)

// ChatPlatform resolves destinations on the chat platform.
//
// Implementations must return errors wrapping ErrChannelNotFound, ErrForbidden or
// ErrUserNotFound so callers can tell a dead destination from a transient failure.
type ChatPlatform interface {
	// FetchChannel resolves a channel by id.
	FetchChannel(ctx context.Context, channelID string) (Channel, error)

	// GetOrFetchUser resolves a user by id, using a cache when one is available.
	GetOrFetchUser(ctx context.Context, userID string) (User, error)
}

// Channel is a resolved destination channel.
type Channel interface {
	ID() string

	// Send delivers an announcement to the channel.
	Send(ctx context.Context, a *model.Announcement) error
}

// User is a resolved chat user that can receive private messages.
type User interface {
	ID() string

	// Send delivers an announcement as a direct message.
	Send(ctx context.Context, a *model.Announcement) error
}

// PresenceUpdater publishes the bot's status text.
type PresenceUpdater interface {
	UpdatePresence(ctx context.Context, text string) error
}

// ReputationService answers vote-status questions.
type ReputationService interface {
	// QualifyingVoters returns the users currently eligible for rewards.
	QualifyingVoters(ctx context.Context) ([]string, error)

	// HasQualifyingStatus reports whether the user currently holds a vote.
	HasQualifyingStatus(ctx context.Context, userID string) (bool, error)
}

// PriceProvider fetches live market prices.
type PriceProvider interface {
	// FetchOverview returns price data keyed by game key.
	// Keys without data are omitted from the result.
	FetchOverview(ctx context.Context, gameKeys []string) (map[string]model.PriceOverview, error)
}

// StoreCatalog fetches store metadata for local giveaway announcements.
type StoreCatalog interface {
	AppDetails(ctx context.Context, appID int64) (model.AppDetails, error)
}

// Candidate is one row awaiting announcement.
//
// Render produces the channel-agnostic payload. Some kinds render from the row alone,
// others fetch additional data; the dispatcher treats both the same way.
type Candidate interface {
	CandidateID() string
	Render(ctx context.Context) (*model.Announcement, error)
}
