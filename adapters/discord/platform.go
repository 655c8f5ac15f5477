// Package discord implements gamealert.ChatPlatform and gamealert.PresenceUpdater on discordgo.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/coregx/gamealert"
	"github.com/coregx/gamealert/model"
)

// session is the subset of *discordgo.Session the platform uses.
type session interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UpdateCustomStatus(state string) error
}

// Platform delivers announcements through a Discord bot session.
type Platform struct {
	session session

	mu    sync.RWMutex
	users map[string]*discordgo.User
}

// NewPlatform wraps an opened session.
func NewPlatform(s *discordgo.Session) *Platform {
	return newPlatform(s)
}

func newPlatform(s session) *Platform {
	return &Platform{session: s, users: make(map[string]*discordgo.User)}
}

// FetchChannel resolves a channel by id.
func (p *Platform) FetchChannel(ctx context.Context, channelID string) (gamealert.Channel, error) {
	ch, err := p.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify(err, gamealert.ErrChannelNotFound)
	}
	return &channel{session: p.session, id: ch.ID}, nil
}

// GetOrFetchUser resolves a user, caching users already seen.
func (p *Platform) GetOrFetchUser(ctx context.Context, userID string) (gamealert.User, error) {
	p.mu.RLock()
	u, ok := p.users[userID]
	p.mu.RUnlock()

	if !ok {
		var err error
		u, err = p.session.User(userID, discordgo.WithContext(ctx))
		if err != nil {
			return nil, classify(err, gamealert.ErrUserNotFound)
		}
		p.mu.Lock()
		p.users[userID] = u
		p.mu.Unlock()
	}
	return &user{session: p.session, id: u.ID}, nil
}

// UpdatePresence sets the bot's custom status.
func (p *Platform) UpdatePresence(_ context.Context, text string) error {
	if err := p.session.UpdateCustomStatus(text); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return nil
}

type channel struct {
	session session
	id      string
}

func (c *channel) ID() string { return c.id }

func (c *channel) Send(ctx context.Context, a *model.Announcement) error {
	_, err := c.session.ChannelMessageSendComplex(c.id, MessageSend(a), discordgo.WithContext(ctx))
	if err != nil {
		return classify(err, gamealert.ErrChannelNotFound)
	}
	return nil
}

type user struct {
	session session
	id      string
}

func (u *user) ID() string { return u.id }

func (u *user) Send(ctx context.Context, a *model.Announcement) error {
	dm, err := u.session.UserChannelCreate(u.id, discordgo.WithContext(ctx))
	if err != nil {
		return classify(err, gamealert.ErrUserNotFound)
	}
	if _, err := u.session.ChannelMessageSendComplex(dm.ID, MessageSend(a), discordgo.WithContext(ctx)); err != nil {
		return classify(err, gamealert.ErrUserNotFound)
	}
	return nil
}

// classify maps Discord REST errors onto the delivery sentinels.
// notFound is the sentinel used for "unknown" responses.
func classify(err error, notFound error) error {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return gamealert.NewErrorWithCause(gamealert.ErrCodeDelivery, "discord request failed", err)
	}

	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownChannel:
			return fmt.Errorf("%w: %v", gamealert.ErrChannelNotFound, err)
		case discordgo.ErrCodeUnknownUser:
			return fmt.Errorf("%w: %v", gamealert.ErrUserNotFound, err)
		case discordgo.ErrCodeMissingAccess,
			discordgo.ErrCodeMissingPermissions,
			discordgo.ErrCodeCannotSendMessagesToThisUser:
			return fmt.Errorf("%w: %v", gamealert.ErrForbidden, err)
		}
	}
	if restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", notFound, err)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %v", gamealert.ErrForbidden, err)
		}
	}
	return gamealert.NewErrorWithCause(gamealert.ErrCodeDelivery, "discord request failed", err)
}
