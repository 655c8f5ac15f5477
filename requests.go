package gamealert

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/coregx/gamealert/model"
)

// CreateSubscriptionRequest asks for a standing subscription.
type CreateSubscriptionRequest struct {
	Kind      model.Kind     `json:"kind"`
	ServerID  string         `json:"serverID"`
	ChannelID string         `json:"channelID"`
	UserID    string         `json:"userID"`
	Mentions  model.Mentions `json:"mentions,omitempty"`
}

func (m CreateSubscriptionRequest) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Kind, validation.Required, validation.By(standingKind)),
		validation.Field(&m.ServerID, validation.Required, is.Digit),
		validation.Field(&m.ChannelID, validation.Required, is.Digit),
		validation.Field(&m.UserID, validation.Required, is.Digit),
		validation.Field(&m.Mentions, validation.Length(0, 25)),
	)
}

// CreatePriceSubscriptionRequest asks for a one-shot price subscription.
type CreatePriceSubscriptionRequest struct {
	ServerID    string         `json:"serverID"`
	ChannelID   string         `json:"channelID"`
	UserID      string         `json:"userID"`
	GameKey     string         `json:"gameKey"`
	DisplayName string         `json:"displayName"`
	ImageURL    string         `json:"imageURL"`
	TargetPrice int64          `json:"targetPrice"`
	Mentions    model.Mentions `json:"mentions,omitempty"`
}

func (m CreatePriceSubscriptionRequest) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ServerID, validation.Required, is.Digit),
		validation.Field(&m.ChannelID, validation.Required, is.Digit),
		validation.Field(&m.UserID, validation.Required, is.Digit),
		validation.Field(&m.GameKey, validation.Required, validation.Length(1, 255)),
		validation.Field(&m.DisplayName, validation.Required, validation.Length(1, 255)),
		validation.Field(&m.ImageURL, is.URL),
		validation.Field(&m.TargetPrice, validation.Min(int64(0))),
		validation.Field(&m.Mentions, validation.Length(0, 25)),
	)
}

// Target returns the price target described by the request.
func (m CreatePriceSubscriptionRequest) Target() model.PriceTarget {
	return model.PriceTarget{
		GameKey:     m.GameKey,
		DisplayName: m.DisplayName,
		ImageURL:    m.ImageURL,
		TargetPrice: m.TargetPrice,
	}
}

// CreateLocalGiveawayRequest registers a key the bot gives away itself.
type CreateLocalGiveawayRequest struct {
	AppID int64  `json:"appID"`
	Key   string `json:"key"`
}

func (m CreateLocalGiveawayRequest) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.AppID, validation.Required, validation.Min(int64(1))),
		validation.Field(&m.Key, validation.Required, validation.Length(5, 64)),
	)
}

func standingKind(value interface{}) error {
	k, _ := value.(model.Kind)
	if !k.IsValid() {
		return validation.NewError("validation_kind_unknown", "must be a known alert kind")
	}
	if k.Lifecycle() != model.LifecycleStanding {
		return validation.NewError("validation_kind_one_shot", "price alerts are created with a target price")
	}
	return nil
}
