package model

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// LocalGiveawayDuration is how long a new local giveaway stays open.
const LocalGiveawayDuration = 7 * 24 * time.Hour

// LocalGiveawayThumbnail is the badge shown on local giveaway announcements.
const LocalGiveawayThumbnail = "https://i.imgur.com/CnFIoS3.png"

// LocalGiveaway is a game key the bot gives away to one of its voters.
//
// Lifecycle:
//  1. Created with an end time one week out and no winner
//  2. Announced to local-giveaway subscribers
//  3. After EndTime, the reward draw picks a voter and records Winner exactly once
type LocalGiveaway struct {
	ID           int64          `json:"id" db:"id"`
	AppID        int64          `json:"appID" db:"appid"`
	Key          string         `json:"-" db:"game_key"` // Store key handed to the winner
	CreationTime time.Time      `json:"creationTime" db:"creation_time"`
	EndTime      time.Time      `json:"endTime" db:"end_time"`
	Winner       sql.NullString `json:"winner" db:"winner"`
	Announced    bool           `json:"announced" db:"announced"`
}

// TableName returns the database table name for LocalGiveaway.
func (g LocalGiveaway) TableName() string {
	return "local_giveaways"
}

// NewLocalGiveaway creates a giveaway for the given store app that closes in one week.
func NewLocalGiveaway(appID int64, key string) LocalGiveaway {
	now := time.Now()
	return LocalGiveaway{
		AppID:        appID,
		Key:          key,
		CreationTime: now,
		EndTime:      now.Add(LocalGiveawayDuration),
	}
}

// CandidateID returns the row id as a string.
func (g LocalGiveaway) CandidateID() string {
	return strconv.FormatInt(g.ID, 10)
}

// HasWinner reports whether the draw already completed.
func (g LocalGiveaway) HasWinner() bool {
	return g.Winner.Valid && g.Winner.String != ""
}

// IsPendingDraw reports whether the giveaway has ended and still needs a winner.
func (g LocalGiveaway) IsPendingDraw(now time.Time) bool {
	return !g.HasWinner() && !g.EndTime.After(now)
}

// SetWinner records the winner. It is a no-op when a winner is already set.
func (g *LocalGiveaway) SetWinner(userID string) {
	if g.HasWinner() {
		return
	}
	g.Winner = sql.NullString{String: userID, Valid: true}
}

// StorePageURL returns the store page of the app being given away.
func (g LocalGiveaway) StorePageURL() string {
	return fmt.Sprintf("https://store.steampowered.com/app/%d/", g.AppID)
}

// Announcement builds the giveaway announcement from store details.
func (g LocalGiveaway) Announcement(details AppDetails) *Announcement {
	a := NewAnnouncement("Giveaway: " + details.Name)
	a.AddListedField("Game Info",
		KeyValue{"Price", details.PriceFormatted},
		KeyValue{"Reviews", details.ReviewSummary},
		KeyValue{"Steam Page", MarkdownLink("Link", g.StorePageURL())},
	)
	howToWin := "- " + MarkdownLink("Vote on Top.gg", VoteURL) + "\n" +
		"- Increase your chances by voting often.\n" +
		"- Votes are reset each month.\n" +
		"- Winner receives Steam key via DM " + RelativeTimestamp(g.EndTime) + "\n"
	a.AddTextField("How to Win", howToWin)
	a.AddCallToAction()
	a.ImageURL = details.HeaderImage
	a.ThumbnailURL = LocalGiveawayThumbnail
	return a
}

// PrizeMessage builds the direct message sent to the winner.
func (g LocalGiveaway) PrizeMessage(gameName string) *Announcement {
	if gameName == "" {
		gameName = fmt.Sprintf("app %d", g.AppID)
	}
	a := NewAnnouncement("You won: " + gameName)
	a.Description = "Thanks for voting! Here is your Steam key."
	a.AddListedField("Prize",
		KeyValue{"Key", g.Key},
		KeyValue{"Redeem", MarkdownLink("Steam", "https://store.steampowered.com/account/registerkey?key="+g.Key)},
	)
	a.URL = g.StorePageURL()
	return a
}

// AppDetails is the subset of store catalog data shown in local giveaway announcements.
type AppDetails struct {
	AppID          int64  `json:"appID"`
	Name           string `json:"name"`
	HeaderImage    string `json:"headerImage"`
	PriceFormatted string `json:"priceFormatted"`
	ReviewSummary  string `json:"reviewSummary"`
}
