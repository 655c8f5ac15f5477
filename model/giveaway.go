package model

import (
	"context"
	"strconv"
)

// Giveaway is a store giveaway ingested from GamerPower.
type Giveaway struct {
	ID              int64  `json:"id" db:"id"`
	Title           string `json:"title" db:"title"`
	Worth           string `json:"worth" db:"worth"`
	Thumbnail       string `json:"thumbnail" db:"thumbnail"`
	Image           string `json:"image" db:"image"`
	Description     string `json:"description" db:"description"`
	Instructions    string `json:"instructions" db:"instructions"`
	OpenGiveawayURL string `json:"openGiveawayURL" db:"open_giveaway_url"`
	PublishedDate   string `json:"publishedDate" db:"published_date"`
	Type            string `json:"type" db:"type"`
	Platforms       string `json:"platforms" db:"platforms"`
	EndDate         string `json:"endDate" db:"end_date"`
	Users           int64  `json:"users" db:"users"`
	Status          string `json:"status" db:"status"`
	GamerPowerURL   string `json:"gamerpowerURL" db:"gamerpower_url"`
	OpenGiveaway    string `json:"openGiveaway" db:"open_giveaway"`
	Announced       bool   `json:"announced" db:"announced"`
}

// TableName returns the database table name for Giveaway.
func (g Giveaway) TableName() string {
	return "gamerpower"
}

// CandidateID returns the row id as a string.
func (g Giveaway) CandidateID() string {
	return strconv.FormatInt(g.ID, 10)
}

// Render builds the giveaway announcement.
func (g Giveaway) Render(_ context.Context) (*Announcement, error) {
	a := NewAnnouncement("New Giveaway: " + g.Title)
	a.AddListedField("Giveaway Info",
		KeyValue{"Giveaway Type", g.Type},
		KeyValue{"Worth", g.Worth},
		KeyValue{"Offer Ends", g.EndDate},
		KeyValue{"Link", MarkdownLink("GamerPower.com", g.OpenGiveaway)},
	)
	a.AddTextField("Description", g.Description)
	a.AddCallToAction()
	a.ImageURL = g.Image
	return a, nil
}
