package model

import (
	"context"
	"strconv"
)

// FreeToPlayGame is a free-to-play listing ingested from FreeToGame.
type FreeToPlayGame struct {
	ID                   int64  `json:"id" db:"id"`
	Title                string `json:"title" db:"title"`
	Thumbnail            string `json:"thumbnail" db:"thumbnail"`
	ShortDescription     string `json:"shortDescription" db:"short_description"`
	GameURL              string `json:"gameURL" db:"game_url"`
	Genre                string `json:"genre" db:"genre"`
	Platform             string `json:"platform" db:"platform"`
	Publisher            string `json:"publisher" db:"publisher"`
	Developer            string `json:"developer" db:"developer"`
	ReleaseDate          string `json:"releaseDate" db:"release_date"`
	FreeToGameProfileURL string `json:"freetogameProfileURL" db:"freetogame_profile_url"`
	Announced            bool   `json:"announced" db:"announced"`
}

// TableName returns the database table name for FreeToPlayGame.
func (g FreeToPlayGame) TableName() string {
	return "free_to_game"
}

// CandidateID returns the row id as a string.
func (g FreeToPlayGame) CandidateID() string {
	return strconv.FormatInt(g.ID, 10)
}

// Render builds the free-to-play announcement.
func (g FreeToPlayGame) Render(_ context.Context) (*Announcement, error) {
	a := NewAnnouncement("New F2P Game: " + g.Title)
	a.AddListedField("Game Info",
		KeyValue{"Genre", g.Genre},
		KeyValue{"Platform", g.Platform},
		KeyValue{"Release Date", g.ReleaseDate},
		KeyValue{"Link", MarkdownLink("FreeToGame.com", g.FreeToGameProfileURL)},
	)
	a.AddTextField("Description", g.ShortDescription)
	a.AddCallToAction()
	a.ImageURL = g.Thumbnail
	return a, nil
}
