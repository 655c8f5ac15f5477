package model

import "context"

// GamePassTitle is a Game Pass catalog addition. Its id is the store product id.
type GamePassTitle struct {
	ID          string `json:"id" db:"id"`
	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`
	ImageURL    string `json:"imageURL" db:"image_url"`
	Developer   string `json:"developer" db:"developer"`
	Publisher   string `json:"publisher" db:"publisher"`
	Category    string `json:"category" db:"category"`
	URL         string `json:"url" db:"url"`
	Status      string `json:"status" db:"status"`
	Announced   bool   `json:"announced" db:"announced"`
}

// TableName returns the database table name for GamePassTitle.
func (g GamePassTitle) TableName() string {
	return "gamepass"
}

// CandidateID returns the product id.
func (g GamePassTitle) CandidateID() string {
	return g.ID
}

// Render builds the Game Pass announcement.
func (g GamePassTitle) Render(_ context.Context) (*Announcement, error) {
	a := NewAnnouncement("New on Game Pass: " + g.Title)
	a.AddListedField("Game Info",
		KeyValue{"Genre", g.Category},
		KeyValue{"Developer", g.Developer},
		KeyValue{"Publisher", g.Publisher},
		KeyValue{"Link", MarkdownLink("Xbox.com", g.URL)},
	)
	a.AddTextField("Description", g.Description)
	a.AddCallToAction()
	a.ImageURL = g.ImageURL
	return a, nil
}
