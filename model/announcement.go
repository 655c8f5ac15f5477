package model

import (
	"fmt"
	"strings"
	"time"
)

// ColorAlert is the embed color used for every alert (red).
const ColorAlert = 0xE74C3C

// maxFieldText caps free-text field values well under the chat platform's 1024 limit.
const maxFieldText = 1000

// Call-to-action links appended to every announcement.
const (
	VoteURL          = "https://top.gg/bot/1028073862597967932/vote"
	InviteURL        = "https://discord.com/api/oauth2/authorize?client_id=1028073862597967932&permissions=2147485696&scope=bot%20applications.commands"
	SupportServerURL = "https://discord.gg/KyKu575sg2"
)

// Field is one titled block of an announcement.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// KeyValue is one line of a listed field.
type KeyValue struct {
	Key   string
	Value string
}

// Announcement is a channel-agnostic message payload.
// Chat adapters translate it into their native embed format.
type Announcement struct {
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	URL          string    `json:"url,omitempty"`
	Color        int       `json:"color"`
	Timestamp    time.Time `json:"timestamp"`
	ImageURL     string    `json:"imageURL,omitempty"`
	ThumbnailURL string    `json:"thumbnailURL,omitempty"`
	Fields       []Field   `json:"fields,omitempty"`
	Footer       string    `json:"footer,omitempty"`

	// Content is plain text sent alongside the embed (mentions, raw traces).
	Content string `json:"content,omitempty"`

	// Mentions lists the ids Content is allowed to ping.
	Mentions Mentions `json:"mentions,omitempty"`
}

// NewAnnouncement creates an alert-colored announcement stamped with the current time.
func NewAnnouncement(title string) *Announcement {
	return &Announcement{
		Title:     title,
		Color:     ColorAlert,
		Timestamp: time.Now(),
	}
}

// AddListedField appends a field rendered as "key: `value`" lines under an underlined name.
// Values that already contain a link or a timestamp tag are not wrapped in code spans.
func (a *Announcement) AddListedField(name string, values ...KeyValue) *Announcement {
	lines := make([]string, 0, len(values))
	for _, kv := range values {
		if strings.Contains(kv.Value, "](") || strings.Contains(kv.Value, "<t:") {
			lines = append(lines, fmt.Sprintf("%s: %s", kv.Key, kv.Value))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: `%s`", kv.Key, kv.Value))
	}
	a.Fields = append(a.Fields, Field{Name: "__" + name + "__", Value: strings.Join(lines, "\n")})
	return a
}

// AddTextField appends a free-text field truncated to 1000 characters.
func (a *Announcement) AddTextField(name, text string) *Announcement {
	a.Fields = append(a.Fields, Field{Name: "__" + name + "__", Value: truncateRunes(text, maxFieldText)})
	return a
}

// AddCallToAction appends the standard "Support Us" field.
func (a *Announcement) AddCallToAction() *Announcement {
	value := fmt.Sprintf("[Vote](%s) | [Invite](%s) | [Support Server](%s)", VoteURL, InviteURL, SupportServerURL)
	return a.AddTextField("Support Us", value)
}

// WithMentions returns a copy of the announcement that pings the given ids.
// The receiver is left untouched so one rendered payload can be shared across destinations.
func (a *Announcement) WithMentions(m Mentions) *Announcement {
	if len(m) == 0 {
		return a
	}
	cp := *a
	cp.Fields = append([]Field(nil), a.Fields...)
	cp.Mentions = m
	cp.Content = m.Content()
	return &cp
}

// MarkdownLink formats a markdown link.
func MarkdownLink(text, url string) string {
	return fmt.Sprintf("[%s](%s)", text, url)
}

// RelativeTimestamp formats a chat timestamp tag that renders as "in 3 days".
func RelativeTimestamp(t time.Time) string {
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}
