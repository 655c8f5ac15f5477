package discord

import (
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/coregx/gamealert/model"
)

// MessageSend converts an announcement to a Discord message.
// Only the announcement's own mentions may ping.
func MessageSend(a *model.Announcement) *discordgo.MessageSend {
	msg := &discordgo.MessageSend{
		Content: a.Content,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{},
			Users: a.Mentions.Users(),
			Roles: a.Mentions.Roles(),
		},
	}
	if a.Title == "" && len(a.Fields) == 0 && a.Description == "" {
		return msg
	}

	embed := &discordgo.MessageEmbed{
		Title:       a.Title,
		Description: a.Description,
		URL:         a.URL,
		Color:       a.Color,
	}
	if !a.Timestamp.IsZero() {
		embed.Timestamp = a.Timestamp.Format(time.RFC3339)
	}
	if a.ImageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: a.ImageURL}
	}
	if a.ThumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: a.ThumbnailURL}
	}
	if a.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: a.Footer}
	}
	for _, f := range a.Fields {
		if strings.TrimSpace(f.Value) == "" {
			continue
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	msg.Embeds = []*discordgo.MessageEmbed{embed}
	return msg
}
