// Package model contains the domain models and data structures for game alerts.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Mentions is an ordered list of user or role ids to ping with an announcement.
// Role ids are stored with a leading "&", matching the chat mention syntax.
type Mentions []string

// Encode serializes the mentions for storage in a JSON column.
// An empty list encodes as an empty string.
func (m Mentions) Encode() string {
	if len(m) == 0 {
		return ""
	}
	b, err := json.Marshal([]string(m))
	if err != nil {
		return ""
	}
	return string(b)
}

// DecodeMentions parses a stored JSON mentions column.
func DecodeMentions(raw string) (Mentions, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err == nil {
		return ids, nil
	}
	// Older rows stored numeric ids.
	var numeric []int64
	if err := json.Unmarshal([]byte(raw), &numeric); err != nil {
		return nil, fmt.Errorf("decode mentions: %w", err)
	}
	ids = make([]string, len(numeric))
	for i, id := range numeric {
		ids[i] = fmt.Sprintf("%d", id)
	}
	return ids, nil
}

// Content renders the mentions as message content, e.g. "<@123> <@&456>".
func (m Mentions) Content() string {
	parts := make([]string, 0, len(m))
	for _, id := range m {
		parts = append(parts, "<@"+id+">")
	}
	return strings.Join(parts, " ")
}

// Users returns the user ids in the list.
func (m Mentions) Users() []string {
	var users []string
	for _, id := range m {
		if !strings.HasPrefix(id, "&") {
			users = append(users, id)
		}
	}
	return users
}

// Roles returns the role ids in the list without the "&" marker.
func (m Mentions) Roles() []string {
	var roles []string
	for _, id := range m {
		if strings.HasPrefix(id, "&") {
			roles = append(roles, strings.TrimPrefix(id, "&"))
		}
	}
	return roles
}
