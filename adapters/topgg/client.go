// Package topgg implements gamealert.ReputationService on the top.gg bot API.
//
// A voter is anyone listed by the bot's votes endpoint, which resets monthly.
package topgg

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/coregx/gamealert"
	"github.com/coregx/gamealert/internal/httpapi"
)

// BaseURL is the top.gg API root.
const BaseURL = "https://top.gg/api"

type voter struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type checkResponse struct {
	Voted int `json:"voted"`
}

// Client queries vote status for one bot.
type Client struct {
	botID   string
	baseURL string
	http    *httpapi.Client
}

// NewClient creates a client authenticated with the bot's top.gg token.
func NewClient(botID, token string, opts ...httpapi.Option) *Client {
	opts = append([]httpapi.Option{httpapi.WithHeader("Authorization", token)}, opts...)
	return &Client{botID: botID, baseURL: BaseURL, http: httpapi.New(opts...)}
}

// WithBaseURL points the client at another host.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// QualifyingVoters returns the distinct ids of this month's voters, in first-vote order.
func (c *Client) QualifyingVoters(ctx context.Context) ([]string, error) {
	var voters []voter
	endpoint := fmt.Sprintf("%s/bots/%s/votes", c.baseURL, url.PathEscape(c.botID))
	if err := c.http.GetJSON(ctx, endpoint, nil, &voters); err != nil {
		return nil, gamealert.NewErrorWithCause(gamealert.ErrCodeProvider, "failed to fetch voters", err)
	}

	seen := make(map[string]bool, len(voters))
	ids := make([]string, 0, len(voters))
	for _, v := range voters {
		if v.ID == "" || seen[v.ID] {
			continue
		}
		seen[v.ID] = true
		ids = append(ids, v.ID)
	}
	return ids, nil
}

// HasQualifyingStatus reports whether the user voted in the last 12 hours.
func (c *Client) HasQualifyingStatus(ctx context.Context, userID string) (bool, error) {
	var resp checkResponse
	endpoint := fmt.Sprintf("%s/bots/%s/check", c.baseURL, url.PathEscape(c.botID))
	if err := c.http.GetJSON(ctx, endpoint, url.Values{"userId": {userID}}, &resp); err != nil {
		return false, gamealert.NewErrorWithCause(gamealert.ErrCodeProvider, "failed to check vote", err)
	}
	return resp.Voted == 1, nil
}
