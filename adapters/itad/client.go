// Package itad implements gamealert.PriceProvider on the IsThereAnyDeal overview API.
package itad

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/coregx/gamealert"
	"github.com/coregx/gamealert/internal/httpapi"
	"github.com/coregx/gamealert/model"
	"github.com/coregx/gamealert/retry"
)

const (
	// BaseURL is the public IsThereAnyDeal API.
	BaseURL = "https://api.isthereanydeal.com"

	// MaxKeysPerCall is the most plains the overview endpoint accepts at once.
	MaxKeysPerCall = 20
)

type quote struct {
	Store          string          `json:"store"`
	Cut            int             `json:"cut"`
	Price          decimal.Decimal `json:"price"`
	PriceFormatted string          `json:"price_formatted"`
	URL            string          `json:"url"`
}

type overviewEntry struct {
	Price  *quote `json:"price"`
	Lowest *quote `json:"lowest"`
}

type overviewResponse struct {
	Data map[string]overviewEntry `json:"data"`
}

// Client fetches price overviews by game plain.
type Client struct {
	apiKey  string
	baseURL string
	http    *httpapi.Client
}

// NewClient creates a client for the given API key.
func NewClient(apiKey string, opts ...httpapi.Option) *Client {
	return &Client{apiKey: apiKey, baseURL: BaseURL, http: httpapi.New(opts...)}
}

// WithBaseURL points the client at another host.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// FetchOverview returns current and lowest prices keyed by plain.
// Plains the API knows nothing about are omitted.
func (c *Client) FetchOverview(ctx context.Context, gameKeys []string) (map[string]model.PriceOverview, error) {
	if len(gameKeys) == 0 {
		return map[string]model.PriceOverview{}, nil
	}
	if len(gameKeys) > MaxKeysPerCall {
		return nil, gamealert.NewError(gamealert.ErrCodeValidation,
			fmt.Sprintf("at most %d game keys per call, got %d", MaxKeysPerCall, len(gameKeys)))
	}

	query := url.Values{}
	query.Set("key", c.apiKey)
	query.Set("plains", strings.Join(gameKeys, ","))

	var resp overviewResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/v01/game/overview/", query, &resp); err != nil {
		wrapped := gamealert.NewErrorWithCause(gamealert.ErrCodeProvider, "failed to fetch price overview", err)
		if httpapi.IsClientError(err) {
			// Rejected key or request; the next attempt gets the same answer.
			return nil, retry.Permanent(wrapped)
		}
		return nil, wrapped
	}

	out := make(map[string]model.PriceOverview, len(resp.Data))
	for key, entry := range resp.Data {
		if entry.Price == nil && entry.Lowest == nil {
			continue
		}
		out[key] = model.PriceOverview{
			GameKey: key,
			Current: entry.Price.toModel(),
			Lowest:  entry.Lowest.toModel(),
		}
	}
	return out, nil
}

func (q *quote) toModel() *model.PriceQuote {
	if q == nil {
		return nil
	}
	return &model.PriceQuote{
		Price:     q.Price,
		Formatted: q.PriceFormatted,
		Cut:       q.Cut,
		Store:     q.Store,
		URL:       q.URL,
	}
}
