// Package steam implements gamealert.StoreCatalog on the Steam storefront API.
package steam

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/coregx/gamealert"
	"github.com/coregx/gamealert/internal/httpapi"
	"github.com/coregx/gamealert/model"
)

// BaseURL is the Steam storefront host.
const BaseURL = "https://store.steampowered.com"

type appDetailsEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		Name          string `json:"name"`
		HeaderImage   string `json:"header_image"`
		IsFree        bool   `json:"is_free"`
		PriceOverview *struct {
			FinalFormatted string `json:"final_formatted"`
		} `json:"price_overview"`
	} `json:"data"`
}

type reviewsResponse struct {
	Success      int `json:"success"`
	QuerySummary struct {
		ReviewScoreDesc string `json:"review_score_desc"`
	} `json:"query_summary"`
}

// Client fetches app details and review summaries.
type Client struct {
	baseURL string
	http    *httpapi.Client
}

// NewClient creates a storefront client.
func NewClient(opts ...httpapi.Option) *Client {
	return &Client{baseURL: BaseURL, http: httpapi.New(opts...)}
}

// WithBaseURL points the client at another host.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// AppDetails returns name, header image, formatted price and review summary for an app.
func (c *Client) AppDetails(ctx context.Context, appID int64) (model.AppDetails, error) {
	id := strconv.FormatInt(appID, 10)

	var envelope map[string]appDetailsEnvelope
	query := url.Values{"appids": {id}}
	if err := c.http.GetJSON(ctx, c.baseURL+"/api/appdetails/", query, &envelope); err != nil {
		return model.AppDetails{}, gamealert.NewErrorWithCause(gamealert.ErrCodeProvider,
			fmt.Sprintf("failed to fetch app details for %d", appID), err)
	}
	entry, ok := envelope[id]
	if !ok || !entry.Success {
		return model.AppDetails{}, gamealert.NewError(gamealert.ErrCodeProvider, fmt.Sprintf("no store data for app %d", appID))
	}

	details := model.AppDetails{
		AppID:       appID,
		Name:        entry.Data.Name,
		HeaderImage: entry.Data.HeaderImage,
	}
	switch {
	case entry.Data.PriceOverview != nil:
		details.PriceFormatted = entry.Data.PriceOverview.FinalFormatted
	case entry.Data.IsFree:
		details.PriceFormatted = "Free"
	default:
		details.PriceFormatted = "None"
	}

	var reviews reviewsResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/appreviews/"+id, url.Values{"json": {"1"}}, &reviews); err != nil {
		return model.AppDetails{}, gamealert.NewErrorWithCause(gamealert.ErrCodeProvider,
			fmt.Sprintf("failed to fetch reviews for %d", appID), err)
	}
	details.ReviewSummary = reviews.QuerySummary.ReviewScoreDesc
	if details.ReviewSummary == "" {
		details.ReviewSummary = "No reviews"
	}
	return details, nil
}
