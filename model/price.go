package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceQuote is one store offer returned by the price provider.
type PriceQuote struct {
	Price     decimal.Decimal `json:"price"`
	Formatted string          `json:"formatted"`
	Cut       int             `json:"cut"` // Discount percentage
	Store     string          `json:"store"`
	URL       string          `json:"url"`
}

// Describe formats the quote as "`$9.99(-50%)` at [Store](url)".
func (q PriceQuote) Describe() string {
	formatted := q.Formatted
	if formatted == "" {
		formatted = q.Price.StringFixed(2)
	}
	return fmt.Sprintf("`%s(-%d%%)` at %s", formatted, q.Cut, MarkdownLink(q.Store, q.URL))
}

// PriceOverview is the current and historical-low price of one game.
type PriceOverview struct {
	GameKey string      `json:"gameKey"`
	Current *PriceQuote `json:"current,omitempty"`
	Lowest  *PriceQuote `json:"lowest,omitempty"`
}

// HasCurrentPrice reports whether the provider returned a current price.
func (o PriceOverview) HasCurrentPrice() bool {
	return o.Current != nil
}

// PriceAlertAnnouncement builds the one-time notification for a triggered price subscription.
func PriceAlertAnnouncement(sub Subscription, overview PriceOverview) *Announcement {
	name := overview.GameKey
	image := ""
	target := int64(0)
	if sub.Price != nil {
		name = sub.Price.DisplayName
		image = sub.Price.ImageURL
		target = sub.Price.TargetPrice
	}

	a := NewAnnouncement("Price Alert: " + name)
	values := []KeyValue{{"Target Price", fmt.Sprintf("$%d", target)}}
	if overview.Current != nil {
		values = append(values, KeyValue{"Current Price", overview.Current.Describe()})
		a.URL = overview.Current.URL
	}
	if overview.Lowest != nil {
		values = append(values, KeyValue{"Lowest Price", overview.Lowest.Describe()})
	}
	a.AddListedField("Store Price", values...)
	a.AddCallToAction()
	a.ImageURL = image
	return a
}
