package steam

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/gamealert"
	"github.com/coregx/gamealert/internal/httpapi"
)

func newTestClient(t *testing.T, details, reviews string) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/appdetails/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "620", r.URL.Query().Get("appids"))
		fmt.Fprint(w, details)
	})
	mux.HandleFunc("/appreviews/620", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("json"))
		fmt.Fprint(w, reviews)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(httpapi.WithMinInterval(0)).WithBaseURL(srv.URL)
}

func TestAppDetails(t *testing.T) {
	c := newTestClient(t,
		`{"620": {"success": true, "data": {"name": "Portal 2", "header_image": "https://img/620.jpg", "price_overview": {"final_formatted": "$9.99"}}}}`,
		`{"success": 1, "query_summary": {"review_score_desc": "Overwhelmingly Positive"}}`,
	)

	details, err := c.AppDetails(context.Background(), 620)
	require.NoError(t, err)
	assert.Equal(t, int64(620), details.AppID)
	assert.Equal(t, "Portal 2", details.Name)
	assert.Equal(t, "https://img/620.jpg", details.HeaderImage)
	assert.Equal(t, "$9.99", details.PriceFormatted)
	assert.Equal(t, "Overwhelmingly Positive", details.ReviewSummary)
}

func TestAppDetails_FreeGame(t *testing.T) {
	c := newTestClient(t,
		`{"620": {"success": true, "data": {"name": "Portal 2", "is_free": true}}}`,
		`{"success": 1, "query_summary": {}}`,
	)

	details, err := c.AppDetails(context.Background(), 620)
	require.NoError(t, err)
	assert.Equal(t, "Free", details.PriceFormatted)
	assert.Equal(t, "No reviews", details.ReviewSummary)
}

func TestAppDetails_UnknownApp(t *testing.T) {
	c := newTestClient(t, `{"620": {"success": false}}`, `{}`)

	_, err := c.AppDetails(context.Background(), 620)
	require.Error(t, err)
	assert.True(t, gamealert.IsProvider(err))
}
