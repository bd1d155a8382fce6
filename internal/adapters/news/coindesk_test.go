package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedPayload = `[
	{
		"_id": "abc123",
		"type": "story",
		"canonical_url": "/markets/2026/08/29/btc-rally/",
		"headlines": {"basic": "Bitcoin Rallies"},
		"description": {"basic": "BTC moved up."},
		"credits": {"by": [{"name": "Jane Reporter"}]},
		"display_date": "2026-08-29T10:00:00Z"
	},
	{
		"_id": "def456",
		"type": "gallery",
		"headlines": {"basic": "Photo Gallery"},
		"description": {"basic": "not a story"}
	},
	{
		"_id": "ghi789",
		"type": "story",
		"canonical_url": "/policy/2026/08/29/etf/",
		"headlines": {"basic": "ETF Approved"},
		"description": {"basic": "An ETF."},
		"credits": {"by": []},
		"display_date": "2026-08-29T09:00:00Z"
	}
]`

func TestCoinDeskFetchLatest(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		w.Write([]byte(feedPayload))
	}))
	defer server.Close()

	provider := NewCoinDeskProvider()
	provider.feedURL = server.URL + "/feed?size=%d"

	articles, err := provider.FetchLatest(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, "/feed?size=30", gotPath)

	// Non-story entries are dropped.
	require.Len(t, articles, 2)

	assert.Equal(t, "coindesk_abc123", articles[0].ExternalID)
	assert.Equal(t, "Bitcoin Rallies", articles[0].Title)
	assert.Equal(t, "Jane Reporter", articles[0].Author)
	assert.Equal(t, "https://www.coindesk.com/markets/2026/08/29/btc-rally/", articles[0].URL)

	// Missing byline falls back to the outlet name.
	assert.Equal(t, "CoinDesk", articles[1].Author)
}

func TestCoinDeskFetchLatestHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	provider := NewCoinDeskProvider()
	provider.feedURL = server.URL + "/feed?size=%d"

	_, err := provider.FetchLatest(context.Background(), 30)
	assert.Error(t, err)
}
