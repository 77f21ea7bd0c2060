package markets

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gammaEventJSON = `[{
	"id": "903752",
	"slug": "%s",
	"active": true,
	"closed": false,
	"markets": [{
		"id": "512341",
		"conditionId": "0xabc123",
		"question": "Bitcoin Up or Down?",
		"outcomes": "[\"Up\", \"Down\"]",
		"clobTokenIds": "[\"111222333\", \"444555666\"]"
	}]
}]`

func TestFetchCurrentBuildsAlignedSlug(t *testing.T) {
	var gotSlug string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSlug = r.URL.Query().Get("slug")
		fmt.Fprintf(w, gammaEventJSON, gotSlug)
	}))
	defer srv.Close()

	loader := NewLoader(srv.URL)
	now := time.Date(2025, 3, 1, 14, 22, 37, 0, time.UTC)

	m, err := loader.FetchCurrent("BTC", 15, now)
	require.NoError(t, err)

	// 14:22:37 floors to the 14:15 boundary.
	wantStart := time.Date(2025, 3, 1, 14, 15, 0, 0, time.UTC)
	assert.Equal(t, fmt.Sprintf("btc-updown-15m-%d", wantStart.Unix()), gotSlug)
	assert.Equal(t, wantStart, m.WindowStart)
	assert.Equal(t, wantStart.Add(15*time.Minute), m.WindowEnd)
	assert.Equal(t, "0xabc123", m.ConditionID)
	assert.Equal(t, "111222333", m.UpTokenID)
	assert.Equal(t, "444555666", m.DownTokenID)
}

func TestFetchCurrentRejectsClosedEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"1","slug":"x","active":false,"closed":true,"markets":[{"conditionId":"0x1","clobTokenIds":"[\"a\",\"b\"]"}]}]`)
	}))
	defer srv.Close()

	_, err := NewLoader(srv.URL).FetchCurrent("BTC", 15, time.Now())
	assert.Error(t, err)
}

func TestFetchCurrentNoMarket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	_, err := NewLoader(srv.URL).FetchCurrent("ETH", 15, time.Now())
	assert.Error(t, err)
}

func TestFetchCurrentServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewLoader(srv.URL).FetchCurrent("SOL", 15, time.Now())
	assert.Error(t, err)
}
