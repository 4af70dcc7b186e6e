package feed_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trip_sentinel/internal/infrastructure/feed"
)

func TestHTTPSourceFetchDeals(t *testing.T) {
	rq := require.New(t)

	var tokenRequests atomic.Int64

	expiresAt := time.Now().Add(6 * time.Hour).Format(time.RFC3339)

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		rq.NoError(r.ParseForm())
		rq.Equal("client_credentials", r.FormValue("grant_type"))
		rq.Equal("key", r.FormValue("client_id"))
		rq.Equal("secret", r.FormValue("client_secret"))

		tokenRequests.Add(1)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok-1","token_type":"Bearer","expires_in":1800}`)
	})
	mux.HandleFunc("/v1/travel-deals", func(w http.ResponseWriter, r *http.Request) {
		rq.Equal("Bearer tok-1", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"deals":[
			{"id":"tokyo-1","destination":"Tokyo","country":"Japan","price":2400.00,
			 "marketPrice":3200.00,"flightPrice":980.50,"confidence":92,
			 "autoBookEligible":true,"expiresAt":%q},
			{"id":"broken","destination":"Nowhere","price":1,"marketPrice":2,"expiresAt":"not-a-date"}
		]}`, expiresAt)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	authenticator := feed.NewAuthenticator(server.Client(), server.URL+"/oauth/token", "key", "secret")
	source := feed.NewHTTPSource(server.URL, authenticator, 5*time.Second)

	deals, err := source.FetchDeals(context.Background())
	rq.NoError(err)

	// Битая запись отброшена, валидная нормализована в центы.
	rq.Len(deals, 1)
	rq.Equal("tokyo-1", deals[0].ID)
	rq.EqualValues(240000, deals[0].Price)
	rq.EqualValues(320000, deals[0].MarketPrice)
	rq.EqualValues(98050, deals[0].FlightPrice)
	rq.True(deals[0].AutoBookEligible)

	// Повторный запрос переиспользует закэшированный токен.
	_, err = source.FetchDeals(context.Background())
	rq.NoError(err)
	rq.EqualValues(1, tokenRequests.Load())
}

func TestFixtureSourceIsDeterministic(t *testing.T) {
	rq := require.New(t)

	source := feed.NewFixtureSource()

	first, err := source.FetchDeals(context.Background())
	rq.NoError(err)

	second, err := source.FetchDeals(context.Background())
	rq.NoError(err)

	rq.Len(first, 3)
	rq.Len(second, 3)

	for i := range first {
		rq.Equal(first[i].ID, second[i].ID)
		rq.Equal(first[i].Price, second[i].Price)
	}
}
