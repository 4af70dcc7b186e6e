package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"trip_sentinel/internal/domain/entity"
	"trip_sentinel/internal/domain/service/booking"
	"trip_sentinel/internal/domain/service/monitor"
	"trip_sentinel/internal/infrastructure/provider"
	"trip_sentinel/internal/server"
	"trip_sentinel/pkg/rest"
	"trip_sentinel/pkg/tests"
)

func newTestServer(t *testing.T) (tests.APIClient, *booking.Scheduler) {
	t.Helper()

	profile := entity.BudgetProfile{
		MaxTripBudget:       300000,
		PriceAlertThreshold: 80,
		AutoBookingEnabled:  true,
		AvailableBalance:    500000,
	}

	events := make(chan entity.DealEvent, 64)
	ledger := booking.NewLedger(0)
	m := monitor.New(profile, ledger, events)

	scheduler := booking.NewScheduler(ledger, provider.NewSimulated(time.Millisecond), m)
	m.BindScheduler(scheduler)

	router := chi.NewRouter()
	server.NewServer(
		server.NewBudgetServer(m),
		server.NewDealServer(m, scheduler),
	).RegisterRoutes(router)

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	return tests.NewAPIClient(ts.URL, nil), scheduler
}

func TestBudgetEndpoints(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	client, _ := newTestServer(t)

	var profile rest.BudgetProfile

	resp, err := client.Get(ctx, "/v1/budget", nil, &profile, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.EqualValues(300000, profile.MaxTripBudget)
	rq.EqualValues(1, profile.Version)

	// Замена профиля возвращает новую версию.
	update := rest.BudgetProfile{
		MaxTripBudget:       400000,
		PriceAlertThreshold: 75,
		AutoBookingEnabled:  false,
		AvailableBalance:    500000,
	}

	resp, err = client.Put(ctx, "/v1/budget", nil, update, &profile, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.EqualValues(400000, profile.MaxTripBudget)
	rq.EqualValues(2, profile.Version)
	rq.False(profile.AutoBookingEnabled)
}

func TestBudgetValidation(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	client, _ := newTestServer(t)

	// Порог вне 50-95 отбивается на границе.
	update := rest.BudgetProfile{
		MaxTripBudget:       400000,
		PriceAlertThreshold: 40,
		AvailableBalance:    500000,
	}

	var restErr rest.Error

	resp, err := client.Put(ctx, "/v1/budget", nil, update, nil, &restErr)
	rq.NoError(err)
	rq.Equal(http.StatusBadRequest, resp.StatusCode)
	rq.NotEmpty(restErr.Code)
}

func TestDealLifecycleOverHTTP(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	client, scheduler := newTestServer(t)

	expiresAt := time.Now().Add(time.Hour).Format(time.RFC3339)
	body := `{"id":"tokyo-1","destination":"Tokyo","country":"Japan","price":240000,` +
		`"marketPrice":320000,"confidence":92,"autoBookEligible":true,"expiresAt":"` + expiresAt + `"}`

	resp, err := client.PostJSON(ctx, "/v1/deals", nil, body, nil, nil)
	rq.NoError(err)
	rq.Equal(http.StatusCreated, resp.StatusCode)

	scheduler.Close()

	// Сделка пригодна и уже забронирована симулятором.
	var attempt rest.BookingAttempt

	resp, err = client.Get(ctx, "/v1/deals/tokyo-1/attempt", nil, &attempt, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.Equal("committed", attempt.Outcome)
	rq.Equal("tokyo-1", attempt.DealID)

	// После брони сделка выселена из трекинга.
	var restErr rest.Error

	resp, err = client.Get(ctx, "/v1/deals/tokyo-1", nil, nil, &restErr)
	rq.NoError(err)
	rq.Equal(http.StatusNotFound, resp.StatusCode)
}

func TestGetUnknownDeal(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	client, _ := newTestServer(t)

	var restErr rest.Error

	resp, err := client.Get(ctx, "/v1/deals/missing", nil, nil, &restErr)
	rq.NoError(err)
	rq.Equal(http.StatusNotFound, resp.StatusCode)
	rq.EqualValues("DealNotFound", restErr.Code)
}

func TestMalformedDealRejected(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	client, _ := newTestServer(t)

	// Отрицательная цена не проходит валидацию DTO.
	body := `{"id":"bad","destination":"X","price":-5,"marketPrice":100,"expiresAt":"2030-01-01T00:00:00Z"}`

	var restErr rest.Error

	resp, err := client.PostJSON(ctx, "/v1/deals", nil, body, nil, &restErr)
	rq.NoError(err)
	rq.Equal(http.StatusBadRequest, resp.StatusCode)
}
