package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trip_sentinel/internal/domain/entity"
	"trip_sentinel/internal/worker"
)

type fakeSource struct {
	mu    sync.Mutex
	calls int
	deals []entity.Deal
}

func (s *fakeSource) FetchDeals(_ context.Context) ([]entity.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++

	return s.deals, nil
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls
}

type fakeIngestor struct {
	mu       sync.Mutex
	accepted []string
	rejectID string
}

func (i *fakeIngestor) Ingest(_ context.Context, deal entity.Deal) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if deal.ID == i.rejectID {
		return errors.New("rejected")
	}

	i.accepted = append(i.accepted, deal.ID)

	return nil
}

func (i *fakeIngestor) acceptedIDs() []string {
	i.mu.Lock()
	defer i.mu.Unlock()

	return append([]string(nil), i.accepted...)
}

func TestFeedPollerDeliversDeals(t *testing.T) {
	rq := require.New(t)

	source := &fakeSource{deals: []entity.Deal{
		{ID: "a", Price: 100, MarketPrice: 200, ExpiresAt: time.Now().Add(time.Hour)},
		{ID: "b", Price: 100, MarketPrice: 200, ExpiresAt: time.Now().Add(time.Hour)},
	}}
	ingestor := &fakeIngestor{rejectID: "b"}

	poller := worker.NewFeedPoller(source, ingestor).WithPollInterval(5 * time.Millisecond)

	rq.NoError(poller.Start(context.Background()))
	rq.True(poller.IsRunning())

	// Повторный старт запрещён.
	rq.Error(poller.Start(context.Background()))

	rq.Eventually(func() bool {
		return source.callCount() >= 2
	}, time.Second, 5*time.Millisecond)

	poller.Stop()
	rq.False(poller.IsRunning())

	// Отвергнутая сделка не роняет цикл, принятая доходит каждый раз.
	accepted := ingestor.acceptedIDs()
	rq.NotEmpty(accepted)

	for _, id := range accepted {
		rq.Equal("a", id)
	}
}
