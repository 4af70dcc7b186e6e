package booking_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"trip_sentinel/internal/domain/service/booking"
)

func TestLedgerReserve(t *testing.T) {
	rq := require.New(t)

	ledger := booking.NewLedger(300000)

	rq.True(ledger.Reserve(260000))
	rq.EqualValues(40000, ledger.Balance())

	rq.False(ledger.Reserve(260000))
	rq.EqualValues(40000, ledger.Balance())

	ledger.Refund(260000)
	rq.EqualValues(300000, ledger.Balance())
}

func TestLedgerConcurrentReserve(t *testing.T) {
	rq := require.New(t)

	// Баланса хватает ровно на три резерва из ста.
	const (
		balance = 300
		amount  = 100
		workers = 100
	)

	ledger := booking.NewLedger(balance)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if ledger.Reserve(amount) {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	rq.Equal(3, won)
	rq.EqualValues(0, ledger.Balance())
}
