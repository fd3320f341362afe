package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dancecoin-ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestWorkerPoolProcessingService_ProcessPurchase(t *testing.T) {
	tests := []struct {
		name          string
		baseErr       error
		expectedError error
	}{
		{name: "successful processing"},
		{name: "processing error", baseErr: errors.New("processing error"), expectedError: errors.New("processing error")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &MockProcessingService{}
			base.On("ProcessPurchase", mock.Anything, validPurchase()).Return(tt.baseErr).Once()

			pool, err := NewWorkerPoolProcessingService(base, WorkerPoolConfig{Size: 2}, newTestLogger())
			require.NoError(t, err)
			defer pool.Shutdown()

			err = pool.ProcessPurchase(context.Background(), validPurchase())

			if tt.expectedError != nil {
				assert.EqualError(t, err, tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, 0, pool.InFlight())
			base.AssertExpectations(t)
		})
	}
}

func TestWorkerPoolProcessingService_Concurrency(t *testing.T) {
	base := &MockProcessingService{}
	var processed atomic.Int32
	base.On("ProcessPurchase", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		time.Sleep(10 * time.Millisecond)
		processed.Add(1)
	}).Return(nil)

	pool, err := NewWorkerPoolProcessingService(base, WorkerPoolConfig{Size: 5}, newTestLogger())
	require.NoError(t, err)
	defer pool.Shutdown()

	const numRequests = 10
	var wg sync.WaitGroup
	wg.Add(numRequests)
	for i := 0; i < numRequests; i++ {
		go func(i int) {
			defer wg.Done()
			request := validPurchase()
			// Half the requests share a purchase, as Kafka redelivery would
			request.PurchaseID = fmt.Sprintf("txn-%d", i%5)
			assert.NoError(t, pool.ProcessPurchase(context.Background(), request))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(numRequests), processed.Load())
	assert.Equal(t, 0, pool.InFlight())
	assert.Equal(t, 5, pool.Capacity())
}

func TestWorkerPoolProcessingService_CallerGivesUp(t *testing.T) {
	release := make(chan struct{})
	base := &MockProcessingService{}
	base.On("ProcessPurchase", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		<-release
	}).Return(nil)

	pool, err := NewWorkerPoolProcessingService(base, WorkerPoolConfig{Size: 1}, newTestLogger())
	require.NoError(t, err)
	defer pool.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = pool.ProcessPurchase(ctx, &shared.PurchaseRequest{PurchaseID: "txn-slow", Provider: shared.PaymentProviderPayPal})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	assert.Eventually(t, func() bool { return pool.InFlight() == 0 }, time.Second, 5*time.Millisecond)
}

func TestWorkerPoolProcessingService_PanicBecomesError(t *testing.T) {
	base := &MockProcessingService{}
	base.On("ProcessPurchase", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		panic("ledger exploded")
	}).Return(nil)

	pool, err := NewWorkerPoolProcessingService(base, WorkerPoolConfig{Size: 1}, newTestLogger())
	require.NoError(t, err)
	defer pool.Shutdown()

	err = pool.ProcessPurchase(context.Background(), validPurchase())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger exploded")
	assert.Eventually(t, func() bool { return pool.InFlight() == 0 }, time.Second, 5*time.Millisecond)
}

func TestNewWorkerPoolProcessingService_InvalidSize(t *testing.T) {
	_, err := NewWorkerPoolProcessingService(&MockProcessingService{}, WorkerPoolConfig{Size: 0}, newTestLogger())
	assert.Error(t, err)
}
