package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-order-events/internal/orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPublisher is a mock for the Publisher interface.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishCreated(ctx context.Context, o orders.Order) bool {
	return m.Called(ctx, o).Bool(0)
}

func (m *MockPublisher) PublishUpdated(ctx context.Context, o orders.Order) bool {
	return m.Called(ctx, o).Bool(0)
}

func TestService_CreateOrder_Success(t *testing.T) {
	pub := new(MockPublisher)
	svc := NewService(NewStore(nil), pub, nil)
	ctx := context.Background()

	pub.On("PublishCreated", mock.Anything, mock.MatchedBy(func(o orders.Order) bool {
		return o.OrderID == "o1" && len(o.Items) == 3 && o.Status == orders.StatusNew
	})).Return(true).Once()

	o, err := svc.CreateOrder(ctx, "o1", 3)
	require.NoError(t, err)
	assert.Equal(t, "o1", o.OrderID)
	pub.AssertExpectations(t)
}

func TestService_CreateOrder_Conflict(t *testing.T) {
	pub := new(MockPublisher)
	svc := NewService(NewStore(nil), pub, nil)
	ctx := context.Background()

	pub.On("PublishCreated", mock.Anything, mock.Anything).Return(true).Once()

	first, err := svc.CreateOrder(ctx, "o1", 2)
	require.NoError(t, err)

	existing, err := svc.CreateOrder(ctx, "o1", 5)
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.Equal(t, first.CustomerID, existing.CustomerID)
	assert.Len(t, existing.Items, 2)
	pub.AssertNumberOfCalls(t, "PublishCreated", 1)
}

func TestService_CreateOrder_InvalidInput(t *testing.T) {
	pub := new(MockPublisher)
	svc := NewService(NewStore(nil), pub, nil)

	_, err := svc.CreateOrder(context.Background(), "", 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateOrder(context.Background(), "o1", 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	pub.AssertNotCalled(t, "PublishCreated", mock.Anything, mock.Anything)
}

func TestService_CreateOrder_PublishFailure(t *testing.T) {
	pub := new(MockPublisher)
	store := NewStore(nil)
	svc := NewService(store, pub, nil)
	ctx := context.Background()

	pub.On("PublishCreated", mock.Anything, mock.Anything).Return(false)

	_, err := svc.CreateOrder(ctx, "o1", 1)
	assert.ErrorIs(t, err, ErrPublishFailed)
	// the order stays in the store; a retry from the client reports a conflict
	_, ok := store.GetOrder("o1")
	assert.True(t, ok)
}

func TestService_UpdateOrder(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		orderID   string
		status    string
		publishOK bool
		wantErr   error
		wantState string
	}{
		{name: "success", orderID: "o1", status: "shipped", publishOK: true, wantState: "shipped"},
		{name: "not found", orderID: "missing", status: "shipped", wantErr: ErrNotFound, wantState: orders.StatusNew},
		{name: "same status", orderID: "o1", status: orders.StatusNew, wantErr: ErrStatusUnchanged, wantState: orders.StatusNew},
		{name: "empty status", orderID: "o1", status: "", wantErr: ErrInvalidInput, wantState: orders.StatusNew},
		{name: "publish failure", orderID: "o1", status: "paid", publishOK: false, wantErr: ErrPublishFailed, wantState: "paid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := new(MockPublisher)
			store := NewStore(nil)
			store.AddOrder(newOrder("o1", 10))
			svc := NewService(store, pub, nil)

			pub.On("PublishUpdated", mock.Anything, mock.MatchedBy(func(o orders.Order) bool {
				return o.OrderID == tt.orderID && o.Status == tt.status
			})).Return(tt.publishOK).Maybe()

			_, err := svc.UpdateOrder(ctx, tt.orderID, tt.status)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}

			got, _ := store.GetOrder("o1")
			assert.Equal(t, tt.wantState, got.Status)
			pub.AssertExpectations(t)
		})
	}
}

func TestService_GetOrder(t *testing.T) {
	store := NewStore(nil)
	store.AddOrder(newOrder("o1", 10))
	svc := NewService(store, new(MockPublisher), nil)

	o, err := svc.GetOrder(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", o.OrderID)

	_, err = svc.GetOrder(context.Background(), "o2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_UpdateOrder_ConcurrentSameStatusPublishesOnce(t *testing.T) {
	pub := new(MockPublisher)
	store := NewStore(nil)
	store.AddOrder(newOrder("o1", 10))
	svc := NewService(store, pub, nil)

	pub.On("PublishUpdated", mock.Anything, mock.Anything).Return(true)

	const n = 32
	var wg sync.WaitGroup
	errs := make(chan error, n)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.UpdateOrder(context.Background(), "o1", "shipped")
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	ok, unchanged := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, ErrStatusUnchanged):
			unchanged++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, unchanged)
	pub.AssertNumberOfCalls(t, "PublishUpdated", 1)
}

func TestService_PublishOutlivesCallerContext(t *testing.T) {
	pub := new(MockPublisher)
	svc := NewService(NewStore(nil), pub, nil, WithPublishTimeout(time.Minute))

	caller, cancel := context.WithCancel(context.Background())
	cancel()

	var pubCtx context.Context
	pub.On("PublishCreated", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { pubCtx = args.Get(0).(context.Context) }).
		Return(true).Once()

	_, err := svc.CreateOrder(caller, "o1", 1)
	require.NoError(t, err)

	require.NotNil(t, pubCtx)
	deadline, ok := pubCtx.Deadline()
	require.True(t, ok)
	assert.Greater(t, time.Until(deadline), 50*time.Second)

	// publish ran on a live context although the caller had given up
	pub.On("PublishUpdated", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			assert.NoError(t, args.Get(0).(context.Context).Err())
		}).
		Return(true).Once()
	_, err = svc.UpdateOrder(caller, "o1", "paid")
	require.NoError(t, err)
	pub.AssertExpectations(t)
}
