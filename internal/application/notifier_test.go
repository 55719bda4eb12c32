package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/adhunt/internal/domain/entity"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishJSON(ctx context.Context, body any) error {
	return m.Called(ctx, body).Error(0)
}

func pendingAd(id int64) *entity.Advertisement {
	return &entity.Advertisement{ID: id, Title: "Bike", Price: decimal.NewFromInt(100), Status: entity.StatusPending}
}

func TestNotifier_PublishesAdvisory(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("PublishJSON", mock.Anything, Advisory{ID: 7, Title: "Bike", Author: "a@x.com", Status: "pending"}).Return(nil).Once()

	n := NewNotifier(pub, quietLogger(), 4, time.Second)
	n.Start(context.Background())
	n.Emit(pendingAd(7), "a@x.com")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, n.Close(ctx))
	pub.AssertExpectations(t)
}

func TestNotifier_FailuresAreSwallowed(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("PublishJSON", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	n := NewNotifier(pub, quietLogger(), 4, time.Second)
	n.Start(context.Background())
	n.Emit(pendingAd(1), "a@x.com")
	n.Emit(pendingAd(2), "a@x.com")

	require.NoError(t, n.Close(context.Background()))
	pub.AssertNumberOfCalls(t, "PublishJSON", 2)
}

// blockingPublisher holds the worker until release is closed.
type blockingPublisher struct {
	release chan struct{}
	mu      sync.Mutex
	ids     []int64
}

func (p *blockingPublisher) PublishJSON(_ context.Context, body any) error {
	<-p.release
	p.mu.Lock()
	p.ids = append(p.ids, body.(Advisory).ID)
	p.mu.Unlock()
	return nil
}

func TestNotifier_EmitNeverBlocks(t *testing.T) {
	pub := &blockingPublisher{release: make(chan struct{})}
	n := NewNotifier(pub, quietLogger(), 1, time.Second)
	n.Start(context.Background())

	done := make(chan struct{})
	go func() {
		for i := int64(1); i <= 10; i++ {
			n.Emit(pendingAd(i), "a@x.com")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked with a full buffer")
	}

	close(pub.release)
	require.NoError(t, n.Close(context.Background()))
	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.LessOrEqual(t, len(pub.ids), 2, "one in flight plus one buffered")
	assert.NotEmpty(t, pub.ids)
}

func TestNotifier_EmitAfterCloseIsDropped(t *testing.T) {
	pub := new(MockPublisher)
	n := NewNotifier(pub, nil, 1, time.Second)
	n.Start(context.Background())
	require.NoError(t, n.Close(context.Background()))
	require.NoError(t, n.Close(context.Background()))

	n.Emit(pendingAd(1), "a@x.com")
	pub.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
}

func TestNotifier_CloseWithoutStart(t *testing.T) {
	n := NewNotifier(new(MockPublisher), nil, 0, 0)
	assert.NoError(t, n.Close(context.Background()))
}

func TestDisabledNotifier(t *testing.T) {
	assert.NotPanics(t, func() { DisabledNotifier{}.Emit(pendingAd(1), "a@x.com") })
}

func TestNotifier_RecoversAfterPublisherFailures(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("PublishJSON", mock.Anything, mock.Anything).Return(errors.New("connection refused")).Twice()
	pub.On("PublishJSON", mock.Anything, mock.Anything).Return(nil)

	n := NewNotifier(pub, quietLogger(), 8, time.Second)
	n.Start(context.Background())
	for i := int64(1); i <= 4; i++ {
		n.Emit(pendingAd(i), "a@x.com")
	}

	require.NoError(t, n.Close(context.Background()))
	pub.AssertNumberOfCalls(t, "PublishJSON", 4)
	last := pub.Calls[len(pub.Calls)-1]
	assert.Equal(t, int64(4), last.Arguments.Get(1).(Advisory).ID)
}
