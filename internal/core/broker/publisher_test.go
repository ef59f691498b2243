package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockWriter) Close() error {
	return m.Called().Error(0)
}

func TestKafkaConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     KafkaConfig
		wantErr string
	}{
		{name: "Valid", cfg: KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "order-events"}},
		{name: "No brokers", cfg: KafkaConfig{Topic: "order-events"}, wantErr: "at least one broker"},
		{name: "Blank broker", cfg: KafkaConfig{Brokers: []string{" "}, Topic: "t"}, wantErr: "must not be empty"},
		{name: "No topic", cfg: KafkaConfig{Brokers: []string{"localhost:9092"}}, wantErr: "topic is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewKafkaPublisher_InvalidConfig(t *testing.T) {
	_, err := NewKafkaPublisher(KafkaConfig{})
	assert.Error(t, err)
}

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, ParseBrokers(" a:9092, ,b:9092 "))
	assert.Nil(t, ParseBrokers(""))
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := new(MockWriter)
	w.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
		return len(msgs) == 1 && string(msgs[0].Key) == "order-1" && string(msgs[0].Value) == `{"type":"order.placed"}`
	})).Return(nil)

	p := NewKafkaPublisherWithWriter(w, "order-events", 0)
	err := p.Publish(context.Background(), "order-1", []byte(`{"type":"order.placed"}`))

	assert.NoError(t, err)
	w.AssertExpectations(t)
}

func TestKafkaPublisher_PublishError(t *testing.T) {
	w := new(MockWriter)
	w.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("leader not available"))

	p := NewKafkaPublisherWithWriter(w, "order-events", 0)
	err := p.Publish(context.Background(), "k", []byte("v"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "order-events")
	assert.Contains(t, err.Error(), "leader not available")
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := new(MockWriter)
	w.On("Close").Return(nil).Once()

	p := NewKafkaPublisherWithWriter(w, "order-events", 0)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	err := p.Publish(context.Background(), "k", []byte("v"))
	assert.ErrorIs(t, err, ErrPublisherClosed)
	w.AssertExpectations(t)
}

func TestKafkaPublisher_PublishGivesUpOnSlowBroker(t *testing.T) {
	w := new(MockWriter)
	w.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(context.DeadlineExceeded)

	p := NewKafkaPublisherWithWriter(w, "order-events", 50*time.Millisecond)

	start := time.Now()
	err := p.Publish(context.Background(), "k", []byte("v"))

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNewKafkaPublisherWithWriter_DefaultTimeout(t *testing.T) {
	p := NewKafkaPublisherWithWriter(new(MockWriter), "order-events", 0)
	assert.Equal(t, DefaultPublishTimeout, p.timeout)
}
