package rabbitmq

import (
	"errors"
	"io"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetOutput(io.Discard)
}

type fakeAck struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAck) Ack(bool) error {
	f.acked = true
	return nil
}

func (f *fakeAck) Nack(_, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func TestEncodeDecodeEvent(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	msg, err := encodeEvent("user.registered", map[string]any{"username": "maria"}, now)
	require.NoError(t, err)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, uint8(amqp.Persistent), msg.DeliveryMode)

	ev, err := DecodeEvent(amqp.Delivery{Type: msg.Type, Body: msg.Body, Timestamp: msg.Timestamp})
	require.NoError(t, err)
	assert.Equal(t, "user.registered", ev.Type)
	assert.Equal(t, "maria", ev.Payload["username"])
	assert.Equal(t, now, ev.Timestamp)
}

func TestEncodeEvent_Unmarshalable(t *testing.T) {
	_, err := encodeEvent("x", map[string]any{"ch": make(chan int)}, time.Now())
	assert.Error(t, err)
}

func TestDecodeEvent_Malformed(t *testing.T) {
	_, err := DecodeEvent(amqp.Delivery{Body: []byte("{not json")})
	assert.Error(t, err)
}

func TestSettle(t *testing.T) {
	ok := &fakeAck{}
	settle(ok, 1, func() (bool, error) { return true, nil })
	assert.True(t, ok.acked)
	assert.False(t, ok.nacked)

	retry := &fakeAck{}
	settle(retry, 2, func() (bool, error) { return true, errors.New("handler busy") })
	assert.True(t, retry.nacked)
	assert.True(t, retry.requeue)

	drop := &fakeAck{}
	settle(drop, 3, func() (bool, error) { return false, errors.New("malformed") })
	assert.True(t, drop.nacked)
	assert.False(t, drop.requeue)
}

func TestClient_WithoutChannel(t *testing.T) {
	c := &Client{queue: DefaultQueue}
	assert.ErrorIs(t, c.PublishEvent("user.registered", map[string]any{}), ErrChannelClosed)
	assert.ErrorIs(t, c.ConsumeEvents(LogEvent), ErrChannelClosed)
	assert.NoError(t, c.Close())
}

func TestLogEvent(t *testing.T) {
	assert.NoError(t, LogEvent(Event{Type: "prediction.batch_completed", Payload: map[string]any{"rows": 3}}))
}
