package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"stationery-storefront/internal/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	keys     []string
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, routingKey)
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestPublishPaymentStatusChanged(t *testing.T) {
	pub := &recordingPublisher{}

	err := PublishPaymentStatusChanged(context.Background(), pub, PaymentStatusChanged{
		MerchantOrderID: "ORD_1",
		Status:          "SUCCESS",
		Outcome:         "SUCCESS",
		Amount:          decimal.NewFromInt(1230),
		Currency:        "INR",
		Source:          "check",
	})
	require.NoError(t, err)
	require.Len(t, pub.payloads, 1)
	assert.Equal(t, "ORD_1", pub.keys[0])

	var got PaymentStatusChanged
	require.NoError(t, json.Unmarshal(pub.payloads[0], &got))
	assert.NotEmpty(t, got.EventID)
	assert.Equal(t, PaymentStatusChangedType, got.EventType)
	assert.False(t, got.OccurredAt.IsZero())
	assert.True(t, decimal.NewFromInt(1230).Equal(got.Amount))
}

func TestPublishPaymentStatusChangedError(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	err := PublishPaymentStatusChanged(context.Background(), pub, PaymentStatusChanged{MerchantOrderID: "ORD_1"})
	assert.ErrorContains(t, err, "broker down")
}

func TestNewSelectsBroker(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	p, err := New(&config.Events{Broker: "log"}, logger)
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), "ORD_1", []byte(`{"a":1}`)))
	assert.Contains(t, buf.String(), `"routing_key":"ORD_1"`)

	k, err := New(&config.Events{Broker: "kafka", KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "t"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &KafkaPublisher{}, k)
	assert.NoError(t, k.Close())

	_, err = New(&config.Events{Broker: "kafka"}, logger)
	assert.Error(t, err)

	_, err = New(&config.Events{Broker: "carrier-pigeon"}, logger)
	assert.Error(t, err)
}
