package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"stationery-storefront/internal/client"
	"stationery-storefront/internal/events"
	"stationery-storefront/internal/gateway"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := client.InitDB("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared", discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type fakeIntents struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, req *gateway.IntentRequest) (*gateway.Intent, error)
}

func (f *fakeIntents) CreateIntent(ctx context.Context, req *gateway.IntentRequest) (*gateway.Intent, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(ctx, req)
}

func (f *fakeIntents) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeStatus struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, id string) (*gateway.Result, error)
}

func (f *fakeStatus) QueryStatus(ctx context.Context, id string) (*gateway.Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(ctx, id)
}

func (f *fakeStatus) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeVerifier struct {
	calls int
	fn    func(ctx context.Context, req *gateway.VerifyRequest) (*gateway.Result, error)
}

func (f *fakeVerifier) VerifyOrder(ctx context.Context, req *gateway.VerifyRequest) (*gateway.Result, error) {
	f.calls++
	return f.fn(ctx, req)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.PaymentStatusChanged
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	var evt events.PaymentStatusChanged
	if err := json.Unmarshal(payload, &evt); err != nil {
		return err
	}
	p.mu.Lock()
	p.events = append(p.events, evt)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Events() []events.PaymentStatusChanged {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.PaymentStatusChanged(nil), p.events...)
}

// phonepeStatus builds the result the PhonePe adapter would return for a raw status body.
func phonepeStatus(t *testing.T, id, body string) *gateway.Result {
	t.Helper()
	var st client.PhonePeOrderStatus
	require.NoError(t, json.Unmarshal([]byte(body), &st))
	st.Raw = []byte(body)
	return gateway.PhonePeResult(id, &st)
}
