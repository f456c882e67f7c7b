package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/olyamironova/game-exchange/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestPublishKeysByAsset(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w}
	at := time.Date(2026, time.May, 4, 10, 0, 0, 0, time.UTC)
	tr := &domain.Trade{ID: "t1", Asset: "GEM", Buyer: "a", Seller: "b", Price: 7, Quantity: decimal.NewFromInt(2), Timestamp: at}

	if err := p.Publish(context.Background(), []domain.Event{domain.TradeEvent(tr)}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "GEM" || !msg.Time.Equal(at) {
		t.Fatalf("key %q time %s", msg.Key, msg.Time)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != string(domain.EventTrade) {
		t.Fatalf("headers = %v", msg.Headers)
	}
	var decoded domain.Event
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Trade == nil || decoded.Trade.ID != "t1" || !decoded.Trade.Quantity.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestPublishSurfacesWriterErrors(t *testing.T) {
	boom := errors.New("broker down")
	p := &Producer{writer: &fakeWriter{err: boom}}
	err := p.Publish(context.Background(), []domain.Event{{Type: domain.EventOrderPlaced, Asset: "GEM"}})
	if !errors.Is(err, boom) {
		t.Fatalf("expected writer error, got %v", err)
	}
	if err := p.Publish(context.Background(), nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
}
