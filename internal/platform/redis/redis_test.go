package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/yungbote/neurobridge-assistant/internal/domain"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
)

func testClient(t *testing.T) Config {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	return Config{Addr: addr}
}

func TestJSONCacheRoundTrip(t *testing.T) {
	cfg := testClient(t)
	ctx := context.Background()
	rdb, err := Connect(ctx, logger.Nop(), cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer rdb.Close()

	c := NewJSONCache(rdb, "test:cache:")
	var got map[string]int
	ok, err := c.Get(ctx, "missing", &got)
	if err != nil || ok {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
	if err := c.Set(ctx, "k", map[string]int{"a": 1}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	ok, err = c.Get(ctx, "k", &got)
	if err != nil || !ok || got["a"] != 1 {
		t.Fatalf("Get: want=1 got=%v ok=%v err=%v", got, ok, err)
	}
}

func TestEventBusForwardsEvents(t *testing.T) {
	cfg := testClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rdb, err := Connect(ctx, logger.Nop(), cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	bus, err := NewEventBus(logger.Nop(), rdb, "test:ingestion")
	if err != nil {
		t.Fatalf("NewEventBus: %v", err)
	}
	defer bus.Close()

	got := make(chan domain.IngestionEvent, 1)
	if err := bus.StartForwarder(ctx, func(ev domain.IngestionEvent) { got <- ev }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	if err := bus.Publish(ctx, domain.IngestionEvent{DocumentID: "d1", Status: domain.DocumentReady, Stage: domain.StageDone}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case ev := <-got:
		if ev.DocumentID != "d1" || ev.Stage != domain.StageDone {
			t.Fatalf("event: got=%+v", ev)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for event")
	}
}

func TestConnectRequiresAddr(t *testing.T) {
	if _, err := Connect(context.Background(), logger.Nop(), Config{}); err == nil {
		t.Fatalf("expected error without addr")
	}
}
