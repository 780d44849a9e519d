package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"straddle-stream/internal/market"
	"straddle-stream/internal/sampler"
	"straddle-stream/internal/storage"
)

type sourceFunc func(ctx context.Context, spec market.IndexSpec, today time.Time) (sampler.Sample, error)

func (f sourceFunc) Sample(ctx context.Context, spec market.IndexSpec, today time.Time) (sampler.Sample, error) {
	return f(ctx, spec, today)
}

type memStore struct {
	mu      sync.Mutex
	samples []storage.StraddleSample
}

func (m *memStore) InsertSample(ctx context.Context, s storage.StraddleSample) (storage.StraddleSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = int64(len(m.samples) + 1)
	s.CreatedAt = time.Now()
	m.samples = append(m.samples, s)
	return s, nil
}

func (m *memStore) ListRecentSamples(ctx context.Context, limit int) ([]storage.StraddleSample, error) {
	return nil, nil
}

func (m *memStore) ListSamplesBetween(ctx context.Context, from, to time.Time) ([]storage.StraddleSample, error) {
	return nil, nil
}

func (m *memStore) CountSamples(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.samples)), nil
}

func testSpecs() []market.IndexSpec {
	return []market.IndexSpec{
		{ID: "nifty", Exchange: "NSE", BaseSymbol: "NIFTY", QuoteSymbol: "NSE:NIFTY50-INDEX",
			StrikeIncrement: 50, Rule: market.ExpiryRule{Kind: market.RuleWeekly, Weekday: time.Thursday}},
		{ID: "sensex", Exchange: "BSE", BaseSymbol: "SENSEX", QuoteSymbol: "BSE:SENSEX-INDEX",
			StrikeIncrement: 50, Rule: market.ExpiryRule{Kind: market.RuleWeekly, Weekday: time.Tuesday}},
	}
}

func goodSample(spec market.IndexSpec) sampler.Sample {
	return sampler.Sample{
		IndexID:       spec.ID,
		AtmStrike:     25000,
		CallPrice:     decimal.NewFromFloat(120.5),
		PutPrice:      decimal.NewFromFloat(98.25),
		StraddlePrice: decimal.NewFromFloat(218.75),
		IndexLTP:      decimal.NewFromFloat(24998),
		At:            time.Now(),
	}
}

func TestTickIsolatesFailingIndex(t *testing.T) {
	store := &memStore{}
	source := sourceFunc(func(ctx context.Context, spec market.IndexSpec, today time.Time) (sampler.Sample, error) {
		if spec.ID == "nifty" {
			return sampler.Sample{}, &sampler.DataError{IndexID: spec.ID, Reason: "ltp missing"}
		}
		return goodSample(spec), nil
	})

	b := New(source, store, testSpecs(), Options{Interval: time.Second}, zerolog.Nop())
	sess := b.newSession(nil, "test")

	snapshot := sess.tick(context.Background())

	if snapshot["nifty"] != nil {
		t.Fatalf("failed index should be null, got %#v", snapshot["nifty"])
	}
	entry, ok := snapshot["sensex"].(SnapshotEntry)
	if !ok {
		t.Fatalf("sensex entry has wrong type %#v", snapshot["sensex"])
	}
	if entry.StraddlePrice != 218.75 || entry.AtmStrike != 25000 {
		t.Fatalf("unexpected sensex entry %+v", entry)
	}
	if snapshot["timestamp"] == "" {
		t.Fatal("snapshot missing timestamp")
	}

	// Only the successful index reaches the store and the window.
	if n, _ := store.CountSamples(context.Background()); n != 1 {
		t.Fatalf("store holds %d samples, want 1", n)
	}
	if sess.window.Len() != 1 {
		t.Fatalf("window holds %d points, want 1", sess.window.Len())
	}
	point := sess.window.Points()[0]
	if _, ok := point.Straddles["nifty"]; ok {
		t.Fatal("failed index must not enter the window")
	}
}

func TestTickAllIndicesFail(t *testing.T) {
	source := sourceFunc(func(ctx context.Context, spec market.IndexSpec, today time.Time) (sampler.Sample, error) {
		return sampler.Sample{}, &sampler.DataError{IndexID: spec.ID, Reason: "down"}
	})

	b := New(source, nil, testSpecs(), Options{Interval: time.Second}, zerolog.Nop())
	sess := b.newSession(nil, "test")

	snapshot := sess.tick(context.Background())
	if snapshot["nifty"] != nil || snapshot["sensex"] != nil {
		t.Fatal("all entries should be null")
	}
	if sess.window.Len() != 0 {
		t.Fatal("window must not record all-failure ticks")
	}
}

func TestSessionStreamsOverWebsocket(t *testing.T) {
	store := &memStore{}
	source := sourceFunc(func(ctx context.Context, spec market.IndexSpec, today time.Time) (sampler.Sample, error) {
		return goodSample(spec), nil
	})

	b := New(source, store, testSpecs(), Options{Interval: 10 * time.Millisecond}, zerolog.Nop())

	srv := httptest.NewServer(http.HandlerFunc(b.ServeWS))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	for i := 0; i < 3; i++ {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read snapshot %d: %v", i, err)
		}

		var snapshot map[string]json.RawMessage
		if err := json.Unmarshal(payload, &snapshot); err != nil {
			t.Fatalf("snapshot %d not json: %v", i, err)
		}
		for _, key := range []string{"timestamp", "nifty", "sensex"} {
			if _, ok := snapshot[key]; !ok {
				t.Fatalf("snapshot %d missing %q: %s", i, key, payload)
			}
		}

		var entry SnapshotEntry
		if err := json.Unmarshal(snapshot["nifty"], &entry); err != nil {
			t.Fatalf("decode nifty entry: %v", err)
		}
		if entry.StraddlePrice != 218.75 {
			t.Fatalf("straddle = %v, want 218.75", entry.StraddlePrice)
		}
	}

	if n, _ := store.CountSamples(context.Background()); n < 2 {
		t.Fatalf("store holds %d samples, want at least one full tick persisted", n)
	}
}

func TestSessionStopsWhenClientCloses(t *testing.T) {
	var calls int64
	var mu sync.Mutex
	source := sourceFunc(func(ctx context.Context, spec market.IndexSpec, today time.Time) (sampler.Sample, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return goodSample(spec), nil
	})

	b := New(source, nil, testSpecs(), Options{Interval: 5 * time.Millisecond}, zerolog.Nop())
	srv := httptest.NewServer(http.HandlerFunc(b.ServeWS))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("first read: %v", err)
	}
	conn.Close()

	// Give the session time to notice the closed transport, then check
	// the sampling has stopped.
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	after := calls
	mu.Unlock()
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	final := calls
	mu.Unlock()

	if final != after {
		t.Fatalf("sampling continued after disconnect: %d -> %d", after, final)
	}
}

func ExampleSnapshotEntry() {
	entry := SnapshotEntry{AtmStrike: 25000, CallPrice: 120.5, PutPrice: 98.25, StraddlePrice: 218.75, LTP: 24998}
	out, _ := json.Marshal(entry)
	fmt.Println(string(out))
	// Output: {"atm_strike":25000,"call_price":120.5,"put_price":98.25,"straddle_price":218.75,"ltp":24998}
}
