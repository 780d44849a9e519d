package stream

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"straddle-stream/internal/history"
	"straddle-stream/internal/market"
	"straddle-stream/internal/sampler"
	"straddle-stream/internal/storage"
)

// SnapshotEntry is the per-index payload inside a tick snapshot. Indices
// that failed this tick appear as null instead.
type SnapshotEntry struct {
	AtmStrike     int64   `json:"atm_strike"`
	CallPrice     float64 `json:"call_price"`
	PutPrice      float64 `json:"put_price"`
	StraddlePrice float64 `json:"straddle_price"`
	LTP           float64 `json:"ltp"`
}

// session is one connected client: its own tick loop, its own window.
type session struct {
	b      *Broadcaster
	conn   *websocket.Conn
	window *history.Window
	logger zerolog.Logger
}

func (b *Broadcaster) newSession(conn *websocket.Conn, remote string) *session {
	return &session{
		b:      b,
		conn:   conn,
		window: history.NewWindow(b.opts.HistorySize),
		logger: b.logger.With().Str("remote", remote).Logger(),
	}
}

// run drives the tick loop until the transport closes or ctx is
// cancelled. The read pump exists only to notice the peer going away;
// its cancel also aborts any in-flight sampling backoff.
func (s *session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.conn.Close()

	s.logger.Info().Msg("session connected")

	go func() {
		defer cancel()
		for {
			if _, _, err := s.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticks := 0
	for {
		snapshot := s.tick(ctx)
		if ctx.Err() != nil {
			break
		}

		deadline := time.Now().Add(s.b.opts.WriteTimeout)
		_ = s.conn.SetWriteDeadline(deadline)
		if err := s.conn.WriteJSON(snapshot); err != nil {
			s.logger.Warn().Err(err).Msg("snapshot write failed, closing session")
			break
		}
		ticks++

		timer := time.NewTimer(s.b.opts.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
		if ctx.Err() != nil {
			break
		}
	}

	s.logger.Info().Int("ticks", ticks).Msg("session disconnected")
}

// tick samples every tracked index concurrently, persists the successes,
// folds them into the window, and returns the aggregated snapshot. A
// failing index yields a null entry and never disturbs its peers.
func (s *session) tick(ctx context.Context) map[string]any {
	now := time.Now()

	type outcome struct {
		sample sampler.Sample
		err    error
	}
	outcomes := make([]outcome, len(s.b.specs))

	var wg sync.WaitGroup
	for i, spec := range s.b.specs {
		wg.Add(1)
		go func(i int, spec market.IndexSpec) {
			defer wg.Done()
			sample, err := s.b.source.Sample(ctx, spec, now)
			if err == nil {
				s.persist(ctx, sample)
			}
			outcomes[i] = outcome{sample: sample, err: err}
		}(i, spec)
	}
	wg.Wait()

	snapshot := map[string]any{
		"timestamp": now.Format("15:04:05"),
	}
	straddles := make(map[string]decimal.Decimal, len(s.b.specs))

	for i, spec := range s.b.specs {
		out := outcomes[i]
		if out.err != nil {
			if ctx.Err() == nil {
				s.logger.Warn().Err(out.err).Str("index", spec.ID).Msg("index unavailable this tick")
			}
			snapshot[spec.ID] = nil
			continue
		}
		sample := out.sample
		snapshot[spec.ID] = SnapshotEntry{
			AtmStrike:     sample.AtmStrike,
			CallPrice:     sample.CallPrice.InexactFloat64(),
			PutPrice:      sample.PutPrice.InexactFloat64(),
			StraddlePrice: sample.StraddlePrice.InexactFloat64(),
			LTP:           sample.IndexLTP.InexactFloat64(),
		}
		straddles[spec.ID] = sample.StraddlePrice
	}

	if len(straddles) > 0 {
		s.window.Push(history.Point{
			Timestamp: now.Format("15:04:05"),
			Straddles: straddles,
		})
	}

	return snapshot
}

// persist appends a sample to the store. Failures are logged only; the
// snapshot still goes out.
func (s *session) persist(ctx context.Context, sample sampler.Sample) {
	if s.b.store == nil {
		return
	}
	record := storage.StraddleSample{
		IndexID:       sample.IndexID,
		AtmStrike:     sample.AtmStrike,
		CallPrice:     sample.CallPrice,
		PutPrice:      sample.PutPrice,
		StraddlePrice: sample.StraddlePrice,
		LTP:           sample.IndexLTP,
	}
	if _, err := s.b.store.InsertSample(ctx, record); err != nil {
		s.logger.Error().Err(err).Str("index", sample.IndexID).Msg("failed to persist sample")
	}
}
