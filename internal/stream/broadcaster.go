// Package stream pushes per-tick straddle snapshots to websocket clients.
package stream

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"straddle-stream/internal/market"
	"straddle-stream/internal/sampler"
	"straddle-stream/internal/storage"
)

// SampleSource produces one straddle sample per index per tick.
type SampleSource interface {
	Sample(ctx context.Context, spec market.IndexSpec, today time.Time) (sampler.Sample, error)
}

// Options tune broadcaster sessions.
type Options struct {
	// Interval is the pause between ticks.
	Interval time.Duration
	// HistorySize bounds each session's rolling window.
	HistorySize int
	// WriteTimeout caps a single websocket write.
	WriteTimeout time.Duration
}

// Broadcaster accepts websocket sessions and streams snapshots to each.
// Every session runs in its own goroutine with its own rolling window;
// nothing mutable is shared across sessions.
type Broadcaster struct {
	source   SampleSource
	store    storage.SampleStore
	specs    []market.IndexSpec
	opts     Options
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// New constructs a Broadcaster. store may be nil, which disables
// persistence but not streaming.
func New(source SampleSource, store storage.SampleStore, specs []market.IndexSpec, opts Options, logger zerolog.Logger) *Broadcaster {
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	return &Broadcaster{
		source: source,
		store:  store,
		specs:  specs,
		opts:   opts,
		logger: logger.With().Str("component", "broadcaster").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the request and streams until the client disconnects.
func (b *Broadcaster) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	sess := b.newSession(conn, r.RemoteAddr)
	sess.run(r.Context())
}
