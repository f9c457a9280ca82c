package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the counters instrumented directly by the room and
// streaming layers.
type Metrics struct {
	RoomLoads     prometheus.Counter
	RoomEvictions prometheus.Counter

	FramesHandled prometheus.Counter

	StreamRequests  prometheus.Counter
	StreamBytes     prometheus.Counter
	PiecesServed    prometheus.Counter
	PiecesFromCache prometheus.Counter
	PieceTimeouts   prometheus.Counter
}

// New creates and registers the metrics with the given registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RoomLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cooplook",
			Subsystem: "rooms",
			Name:      "loads_total",
			Help:      "Rooms materialized from their durable records.",
		}),
		RoomEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cooplook",
			Subsystem: "rooms",
			Name:      "evictions_total",
			Help:      "Rooms evicted after their inactivity period.",
		}),
		FramesHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cooplook",
			Subsystem: "sync",
			Name:      "frames_total",
			Help:      "Client playback frames applied to rooms.",
		}),
		StreamRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cooplook",
			Subsystem: "streaming",
			Name:      "requests_total",
			Help:      "Video requests served, full and ranged.",
		}),
		StreamBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cooplook",
			Subsystem: "streaming",
			Name:      "bytes_total",
			Help:      "Video bytes written to clients.",
		}),
		PiecesServed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cooplook",
			Subsystem: "streaming",
			Name:      "pieces_served_total",
			Help:      "Torrent pieces handed to streams.",
		}),
		PiecesFromCache: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cooplook",
			Subsystem: "streaming",
			Name:      "pieces_cached_total",
			Help:      "Piece requests answered from the shared in-memory buffer.",
		}),
		PieceTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cooplook",
			Subsystem: "streaming",
			Name:      "piece_timeouts_total",
			Help:      "Piece waits that hit the download or read timeout.",
		}),
	}

	reg.MustRegister(
		m.RoomLoads,
		m.RoomEvictions,
		m.FramesHandled,
		m.StreamRequests,
		m.StreamBytes,
		m.PiecesServed,
		m.PiecesFromCache,
		m.PieceTimeouts,
	)

	return m
}
