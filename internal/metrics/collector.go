package metrics

import "github.com/prometheus/client_golang/prometheus"

// liveStats is implemented by the room storage.
type liveStats interface {
	LiveStats() (rooms, viewers int)
}

// RoomCollector implements prometheus.Collector over the live room set.
// It polls the storage lazily on each scrape rather than maintaining
// duplicate state.
type RoomCollector struct {
	stats liveStats

	roomsLive        *prometheus.Desc
	viewersConnected *prometheus.Desc
}

// NewRoomCollector creates a collector scraping room stats on demand.
func NewRoomCollector(stats liveStats) *RoomCollector {
	return &RoomCollector{
		stats: stats,
		roomsLive: prometheus.NewDesc(
			"cooplook_rooms_live",
			"Number of rooms currently materialized in memory.",
			nil, nil,
		),
		viewersConnected: prometheus.NewDesc(
			"cooplook_viewers_connected",
			"Number of websocket viewers across all live rooms.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *RoomCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.roomsLive
	ch <- c.viewersConnected
}

// Collect implements prometheus.Collector.
func (c *RoomCollector) Collect(ch chan<- prometheus.Metric) {
	rooms, viewers := c.stats.LiveStats()
	ch <- prometheus.MustNewConstMetric(c.roomsLive, prometheus.GaugeValue, float64(rooms))
	ch <- prometheus.MustNewConstMetric(c.viewersConnected, prometheus.GaugeValue, float64(viewers))
}
