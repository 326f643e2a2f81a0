package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Packet outcomes recorded by the relay pipeline.
const (
	OutcomeForwarded = "forwarded"
	OutcomeDropped   = "dropped"
	OutcomeRaw       = "raw"
	OutcomeError     = "error"
)

var (
	registerOnce sync.Once

	packetsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "krelay",
			Name:      "packets_total",
			Help:      "Packets processed by the relay.",
		},
		[]string{"direction", "kind", "outcome"},
	)
	packetBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "krelay",
			Name:      "packet_bytes_total",
			Help:      "Bytes of packets received by the relay.",
		},
		[]string{"direction"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(packetsTotal, packetBytes)
	})
}

// RecordPacket counts one processed packet of size bytes.
func RecordPacket(direction, kind, outcome string, size int) {
	RegisterMetrics()
	packetsTotal.WithLabelValues(direction, kind, outcome).Inc()
	packetBytes.WithLabelValues(direction).Add(float64(size))
}

// PacketCount returns the collector behind krelay_packets_total for one
// label set.
func PacketCount(direction, kind, outcome string) prometheus.Counter {
	return packetsTotal.WithLabelValues(direction, kind, outcome)
}
