package relayserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pksalink_relay_connections",
		Help: "Open WebSocket connections.",
	})
	pendingRequestsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pksalink_relay_pending_requests",
		Help: "Requests waiting for an outcome.",
	})
	framesRouted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pksalink_relay_frames_routed_total",
		Help: "Frames written by the hub, by command.",
	}, []string{"cmd"})
	requestsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pksalink_relay_requests_expired_total",
		Help: "Requests swept after their deadline.",
	})
)
