package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pksalink_client_frames_received_total",
		Help: "Frames received from the relay, by command.",
	}, []string{"cmd"})
	framesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pksalink_client_frames_sent_total",
		Help: "Frames written to the relay, by command.",
	}, []string{"cmd"})
	framesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pksalink_client_frames_dropped_total",
		Help: "Frames dropped because the relay was not connected.",
	})
	connectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pksalink_client_connects_total",
		Help: "Relay connection attempts, by result.",
	}, []string{"result"})
)
